package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrNotFound = errors.New("键不存在")
	ErrConflict = errors.New("值已被其他写入者修改")
)

// Store 是共享记录所在的键值存储，只保证单键读写
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Swapper 是可选的条件写入能力
// 仅当当前值与 old 完全相同时写入 value，old 为 nil 表示键必须不存在；不满足时返回 ErrConflict
type Swapper interface {
	CompareAndSwap(ctx context.Context, key string, old, value []byte) error
}

// Watcher 是可选的变更通知能力，值被写入后向通道发送一次信号
// ctx 结束后通道被关闭
type Watcher interface {
	Watch(ctx context.Context, key string) <-chan struct{}
}

// ETag 返回值的摘要，用于 HTTP 条件请求
func ETag(value []byte) string {
	sum := sha256.Sum256(value)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
