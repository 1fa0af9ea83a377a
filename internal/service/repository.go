package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"impostor-be/internal/service/game"
	"impostor-be/internal/store"
)

const ROOM_KEY_PREFIX = "impostor:"

// ErrVersionConflict 表示在读取之后有其他客户端写入了同一个房间
var ErrVersionConflict = errors.New("房间记录已被其他客户端修改")

func RoomKey(roomCode string) string {
	return ROOM_KEY_PREFIX + roomCode
}

// GameRepository 负责游戏记录的编解码和条件写入
type GameRepository struct {
	store store.Store
	now   func() time.Time
}

func NewGameRepository(st store.Store) *GameRepository {
	return &GameRepository{
		store: st,
		now:   time.Now,
	}
}

func (gr *GameRepository) Store() store.Store {
	return gr.store
}

// Load 读取房间记录，同时返回原始字节，写回时用于条件比较
func (gr *GameRepository) Load(ctx context.Context, roomCode string) (*game.Record, []byte, error) {
	raw, err := gr.store.Get(ctx, RoomKey(roomCode))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, game.ErrNotFound
		}

		return nil, nil, fmt.Errorf("%w: %w", game.ErrPersistence, err)
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, nil, err
	}

	return rec, raw, nil
}

func decodeRecord(raw []byte) (*game.Record, error) {
	var rec game.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: 无法解析房间记录: %w", game.ErrPersistence, err)
	}

	rec.Normalize()

	return &rec, nil
}

// Save 写回记录，prev 为 Load 得到的原始字节，新建房间时为 nil
// 存储支持条件写入时使用 CompareAndSwap，否则在写入前重新读取并比较版本号
func (gr *GameRepository) Save(ctx context.Context, rec *game.Record, prev []byte) ([]byte, error) {
	rec.ServerTimestamp = gr.now().UnixMilli()

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法编码房间记录: %w", game.ErrPersistence, err)
	}

	key := RoomKey(rec.RoomCode)

	if swapper, ok := gr.store.(store.Swapper); ok {
		if err := swapper.CompareAndSwap(ctx, key, prev, raw); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return nil, ErrVersionConflict
			}

			return nil, fmt.Errorf("%w: %w", game.ErrPersistence, err)
		}

		return raw, nil
	}

	if err := gr.checkUnchanged(ctx, key, prev); err != nil {
		return nil, err
	}

	if err := gr.store.Set(ctx, key, raw); err != nil {
		return nil, fmt.Errorf("%w: %w", game.ErrPersistence, err)
	}

	return raw, nil
}

// checkUnchanged 在不支持条件写入的存储上尽量缩小竞争窗口
// 读到的版本与 prev 不同就放弃本次写入，两次操作之间仍可能被覆盖
func (gr *GameRepository) checkUnchanged(ctx context.Context, key string, prev []byte) error {
	cur, err := gr.store.Get(ctx, key)

	switch {
	case errors.Is(err, store.ErrNotFound):
		if prev != nil {
			return ErrVersionConflict
		}
		return nil

	case err != nil:
		return fmt.Errorf("%w: %w", game.ErrPersistence, err)

	case prev == nil:
		return ErrVersionConflict

	case bytes.Equal(cur, prev):
		return nil
	}

	curRec, err := decodeRecord(cur)
	if err != nil {
		return err
	}

	prevRec, err := decodeRecord(prev)
	if err != nil {
		return err
	}

	if curRec.Version != prevRec.Version {
		return ErrVersionConflict
	}

	return nil
}
