package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const MAX_VALUE_SIZE = 1 << 20

// RemoteStore 通过另一个服务实例的 /api/v1/kv 接口读写共享记录
// 条件写入使用 If-Match / If-None-Match 头，摘要由 ETag 计算
type RemoteStore struct {
	baseURL string
	client  *http.Client
}

func NewRemoteStore(baseURL string, timeout time.Duration) *RemoteStore {
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (rs *RemoteStore) keyURL(key string) string {
	return rs.baseURL + "/api/v1/kv/" + url.PathEscape(key)
}

func (rs *RemoteStore) Get(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rs.keyURL(key), nil)
	if err != nil {
		return nil, err
	}

	resp, err := rs.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求远程存储失败: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(io.LimitReader(resp.Body, MAX_VALUE_SIZE))
	case http.StatusNotFound:
		return nil, ErrNotFound
	}

	return nil, fmt.Errorf("远程存储返回 %s", resp.Status)
}

func (rs *RemoteStore) Set(ctx context.Context, key string, value []byte) error {
	return rs.put(ctx, key, value, nil)
}

func (rs *RemoteStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) error {
	header := http.Header{}
	if old == nil {
		header.Set("If-None-Match", "*")
	} else {
		header.Set("If-Match", ETag(old))
	}

	return rs.put(ctx, key, value, header)
}

func (rs *RemoteStore) put(ctx context.Context, key string, value []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rs.keyURL(key), bytes.NewReader(value))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := rs.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求远程存储失败: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusPreconditionFailed:
		return ErrConflict
	}

	return fmt.Errorf("远程存储返回 %s", resp.Status)
}
