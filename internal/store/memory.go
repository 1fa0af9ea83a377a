package store

import (
	"bytes"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore 是进程内的存储实现，键在最后一次写入 ttl 之后过期
type MemoryStore struct {
	mu sync.RWMutex

	entries  map[string]memoryEntry
	watchers map[string]map[chan struct{}]struct{}

	ttl time.Duration
	now func() time.Time

	cleanUpDone chan struct{}
	closeOnce   sync.Once
}

type MemoryOption func(*MemoryStore)

// WithClock 替换时间来源，测试中使用
func WithClock(now func() time.Time) MemoryOption {
	return func(ms *MemoryStore) {
		ms.now = now
	}
}

// NewMemoryStore 创建存储并启动定期清理过期键的 goroutine
// ttl <= 0 表示永不过期，此时不启动清理
func NewMemoryStore(ttl, cleanupInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	ms := &MemoryStore{
		entries:     make(map[string]memoryEntry),
		watchers:    make(map[string]map[chan struct{}]struct{}),
		ttl:         ttl,
		now:         time.Now,
		cleanUpDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ttl > 0 && cleanupInterval > 0 {
		go ms.startCleanupLoop(cleanupInterval)
	}

	return ms
}

func (ms *MemoryStore) startCleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.cleanUpDone:
			return

		case <-ticker.C:
			if n := ms.sweep(); n > 0 {
				zap.S().Infof("清理了 %d 个过期的键", n)
			}
		}
	}
}

// sweep 删除所有过期的键，返回删除的数量
func (ms *MemoryStore) sweep() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	removed := 0

	for key, entry := range ms.entries {
		if ms.expired(entry, now) {
			zap.S().Debugf("键 %s 已过期", key)

			delete(ms.entries, key)
			removed++
		}
	}

	return removed
}

func (ms *MemoryStore) expired(entry memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}

func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() {
		close(ms.cleanUpDone)
	})
}

func (ms *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entry, ok := ms.entries[key]
	if !ok || ms.expired(entry, ms.now()) {
		return nil, ErrNotFound
	}

	return bytes.Clone(entry.value), nil
}

func (ms *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.put(key, value)

	return nil
}

func (ms *MemoryStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.entries[key]
	if ok && ms.expired(entry, ms.now()) {
		ok = false
	}

	switch {
	case old == nil && ok:
		return ErrConflict
	case old != nil && (!ok || !bytes.Equal(entry.value, old)):
		return ErrConflict
	}

	ms.put(key, value)

	return nil
}

// put 需要持有写锁
func (ms *MemoryStore) put(key string, value []byte) {
	entry := memoryEntry{value: bytes.Clone(value)}
	if ms.ttl > 0 {
		entry.expiresAt = ms.now().Add(ms.ttl)
	}

	ms.entries[key] = entry

	for ch := range ms.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
			// 已有未读的通知
		}
	}
}

func (ms *MemoryStore) Watch(ctx context.Context, key string) <-chan struct{} {
	ch := make(chan struct{}, 1)

	ms.mu.Lock()
	if ms.watchers[key] == nil {
		ms.watchers[key] = make(map[chan struct{}]struct{})
	}
	ms.watchers[key][ch] = struct{}{}
	ms.mu.Unlock()

	go func() {
		<-ctx.Done()

		ms.mu.Lock()
		delete(ms.watchers[key], ch)
		if len(ms.watchers[key]) == 0 {
			delete(ms.watchers, key)
		}
		ms.mu.Unlock()

		close(ch)
	}()

	return ch
}
