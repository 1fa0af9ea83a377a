package service

import (
	"context"
	"time"

	"impostor-be/internal/service/dto"
	"impostor-be/internal/service/game"
)

const (
	MAX_APPLY_ATTEMPTS  = 5
	MAX_CREATE_ATTEMPTS = 8
)

// Cleaner 是可以主动清理过期记录的存储，例如 PostgresStore
type Cleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

func toPlayerDTO(rec *game.Record, p game.Player) dto.Player {
	return dto.Player{
		ID:     p.ID,
		Name:   p.Name,
		IsHost: rec.IsHost(p.ID),
	}
}

// retryDelay 冲突后短暂退避，避免多个客户端同时重试
func retryDelay(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 10 * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
