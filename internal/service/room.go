package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"impostor-be/internal/service/dto"
	"impostor-be/internal/service/game"

	"go.uber.org/zap"
)

// RoomService 在共享存储之上执行状态转换
// 每次操作都重新读取最新记录、在内存中完整计算后一次性写回
type RoomService struct {
	repo *GameRepository
	gm   *game.GameMachine

	cleanUpDone chan struct{}
	closeOnce   sync.Once
}

func NewRoomService(repo *GameRepository, gm *game.GameMachine, cleanupInterval time.Duration) *RoomService {
	rs := &RoomService{
		repo:        repo,
		gm:          gm,
		cleanUpDone: make(chan struct{}),
	}

	// 存储支持主动清理时，启动一个 goroutine 定期清理过期的房间
	if cleaner, ok := repo.Store().(Cleaner); ok && cleanupInterval > 0 {
		go rs.startCleanupLoop(cleaner, cleanupInterval)
	}

	return rs
}

func (rs *RoomService) startCleanupLoop(cleaner Cleaner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rs.cleanUpDone:
			return

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			removed, err := cleaner.Cleanup(ctx)
			cancel()

			if err != nil {
				zap.S().Warnf("清理过期房间失败：%v", err)
				continue
			}

			if removed > 0 {
				zap.S().Infof("清理了 %d 个过期房间", removed)
			}
		}
	}
}

func (rs *RoomService) Close() {
	rs.closeOnce.Do(func() {
		close(rs.cleanUpDone)
	})
}

func (rs *RoomService) Machine() *game.GameMachine {
	return rs.gm
}

func (rs *RoomService) CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (dto.CreateRoomResponse, error) {
	name := strings.TrimSpace(req.CreatorName)
	if name == "" {
		return dto.CreateRoomResponse{}, fmt.Errorf("%w: 创建者名称不能为空", game.ErrInvalidPlayer)
	}

	playerID := req.PlayerID
	if playerID == "" {
		playerID = game.GenPlayerID()
	}

	host := game.Player{ID: playerID, Name: name}

	// 房间码只有四位，撞上已有房间时换一个重试
	for range MAX_CREATE_ATTEMPTS {
		roomCode := game.GenRoomCode(rs.gm.Runtime())

		rec := rs.gm.Create(roomCode, host)
		rec.Version = 1

		_, err := rs.repo.Save(ctx, rec, nil)
		if errors.Is(err, ErrVersionConflict) {
			zap.S().Debugf("房间码 %s 已被占用，重新生成", roomCode)
			continue
		}

		if err != nil {
			zap.L().Warn("Failed to create room", zap.String("room_code", roomCode), zap.Error(err))
			return dto.CreateRoomResponse{}, fmt.Errorf("%w: %w", game.ErrCreation, err)
		}

		zap.S().Infof("房间 %s 由 %s 创建", roomCode, name)

		return dto.CreateRoomResponse{
			RoomCode: roomCode,
			Creator:  toPlayerDTO(rec, host),
			View:     game.ViewFor(rec, playerID),
		}, nil
	}

	return dto.CreateRoomResponse{}, fmt.Errorf("%w: 没有可用的房间码", game.ErrCreation)
}

func (rs *RoomService) JoinRoom(ctx context.Context, roomCode string, req dto.JoinRoomRequest) (dto.JoinRoomResponse, error) {
	code := game.NormalizeRoomCode(roomCode)
	if code == "" {
		return dto.JoinRoomResponse{}, game.ErrNotFound
	}

	if req.PlayerID == "" {
		req.PlayerID = game.GenPlayerID()
	}

	cur, _, err := rs.repo.Load(ctx, code)
	if err != nil {
		return dto.JoinRoomResponse{}, err
	}

	rec := cur

	// 重连的玩家直接拿到当前状态
	if !cur.HasPlayer(req.PlayerID) {
		zap.S().Debugf("房间 %s 收到加入请求：%s", code, req.JoinerName)

		rec, err = rs.Apply(ctx, code, game.JoinGameRequest{
			PlayerID:   req.PlayerID,
			JoinerName: req.JoinerName,
		})
		if err != nil {
			zap.S().Warnf("房间 %s 处理 %s 加入失败：%v", code, req.JoinerName, err)
			return dto.JoinRoomResponse{}, err
		}
	}

	joiner, ok := rec.GetPlayer(req.PlayerID)
	if !ok {
		return dto.JoinRoomResponse{}, fmt.Errorf("%w: 加入后不在房间中", game.ErrNotMember)
	}

	return dto.JoinRoomResponse{
		RoomCode: code,
		Joiner:   toPlayerDTO(rec, joiner),
		View:     game.ViewFor(rec, req.PlayerID),
	}, nil
}

// Get 返回房间当前的完整记录
func (rs *RoomService) Get(ctx context.Context, roomCode string) (*game.Record, error) {
	code := game.NormalizeRoomCode(roomCode)
	if code == "" {
		return nil, game.ErrNotFound
	}

	rec, _, err := rs.repo.Load(ctx, code)

	return rec, err
}

func (rs *RoomService) GetView(ctx context.Context, roomCode, playerID string) (game.PlayerView, error) {
	rec, err := rs.Get(ctx, roomCode)
	if err != nil {
		return game.PlayerView{}, err
	}

	return game.ViewFor(rec, playerID), nil
}

// Apply 对最新记录执行一次操作并写回，写入冲突时重新读取后重试
// 操作无需改动记录时返回当前记录，不产生写入
func (rs *RoomService) Apply(ctx context.Context, roomCode string, act game.Action) (*game.Record, error) {
	code := game.NormalizeRoomCode(roomCode)
	if code == "" {
		return nil, game.ErrNotFound
	}

	for attempt := range MAX_APPLY_ATTEMPTS {
		cur, raw, err := rs.repo.Load(ctx, code)
		if err != nil {
			return nil, err
		}

		next, err := rs.gm.Apply(cur, act)
		if errors.Is(err, game.ErrNoChange) {
			return cur, nil
		}
		if err != nil {
			return nil, err
		}

		next.Version = cur.Version + 1

		_, err = rs.repo.Save(ctx, next, raw)
		if errors.Is(err, ErrVersionConflict) {
			zap.L().Debug(
				"Room write conflict, retrying",
				zap.String("room_code", code),
				zap.String("request_type", act.ReqType()),
				zap.Int("attempt", attempt+1),
			)

			if err := sleepCtx(ctx, retryDelay(attempt+1)); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		zap.L().Info(
			"Room transition applied",
			zap.String("room_code", code),
			zap.String("request_type", act.ReqType()),
			zap.String("phase", string(next.Phase)),
			zap.Int64("version", next.Version),
		)

		if cur.Phase != next.Phase {
			zap.S().Infof("房间 %s 从 %s 阶段进入 %s 阶段", code, cur.Phase, next.Phase)
		}

		return next, nil
	}

	zap.S().Warnf("房间 %s 的 %s 操作多次写入冲突", code, act.ReqType())

	return nil, fmt.Errorf("%w: 重试 %d 次后仍然冲突", game.ErrPersistence, MAX_APPLY_ATTEMPTS)
}

// ApplyRequest 解码客户端发来的操作并以 req.PlayerID 的身份执行，返回操作者的视图
func (rs *RoomService) ApplyRequest(ctx context.Context, roomCode string, req dto.ActionRequest) (dto.ActionResponse, error) {
	act, err := game.UnwrapRequest(req.Wrapper())
	if err != nil {
		return dto.ActionResponse{}, err
	}

	act = game.WithActor(act, req.PlayerID)

	rec, err := rs.Apply(ctx, roomCode, act)
	if err != nil {
		return dto.ActionResponse{}, err
	}

	return dto.ActionResponse{View: game.ViewFor(rec, req.PlayerID)}, nil
}
