package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"impostor-be/internal/service/game"

	"go.uber.org/zap"
)

type EventType int

const (
	EventUpdate EventType = iota
	EventKicked
	EventRoomGone
)

func (et EventType) String() string {
	switch et {
	case EventUpdate:
		return "update"
	case EventKicked:
		return "kicked"
	case EventRoomGone:
		return "room_gone"
	}

	return "unknown"
}

type Event struct {
	Type EventType
	// 仅 EventUpdate 携带
	View game.PlayerView
}

// Source 是轮询读取和写回记录的对象，*service.RoomService 满足该接口
type Source interface {
	Get(ctx context.Context, roomCode string) (*game.Record, error)
	Apply(ctx context.Context, roomCode string, act game.Action) (*game.Record, error)
}

// Poller 以固定间隔拉取房间记录，负责房主迁移和该玩家应触发的超时
type Poller struct {
	src      Source
	roomCode string
	playerID string
	interval time.Duration
	clock    *Clock

	events chan Event

	lastVersion int64
	lastRaw     []byte
}

func NewPoller(src Source, roomCode, playerID string, interval time.Duration, clock *Clock) *Poller {
	if clock == nil {
		clock = NewClock()
	}

	return &Poller{
		src:         src,
		roomCode:    roomCode,
		playerID:    playerID,
		interval:    interval,
		clock:       clock,
		events:      make(chan Event, 16),
		lastVersion: -1,
	}
}

// Events 在 Run 返回后关闭
func (p *Poller) Events() <-chan Event {
	return p.events
}

// Run 阻塞直到 ctx 结束、玩家被移出或房间消失
func (p *Poller) Run(ctx context.Context) {
	defer close(p.events)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if stop := p.tick(ctx); stop {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) emit(ctx context.Context, ev Event) bool {
	select {
	case p.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// tick 执行一次同步，返回 true 表示应停止轮询
func (p *Poller) tick(ctx context.Context) bool {
	sentAt := time.Now()
	rec, err := p.src.Get(ctx, p.roomCode)
	receivedAt := time.Now()

	switch {
	case errors.Is(err, game.ErrNotFound):
		p.emit(ctx, Event{Type: EventRoomGone})
		return true

	case err != nil:
		if ctx.Err() != nil {
			return true
		}

		// 读取失败时保持当前视图，下次继续
		zap.L().Warn("Poll failed", zap.String("room_code", p.roomCode), zap.Error(err))
		return false
	}

	p.clock.Observe(rec.ServerTimestamp, sentAt, receivedAt)

	if !rec.HasPlayer(p.playerID) {
		p.emit(ctx, Event{Type: EventKicked})
		return true
	}

	// 房主已不在名单中时由任意成员补选
	if !rec.HasPlayer(rec.HostID) {
		if next, err := p.src.Apply(ctx, p.roomCode, game.MigrateHostRequest{}); err == nil {
			rec = next
		} else {
			zap.L().Debug("Host migration failed", zap.String("room_code", p.roomCode), zap.Error(err))
		}
	}

	if act := game.DueTimeout(rec, p.playerID, p.clock.Now()); act != nil {
		next, err := p.src.Apply(ctx, p.roomCode, act)
		if err == nil {
			rec = next
		} else if game.Classify(err) == game.CLASS_PERSISTENCE {
			zap.L().Warn(
				"Timeout transition failed",
				zap.String("room_code", p.roomCode),
				zap.String("request_type", act.ReqType()),
				zap.Error(err),
			)
		}
	}

	if !p.changed(rec) {
		return false
	}

	return !p.emit(ctx, Event{Type: EventUpdate, View: game.ViewFor(rec, p.playerID)})
}

// changed 比较版本号与记录内容，serverTimestamp 不参与比较
func (p *Poller) changed(rec *game.Record) bool {
	snapshot := rec.Clone()
	snapshot.ServerTimestamp = 0

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return rec.Version != p.lastVersion
	}

	if rec.Version == p.lastVersion && bytes.Equal(raw, p.lastRaw) {
		return false
	}

	p.lastVersion = rec.Version
	p.lastRaw = raw

	return true
}
