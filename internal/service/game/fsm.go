package game

import "fmt"

// StageHandler 处理某一阶段内允许的操作
// OnHandle 只修改传入的记录副本；阶段切换由 GameMachine 检测并依次调用 OnExit / OnEnter
type StageHandler interface {
	Stage() Phase

	OnEnter(rec *Record, rt Runtime)
	OnHandle(rec *Record, rt Runtime, act Action) error
	OnExit(rec *Record, rt Runtime)
}

// GameMachine 是无状态的规则引擎：输入当前记录和一次操作，输出下一份记录
type GameMachine struct {
	rt       Runtime
	handlers map[Phase]StageHandler
}

func NewGameMachine(rt Runtime) *GameMachine {
	gm := &GameMachine{
		rt:       rt,
		handlers: make(map[Phase]StageHandler),
	}

	for _, h := range []StageHandler{
		NewLobbyStageHandler(),
		NewClueStageHandler(),
		NewDiscussionStageHandler(),
		NewVoteStageHandler(),
		NewRoundResultStageHandler(),
		NewRevealStageHandler(),
	} {
		gm.handlers[h.Stage()] = h
	}

	return gm
}

func (gm *GameMachine) Runtime() Runtime {
	return gm.rt
}

// Create 生成新房间的初始记录
func (gm *GameMachine) Create(roomCode string, host Player) *Record {
	return NewRecord(gm.rt, roomCode, host)
}

// Apply 在 cur 的副本上执行一次操作并返回结果，cur 本身不会被修改
// 返回 ErrNoChange 时表示无需写回
func (gm *GameMachine) Apply(cur *Record, act Action) (*Record, error) {
	if cur == nil {
		return nil, ErrNotFound
	}

	rec := cur.Clone()
	rec.Normalize()

	handler, ok := gm.handlers[rec.Phase]
	if !ok {
		return nil, fmt.Errorf("%w: 未知的游戏阶段 %q", ErrInvalidPhase, rec.Phase)
	}

	before := rec.Phase

	if err := handler.OnHandle(rec, gm.rt, act); err != nil {
		return nil, err
	}

	rec.EnsureHost()

	if rec.Phase != before {
		gm.switchStage(rec, handler)
	}

	return rec, nil
}

func (gm *GameMachine) switchStage(rec *Record, prev StageHandler) {
	prev.OnExit(rec, gm.rt)

	next, ok := gm.handlers[rec.Phase]
	if !ok {
		return
	}

	next.OnEnter(rec, gm.rt)
}
