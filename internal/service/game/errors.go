package game

import "errors"

// 校验类错误：拒绝本次操作，共享记录不受影响
var (
	ErrEmptyInput        = errors.New("输入序列为空")
	ErrNotYourTurn       = errors.New("当前不是你的回合")
	ErrAlreadyEliminated = errors.New("你已被淘汰")
	ErrInvalidClue       = errors.New("线索不合法")
	ErrInvalidPhase      = errors.New("当前阶段不支持该操作")
	ErrNotHost           = errors.New("只有房主可以执行该操作")
	ErrNotMember         = errors.New("你不在该房间中")
	ErrNotEnoughPlayers  = errors.New("玩家数量不足")
	ErrUnknownAction     = errors.New("未知的操作类型")
	ErrInvalidPlayer     = errors.New("玩家信息无效")
)

// 状态类错误：以提示信息的形式展示给用户，创建或加入流程终止
var (
	ErrNotFound       = errors.New("房间不存在")
	ErrAlreadyStarted = errors.New("游戏已经开始")
	ErrBanned         = errors.New("你已被移出该房间")
	ErrRoomFull       = errors.New("房间已满")
)

// 持久化类错误：本地视图不前进，用户可以重试
var (
	ErrPersistence = errors.New("读写游戏记录失败")
	ErrCreation    = errors.New("创建房间失败")
)

// ErrNoChange 表示操作被接受但无需改动记录（重复提交、静默忽略等）
// 调用方应当当作成功处理并返回当前状态，而不是写回
var ErrNoChange = errors.New("记录无变化")

type ErrorClass string

const (
	CLASS_NONE        ErrorClass = ""
	CLASS_VALIDATION  ErrorClass = "validation"
	CLASS_STATE       ErrorClass = "state"
	CLASS_PERSISTENCE ErrorClass = "persistence"
	CLASS_INTERNAL    ErrorClass = "internal"
)

func Classify(err error) ErrorClass {
	switch {
	case err == nil, errors.Is(err, ErrNoChange):
		return CLASS_NONE

	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadyStarted),
		errors.Is(err, ErrBanned),
		errors.Is(err, ErrRoomFull):
		return CLASS_STATE

	case errors.Is(err, ErrPersistence),
		errors.Is(err, ErrCreation):
		return CLASS_PERSISTENCE

	case errors.Is(err, ErrEmptyInput),
		errors.Is(err, ErrNotYourTurn),
		errors.Is(err, ErrAlreadyEliminated),
		errors.Is(err, ErrInvalidClue),
		errors.Is(err, ErrInvalidPhase),
		errors.Is(err, ErrNotHost),
		errors.Is(err, ErrNotMember),
		errors.Is(err, ErrNotEnoughPlayers),
		errors.Is(err, ErrUnknownAction),
		errors.Is(err, ErrInvalidPlayer):
		return CLASS_VALIDATION
	}

	return CLASS_INTERNAL
}
