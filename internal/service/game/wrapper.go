package game

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// 请求类型
const (
	REQ_JOIN_GAME        = "JoinGame"
	REQ_UPDATE_SETTINGS  = "UpdateSettings"
	REQ_KICK_PLAYER      = "KickPlayer"
	REQ_START_GAME       = "StartGame"
	REQ_SUBMIT_CLUE      = "SubmitClue"
	REQ_SKIP_TURN        = "SkipTurn"
	REQ_END_DISCUSSION   = "EndDiscussion"
	REQ_VOTE             = "Vote"
	REQ_FORCE_END_VOTING = "ForceEndVoting"
	REQ_NEXT_ROUND       = "NextRound"
	REQ_PLAY_AGAIN       = "PlayAgain"
	REQ_BACK_TO_LOBBY    = "BackToLobby"
	REQ_LEAVE_GAME       = "LeaveGame"
	REQ_MIGRATE_HOST     = "MigrateHost"
)

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`
}

// WrapRequest 把操作编码成可以通过 HTTP / WebSocket 传输的包装
func WrapRequest(act Action) (RequestWrapper, error) {
	data, err := json.Marshal(act)
	if err != nil {
		return RequestWrapper{}, fmt.Errorf("编码请求失败: %w", err)
	}

	return RequestWrapper{
		ReqType: act.ReqType(),
		Data:    data,
	}, nil
}

func tryUnwrap[T Action](wrapper RequestWrapper) (Action, error) {
	var req T

	if len(wrapper.Data) == 0 {
		return req, nil
	}

	if err := json.Unmarshal(wrapper.Data, &req); err != nil {
		zap.L().Debug(
			"Failed to unwrap request",
			zap.String("request_type", wrapper.ReqType),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s 请求数据无效", ErrUnknownAction, wrapper.ReqType)
	}

	return req, nil
}

// UnwrapRequest 按请求类型解码出对应的操作
func UnwrapRequest(wrapper RequestWrapper) (Action, error) {
	switch wrapper.ReqType {
	case REQ_JOIN_GAME:
		return tryUnwrap[JoinGameRequest](wrapper)
	case REQ_UPDATE_SETTINGS:
		return tryUnwrap[UpdateSettingsRequest](wrapper)
	case REQ_KICK_PLAYER:
		return tryUnwrap[KickPlayerRequest](wrapper)
	case REQ_START_GAME:
		return tryUnwrap[StartGameRequest](wrapper)
	case REQ_SUBMIT_CLUE:
		return tryUnwrap[SubmitClueRequest](wrapper)
	case REQ_SKIP_TURN:
		return tryUnwrap[SkipTurnRequest](wrapper)
	case REQ_END_DISCUSSION:
		return tryUnwrap[EndDiscussionRequest](wrapper)
	case REQ_VOTE:
		return tryUnwrap[VoteRequest](wrapper)
	case REQ_FORCE_END_VOTING:
		return tryUnwrap[ForceEndVotingRequest](wrapper)
	case REQ_NEXT_ROUND:
		return tryUnwrap[NextRoundRequest](wrapper)
	case REQ_PLAY_AGAIN:
		return tryUnwrap[PlayAgainRequest](wrapper)
	case REQ_BACK_TO_LOBBY:
		return tryUnwrap[BackToLobbyRequest](wrapper)
	case REQ_LEAVE_GAME:
		return tryUnwrap[LeaveGameRequest](wrapper)
	}

	// MigrateHost 只由同步层在本地构造，不接受外部请求
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, wrapper.ReqType)
}

// 响应类型
const (
	RESP_ERROR      = "Error"
	RESP_GAME_STATE = "GameState"
	RESP_KICKED     = "Kicked"
	RESP_ROOM_GONE  = "RoomGone"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data"`
	ErrMsg   string `json:"error_message,omitempty"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(errMsg string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   errMsg,
	}
}
