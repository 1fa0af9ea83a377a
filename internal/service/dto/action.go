package dto

import (
	"encoding/json"

	"impostor-be/internal/service/game"
)

// ActionRequest 是客户端提交的一次操作
// PlayerID 表示操作者，会覆盖 Data 中的操作者字段，并用于生成返回的视图
type ActionRequest struct {
	PlayerID    string          `json:"player_id"`
	RequestType string          `json:"request_type"`
	Data        json.RawMessage `json:"data"`
}

func (ar ActionRequest) Wrapper() game.RequestWrapper {
	return game.RequestWrapper{
		ReqType: ar.RequestType,
		Data:    ar.Data,
	}
}

type ActionResponse struct {
	View game.PlayerView `json:"view"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Class string `json:"class"`
}
