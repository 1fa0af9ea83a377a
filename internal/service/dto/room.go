package dto

import "impostor-be/internal/service/game"

// PlayerID 可以为空，为空时由服务端生成
type CreateRoomRequest struct {
	PlayerID    string `json:"player_id"`
	CreatorName string `json:"creator_name"`
}

type CreateRoomResponse struct {
	RoomCode string          `json:"room_code"`
	Creator  Player          `json:"creator"`
	View     game.PlayerView `json:"view"`
}

// 已经在房间里的玩家再次加入视为重连，无论游戏处于什么阶段都返回当前状态
type JoinRoomRequest struct {
	PlayerID   string `json:"player_id"`
	JoinerName string `json:"joiner_name"`
}

type JoinRoomResponse struct {
	RoomCode string          `json:"room_code"`
	Joiner   Player          `json:"joiner"`
	View     game.PlayerView `json:"view"`
}
