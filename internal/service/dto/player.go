package dto

// 房间内玩家的身份信息，客户端需要保存 ID 以便重连
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
}
