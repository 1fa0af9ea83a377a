package game

// Action 是一次玩家操作，由 GameMachine 按当前阶段分发处理
type Action interface {
	ReqType() string
}

type JoinGameRequest struct {
	PlayerID   string `json:"player_id"`
	JoinerName string `json:"joiner_name"`
}

type UpdateSettingsRequest struct {
	ActorID string        `json:"actor_id"`
	Patch   SettingsPatch `json:"patch"`
}

type KickPlayerRequest struct {
	ActorID  string `json:"actor_id"`
	TargetID string `json:"target_id"`
}

type StartGameRequest struct {
	StartPlayerID string `json:"start_player_id"`
}

type SubmitClueRequest struct {
	PlayerID string `json:"player_id"`
	Clue     string `json:"clue"`
}

type SkipTurnRequest struct {
	ActorID  string `json:"actor_id"`
	TargetID string `json:"target_id"`
}

type EndDiscussionRequest struct {
	ActorID string `json:"actor_id"`
}

type VoteRequest struct {
	VoterID   string   `json:"voter_id"`
	TargetIDs []string `json:"target_ids"`
}

type ForceEndVotingRequest struct {
	ActorID string `json:"actor_id"`
}

type NextRoundRequest struct {
	ActorID string `json:"actor_id"`
}

type PlayAgainRequest struct {
	ActorID string `json:"actor_id"`
}

type BackToLobbyRequest struct {
	ActorID string `json:"actor_id"`
}

// LeaveGameRequest 是玩家主动离开房间，与踢出不同，离开者之后仍可重新加入
type LeaveGameRequest struct {
	PlayerID string `json:"player_id"`
}

// MigrateHostRequest 由客户端同步层在发现房主已不在名单中时发出
type MigrateHostRequest struct{}

func (JoinGameRequest) ReqType() string       { return REQ_JOIN_GAME }
func (UpdateSettingsRequest) ReqType() string { return REQ_UPDATE_SETTINGS }
func (KickPlayerRequest) ReqType() string     { return REQ_KICK_PLAYER }
func (StartGameRequest) ReqType() string      { return REQ_START_GAME }
func (SubmitClueRequest) ReqType() string     { return REQ_SUBMIT_CLUE }
func (SkipTurnRequest) ReqType() string       { return REQ_SKIP_TURN }
func (EndDiscussionRequest) ReqType() string  { return REQ_END_DISCUSSION }
func (VoteRequest) ReqType() string           { return REQ_VOTE }
func (ForceEndVotingRequest) ReqType() string { return REQ_FORCE_END_VOTING }
func (NextRoundRequest) ReqType() string      { return REQ_NEXT_ROUND }
func (PlayAgainRequest) ReqType() string      { return REQ_PLAY_AGAIN }
func (BackToLobbyRequest) ReqType() string    { return REQ_BACK_TO_LOBBY }
func (LeaveGameRequest) ReqType() string      { return REQ_LEAVE_GAME }
func (MigrateHostRequest) ReqType() string    { return REQ_MIGRATE_HOST }

// WithActor 把操作中的操作者字段改为已确认身份的玩家
// 来自 HTTP / WebSocket 的请求必须经过这一步，载荷里的操作者 ID 不可信
func WithActor(act Action, playerID string) Action {
	switch a := act.(type) {
	case JoinGameRequest:
		a.PlayerID = playerID
		return a
	case UpdateSettingsRequest:
		a.ActorID = playerID
		return a
	case KickPlayerRequest:
		a.ActorID = playerID
		return a
	case StartGameRequest:
		a.StartPlayerID = playerID
		return a
	case SubmitClueRequest:
		a.PlayerID = playerID
		return a
	case SkipTurnRequest:
		a.ActorID = playerID
		return a
	case EndDiscussionRequest:
		a.ActorID = playerID
		return a
	case VoteRequest:
		a.VoterID = playerID
		return a
	case ForceEndVotingRequest:
		a.ActorID = playerID
		return a
	case NextRoundRequest:
		a.ActorID = playerID
		return a
	case PlayAgainRequest:
		a.ActorID = playerID
		return a
	case BackToLobbyRequest:
		a.ActorID = playerID
		return a
	case LeaveGameRequest:
		a.PlayerID = playerID
		return a
	}

	return act
}
