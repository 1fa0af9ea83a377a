package game

import "encoding/json"

// 游戏阶段
//  1. 大厅（lobby）：玩家加入房间，房主调整设置
//  2. 线索（clue）：存活玩家按名单顺序轮流给出一个词
//  3. 讨论（discussion）：所有线索公开后自由讨论
//  4. 投票（voting）：存活玩家投票，选出怀疑的内鬼
//  5. 回合结果（round_result）：展示淘汰结果，房主进入下一轮
//  6. 揭晓（reveal）：游戏结束，公布内鬼与所有线索
type Phase string

const (
	PHASE_LOBBY        Phase = "lobby"
	PHASE_CLUE         Phase = "clue"
	PHASE_DISCUSSION   Phase = "discussion"
	PHASE_VOTING       Phase = "voting"
	PHASE_ROUND_RESULT Phase = "round_result"
	PHASE_REVEAL       Phase = "reveal"
)

// IsActive 表示一局游戏正在进行中（既不在大厅也未揭晓）
func (p Phase) IsActive() bool {
	switch p {
	case PHASE_CLUE, PHASE_DISCUSSION, PHASE_VOTING, PHASE_ROUND_RESULT:
		return true
	}

	return false
}

// 胜利方，空字符串表示尚未分出胜负，序列化为 null
type Team string

const (
	TEAM_NONE     Team = ""
	TEAM_CREW     Team = "crew"
	TEAM_IMPOSTOR Team = "impostor"
)

func (t Team) MarshalJSON() ([]byte, error) {
	if t == TEAM_NONE {
		return []byte("null"), nil
	}

	return json.Marshal(string(t))
}

func (t *Team) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = TEAM_NONE
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*t = Team(s)

	return nil
}

// 可为空的玩家 ID，空字符串序列化为 null
type OptionalID string

func (id OptionalID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}

	return json.Marshal(string(id))
}

func (id *OptionalID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*id = OptionalID(s)

	return nil
}

const (
	MIN_PLAYERS = 3
	MAX_PLAYERS = 20

	MAX_CLUE_LENGTH = 20

	// 超时跳过时写入的线索，包含空格，玩家无法手动提交同样的内容
	CLUE_SKIPPED = "(no clue)"
)

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Clue struct {
	PlayerID string `json:"playerId"`
	Clue     string `json:"clue"`
}

// RoundClues 是某一轮结束时的线索快照，仅在揭晓阶段展示
type RoundClues struct {
	Round int    `json:"round"`
	Word  string `json:"word"`
	Clues []Clue `json:"clues"`
}

// Record 是每个房间唯一的共享文档，所有客户端读写同一份
// 时间字段均为 Unix 毫秒，LastEliminatedID 为空（null）表示本轮无人出局
type Record struct {
	RoomCode         string              `json:"roomCode"`
	HostID           string              `json:"hostId"`
	Players          []Player            `json:"players"`
	KickedPlayerIDs  []string            `json:"kickedPlayerIds"`
	Settings         Settings            `json:"settings"`
	Phase            Phase               `json:"phase"`
	SecretWord       string              `json:"secretWord"`
	ImpostorIDs      []string            `json:"impostorIds"`
	Clues            []Clue              `json:"clues"`
	ClueHistory      []RoundClues        `json:"clueHistory"`
	Votes            map[string][]string `json:"votes"`
	EliminatedIDs    []string            `json:"eliminatedIds"`
	LastEliminatedID OptionalID          `json:"lastEliminatedId"`
	Round            int                 `json:"round"`
	Winner           Team                `json:"winner"`
	TurnStartTime    int64               `json:"turnStartTime"`
	PhaseStartTime   int64               `json:"phaseStartTime"`
	VoteSeed         int64               `json:"voteSeed"`
	Version          int64               `json:"version"`
	ServerTimestamp  int64               `json:"serverTimestamp"`
	CreatedAt        int64               `json:"createdAt"`
}

// NewRecord 创建一个处于大厅阶段的新房间，创建者即房主
func NewRecord(rt Runtime, roomCode string, host Player) *Record {
	now := rt.nowMillis()

	return &Record{
		RoomCode:        roomCode,
		HostID:          host.ID,
		Players:         []Player{host},
		KickedPlayerIDs: make([]string, 0),
		Settings:        DefaultSettings(),
		Phase:           PHASE_LOBBY,
		ImpostorIDs:     make([]string, 0),
		Clues:           make([]Clue, 0),
		ClueHistory:     make([]RoundClues, 0),
		Votes:           make(map[string][]string),
		EliminatedIDs:   make([]string, 0),
		PhaseStartTime:  now,
		CreatedAt:       now,
	}
}

// Clone 深拷贝记录，状态转换只在副本上进行
func (r *Record) Clone() *Record {
	cp := *r

	cp.Players = append([]Player(nil), r.Players...)
	cp.KickedPlayerIDs = append([]string(nil), r.KickedPlayerIDs...)
	cp.ImpostorIDs = append([]string(nil), r.ImpostorIDs...)
	cp.Clues = append([]Clue(nil), r.Clues...)
	cp.EliminatedIDs = append([]string(nil), r.EliminatedIDs...)

	cp.ClueHistory = make([]RoundClues, 0, len(r.ClueHistory))
	for _, h := range r.ClueHistory {
		h.Clues = append([]Clue(nil), h.Clues...)
		cp.ClueHistory = append(cp.ClueHistory, h)
	}

	cp.Votes = make(map[string][]string, len(r.Votes))
	for voter, targets := range r.Votes {
		cp.Votes[voter] = append([]string(nil), targets...)
	}

	return &cp
}

// Normalize 补齐反序列化后可能为 nil 的集合字段
func (r *Record) Normalize() {
	if r.Players == nil {
		r.Players = make([]Player, 0)
	}
	if r.KickedPlayerIDs == nil {
		r.KickedPlayerIDs = make([]string, 0)
	}
	if r.ImpostorIDs == nil {
		r.ImpostorIDs = make([]string, 0)
	}
	if r.Clues == nil {
		r.Clues = make([]Clue, 0)
	}
	if r.ClueHistory == nil {
		r.ClueHistory = make([]RoundClues, 0)
	}
	if r.Votes == nil {
		r.Votes = make(map[string][]string)
	}
	if r.EliminatedIDs == nil {
		r.EliminatedIDs = make([]string, 0)
	}
}

func (r *Record) GetPlayer(id string) (Player, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}

	return Player{}, false
}

func (r *Record) HasPlayer(id string) bool {
	_, ok := r.GetPlayer(id)
	return ok
}

func (r *Record) IsHost(id string) bool {
	return id != "" && r.HostID == id
}

func (r *Record) IsKicked(id string) bool {
	return contains(r.KickedPlayerIDs, id)
}

func (r *Record) IsImpostor(id string) bool {
	return contains(r.ImpostorIDs, id)
}

func (r *Record) IsEliminated(id string) bool {
	return contains(r.EliminatedIDs, id)
}

func (r *Record) IsAlive(id string) bool {
	return r.HasPlayer(id) && !r.IsEliminated(id)
}

func (r *Record) GetAlivePlayers() []Player {
	alive := make([]Player, 0, len(r.Players))
	for _, p := range r.Players {
		if !r.IsEliminated(p.ID) {
			alive = append(alive, p)
		}
	}

	return alive
}

func (r *Record) CountAlive() int {
	return len(r.GetAlivePlayers())
}

func (r *Record) HasClue(id string) bool {
	for _, c := range r.Clues {
		if c.PlayerID == id {
			return true
		}
	}

	return false
}

// CurrentTurn 返回按名单顺序第一个尚未给出线索的存活玩家
func (r *Record) CurrentTurn() (Player, bool) {
	for _, p := range r.Players {
		if r.IsEliminated(p.ID) || r.HasClue(p.ID) {
			continue
		}

		return p, true
	}

	return Player{}, false
}

// AllCluesIn 表示每个存活玩家本轮都已给出线索
func (r *Record) AllCluesIn() bool {
	_, pending := r.CurrentTurn()
	return !pending
}

// VotesAllowed 返回每名玩家本轮可投的票数，按当前存活人数钳制
func (r *Record) VotesAllowed() int {
	return clamp(r.Settings.VotesPerPlayer, 1, max(1, (r.CountAlive()-1)/2))
}

func (r *Record) HasFullyVoted(id string) bool {
	return len(r.Votes[id]) >= r.VotesAllowed()
}

// AllVotesIn 表示每个存活玩家都已投满票
func (r *Record) AllVotesIn() bool {
	for _, p := range r.GetAlivePlayers() {
		if !r.HasFullyVoted(p.ID) {
			return false
		}
	}

	return true
}

// EnsureHost 在房主不在玩家列表中时，把房主移交给第一个剩余玩家
// 返回是否发生了迁移
func (r *Record) EnsureHost() bool {
	if len(r.Players) == 0 {
		if r.HostID == "" {
			return false
		}

		r.HostID = ""
		return true
	}

	if r.HasPlayer(r.HostID) {
		return false
	}

	r.HostID = r.Players[0].ID

	return true
}
