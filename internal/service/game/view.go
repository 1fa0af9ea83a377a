package game

import "time"

type PlayerState struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IsHost       bool   `json:"is_host"`
	IsEliminated bool   `json:"is_eliminated"`
	HasClue      bool   `json:"has_clue"`
	HasVoted     bool   `json:"has_voted"`
	// 仅在揭晓阶段或玩家本人时有意义
	IsImpostor bool `json:"is_impostor,omitempty"`
}

// PlayerView 是返回给某个玩家客户端的记录投影
// 游戏进行中，内鬼的视图里永远不会出现词语
type PlayerView struct {
	RoomCode string        `json:"room_code"`
	Phase    Phase         `json:"phase"`
	HostID   string        `json:"host_id"`
	Players  []PlayerState `json:"players"`
	Settings Settings      `json:"settings"`

	SelfID         string `json:"self_id"`
	SelfIsHost     bool   `json:"self_is_host"`
	SelfIsImpostor bool   `json:"self_is_impostor"`
	SelfEliminated bool   `json:"self_eliminated"`
	SecretWord     string `json:"secret_word,omitempty"`

	Round         int            `json:"round"`
	CurrentTurnID string         `json:"current_turn_id,omitempty"`
	Clues         []Clue         `json:"clues"`
	VotesAllowed  int            `json:"votes_allowed"`
	MyVotes       []string       `json:"my_votes"`
	VoteCounts    map[string]int `json:"vote_counts"`
	// 回合结果及之后才公开具体投票
	Votes map[string][]string `json:"votes,omitempty"`

	EliminatedIDs    []string     `json:"eliminated_ids"`
	LastEliminatedID string       `json:"last_eliminated_id,omitempty"`
	Winner           Team         `json:"winner"`
	ImpostorIDs      []string     `json:"impostor_ids,omitempty"`
	ClueHistory      []RoundClues `json:"clue_history,omitempty"`

	TurnDeadline  int64 `json:"turn_deadline,omitempty"`
	PhaseDeadline int64 `json:"phase_deadline,omitempty"`
	Version       int64 `json:"version"`
}

// ViewFor 生成 playerID 可以看到的视图
func ViewFor(rec *Record, playerID string) PlayerView {
	revealed := rec.Phase == PHASE_REVEAL
	selfImpostor := rec.IsImpostor(playerID)

	view := PlayerView{
		RoomCode:       rec.RoomCode,
		Phase:          rec.Phase,
		HostID:         rec.HostID,
		Players:        make([]PlayerState, 0, len(rec.Players)),
		Settings:       rec.Settings,
		SelfID:         playerID,
		SelfIsHost:     rec.IsHost(playerID),
		SelfIsImpostor: selfImpostor,
		SelfEliminated: rec.IsEliminated(playerID),
		Round:          rec.Round,
		Clues:          append(make([]Clue, 0, len(rec.Clues)), rec.Clues...),
		MyVotes:        append(make([]string, 0), rec.Votes[playerID]...),
		VoteCounts:     TallyVotes(rec.Votes),
		EliminatedIDs:  append(make([]string, 0), rec.EliminatedIDs...),
		Winner:         rec.Winner,
		Version:        rec.Version,
	}

	if rec.Phase != PHASE_LOBBY && (revealed || !selfImpostor) {
		view.SecretWord = rec.SecretWord
	}

	for _, p := range rec.Players {
		view.Players = append(view.Players, PlayerState{
			ID:           p.ID,
			Name:         p.Name,
			IsHost:       rec.IsHost(p.ID),
			IsEliminated: rec.IsEliminated(p.ID),
			HasClue:      rec.HasClue(p.ID),
			HasVoted:     rec.Phase == PHASE_VOTING && rec.HasFullyVoted(p.ID),
			IsImpostor:   rec.IsImpostor(p.ID) && (revealed || p.ID == playerID),
		})
	}

	if rec.Phase == PHASE_CLUE {
		if holder, ok := rec.CurrentTurn(); ok {
			view.CurrentTurnID = holder.ID
		}

		if deadline, ok := TurnDeadline(rec); ok {
			view.TurnDeadline = deadline.UnixMilli()
		}
	}

	if rec.Phase == PHASE_VOTING {
		view.VotesAllowed = rec.VotesAllowed()
	}

	if deadline := PhaseDeadline(rec); !deadline.IsZero() {
		view.PhaseDeadline = deadline.UnixMilli()
	}

	if rec.Phase == PHASE_ROUND_RESULT || revealed {
		view.Votes = rec.Clone().Votes
		view.LastEliminatedID = string(rec.LastEliminatedID)
	}

	if revealed {
		view.ImpostorIDs = append(make([]string, 0), rec.ImpostorIDs...)
		view.ClueHistory = rec.Clone().ClueHistory
	}

	return view
}

// TimeLeft 返回当前阶段剩余的秒数，用于展示倒计时
func (pv PlayerView) TimeLeft(now time.Time) int {
	switch {
	case pv.TurnDeadline > 0:
		return Remaining(time.UnixMilli(pv.TurnDeadline), now)
	case pv.PhaseDeadline > 0:
		return Remaining(time.UnixMilli(pv.PhaseDeadline), now)
	}

	return 0
}
