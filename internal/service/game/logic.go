package game

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MAX_NAME_LENGTH = 15

// 大厅阶段：加入、设置、踢人、开始游戏
type lobbyStageHandler struct{}

func NewLobbyStageHandler() *lobbyStageHandler {
	return &lobbyStageHandler{}
}

func (lsh *lobbyStageHandler) Stage() Phase {
	return PHASE_LOBBY
}

func (lsh *lobbyStageHandler) OnEnter(rec *Record, rt Runtime) {
	rec.PhaseStartTime = rt.nowMillis()
}

func (lsh *lobbyStageHandler) OnHandle(rec *Record, rt Runtime, act Action) error {
	if handled, err := handleCommon(rec, rt, act); handled {
		return err
	}

	if req, ok := act.(StartGameRequest); ok {
		if !rec.IsHost(req.StartPlayerID) {
			return fmt.Errorf("无法开始游戏: %w", ErrNotHost)
		}

		return dealNewGame(rec, rt)
	}

	return rejectLate(rec, act)
}

func (lsh *lobbyStageHandler) OnExit(rec *Record, rt Runtime) {
}

// 线索阶段：存活玩家按名单顺序依次给出线索
type clueStageHandler struct{}

func NewClueStageHandler() *clueStageHandler {
	return &clueStageHandler{}
}

func (csh *clueStageHandler) Stage() Phase {
	return PHASE_CLUE
}

func (csh *clueStageHandler) OnEnter(rec *Record, rt Runtime) {
	now := rt.nowMillis()
	rec.TurnStartTime = now
	rec.PhaseStartTime = now
}

func (csh *clueStageHandler) OnHandle(rec *Record, rt Runtime, act Action) error {
	if handled, err := handleCommon(rec, rt, act); handled {
		return err
	}

	switch req := act.(type) {
	case SubmitClueRequest:
		return onSubmitClue(rec, rt, req)
	case SkipTurnRequest:
		return onSkipTurn(rec, rt, req)
	}

	return rejectLate(rec, act)
}

func (csh *clueStageHandler) OnExit(rec *Record, rt Runtime) {
}

// 讨论阶段：只等待结束讨论
type discussionStageHandler struct{}

func NewDiscussionStageHandler() *discussionStageHandler {
	return &discussionStageHandler{}
}

func (dsh *discussionStageHandler) Stage() Phase {
	return PHASE_DISCUSSION
}

func (dsh *discussionStageHandler) OnEnter(rec *Record, rt Runtime) {
	rec.PhaseStartTime = rt.nowMillis()
}

func (dsh *discussionStageHandler) OnHandle(rec *Record, rt Runtime, act Action) error {
	if handled, err := handleCommon(rec, rt, act); handled {
		return err
	}

	if req, ok := act.(EndDiscussionRequest); ok {
		if !canForceTimeout(rec, rt, req.ActorID, PhaseDeadline(rec)) {
			return fmt.Errorf("无法结束讨论: %w", ErrNotHost)
		}

		rec.Phase = PHASE_VOTING

		return nil
	}

	return rejectLate(rec, act)
}

func (dsh *discussionStageHandler) OnExit(rec *Record, rt Runtime) {
}

// 投票阶段处理器
type voteStageHandler struct{}

func NewVoteStageHandler() *voteStageHandler {
	return &voteStageHandler{}
}

func (vsh *voteStageHandler) Stage() Phase {
	return PHASE_VOTING
}

func (vsh *voteStageHandler) OnEnter(rec *Record, rt Runtime) {
	rec.PhaseStartTime = rt.nowMillis()
	rec.VoteSeed = rt.seed()
	rec.Votes = make(map[string][]string)
}

func (vsh *voteStageHandler) OnHandle(rec *Record, rt Runtime, act Action) error {
	if handled, err := handleCommon(rec, rt, act); handled {
		return err
	}

	switch req := act.(type) {
	case VoteRequest:
		return onVote(rec, req)

	case ForceEndVotingRequest:
		if !canForceTimeout(rec, rt, req.ActorID, PhaseDeadline(rec)) {
			return fmt.Errorf("无法结束投票: %w", ErrNotHost)
		}

		resolveRound(rec)

		return nil
	}

	return rejectLate(rec, act)
}

func (vsh *voteStageHandler) OnExit(rec *Record, rt Runtime) {
}

// 回合结果阶段：房主确认后进入下一轮
type roundResultStageHandler struct{}

func NewRoundResultStageHandler() *roundResultStageHandler {
	return &roundResultStageHandler{}
}

func (rsh *roundResultStageHandler) Stage() Phase {
	return PHASE_ROUND_RESULT
}

func (rsh *roundResultStageHandler) OnEnter(rec *Record, rt Runtime) {
	rec.PhaseStartTime = rt.nowMillis()
}

func (rsh *roundResultStageHandler) OnHandle(rec *Record, rt Runtime, act Action) error {
	if handled, err := handleCommon(rec, rt, act); handled {
		return err
	}

	if req, ok := act.(NextRoundRequest); ok {
		if !rec.IsHost(req.ActorID) {
			return fmt.Errorf("无法进入下一轮: %w", ErrNotHost)
		}

		return onNextRound(rec, rt)
	}

	return rejectLate(rec, act)
}

func (rsh *roundResultStageHandler) OnExit(rec *Record, rt Runtime) {
}

// 揭晓阶段：终局，只能再来一局或回到大厅
type revealStageHandler struct{}

func NewRevealStageHandler() *revealStageHandler {
	return &revealStageHandler{}
}

func (rvh *revealStageHandler) Stage() Phase {
	return PHASE_REVEAL
}

func (rvh *revealStageHandler) OnEnter(rec *Record, rt Runtime) {
	rec.PhaseStartTime = rt.nowMillis()
	archiveClues(rec)
}

func (rvh *revealStageHandler) OnHandle(rec *Record, rt Runtime, act Action) error {
	if handled, err := handleCommon(rec, rt, act); handled {
		return err
	}

	switch req := act.(type) {
	case PlayAgainRequest:
		if !rec.IsHost(req.ActorID) {
			return fmt.Errorf("无法再来一局: %w", ErrNotHost)
		}

		return dealNewGame(rec, rt)

	case BackToLobbyRequest:
		if !rec.IsHost(req.ActorID) {
			return fmt.Errorf("无法回到大厅: %w", ErrNotHost)
		}

		resetToLobby(rec)

		return nil
	}

	return rejectLate(rec, act)
}

func (rvh *revealStageHandler) OnExit(rec *Record, rt Runtime) {
}

// handleCommon 处理任何阶段都可能收到的操作
// handled 为 false 时交给具体阶段继续处理
func handleCommon(rec *Record, rt Runtime, act Action) (bool, error) {
	switch req := act.(type) {
	case nil:
		return true, ErrUnknownAction

	case JoinGameRequest:
		return true, onPlayerJoin(rec, req)

	case UpdateSettingsRequest:
		if !rec.IsHost(req.ActorID) {
			return true, fmt.Errorf("无法修改设置: %w", ErrNotHost)
		}

		merged := rec.Settings.Merge(req.Patch)
		if merged == rec.Settings {
			return true, ErrNoChange
		}

		rec.Settings = merged

		return true, nil

	case KickPlayerRequest:
		// 非房主踢人、踢房主、踢不存在的玩家都静默忽略
		if !rec.IsHost(req.ActorID) || req.TargetID == rec.HostID || !rec.HasPlayer(req.TargetID) {
			return true, ErrNoChange
		}

		removePlayer(rec, rt, req.TargetID, true)
		afterRosterChange(rec)

		return true, nil

	case LeaveGameRequest:
		if !rec.HasPlayer(req.PlayerID) {
			return true, ErrNoChange
		}

		removePlayer(rec, rt, req.PlayerID, false)
		rec.EnsureHost()
		afterRosterChange(rec)

		return true, nil

	case MigrateHostRequest:
		if !rec.EnsureHost() {
			return true, ErrNoChange
		}

		return true, nil
	}

	return false, nil
}

// rejectLate 拒绝不属于当前阶段的操作
// 已经完成的线索和投票被重复提交时视为无操作，而不是错误
func rejectLate(rec *Record, act Action) error {
	switch req := act.(type) {
	case SubmitClueRequest:
		if rec.HasClue(req.PlayerID) {
			return ErrNoChange
		}
	case SkipTurnRequest:
		if rec.HasClue(req.TargetID) {
			return ErrNoChange
		}
	case VoteRequest:
		if len(rec.Votes[req.VoterID]) > 0 && rec.HasFullyVoted(req.VoterID) {
			return ErrNoChange
		}
	}

	return fmt.Errorf("%w: %s 不能在 %s 阶段执行", ErrInvalidPhase, act.ReqType(), rec.Phase)
}

func onPlayerJoin(rec *Record, req JoinGameRequest) error {
	if rec.Phase != PHASE_LOBBY {
		return ErrAlreadyStarted
	}

	if req.PlayerID == "" {
		return fmt.Errorf("%w: 缺少玩家 ID", ErrInvalidPlayer)
	}

	if rec.IsKicked(req.PlayerID) {
		return ErrBanned
	}

	// 同一个 ID 重复加入视为重连
	if rec.HasPlayer(req.PlayerID) {
		return ErrNoChange
	}

	if len(rec.Players) >= MAX_PLAYERS {
		return ErrRoomFull
	}

	name := strings.TrimSpace(req.JoinerName)
	if name == "" {
		return fmt.Errorf("%w: 玩家名称不能为空", ErrInvalidPlayer)
	}

	if utf8.RuneCountInString(name) > MAX_NAME_LENGTH {
		name = string([]rune(name)[:MAX_NAME_LENGTH])
	}

	rec.Players = append(rec.Players, Player{ID: req.PlayerID, Name: name})

	return nil
}

// removePlayer 把玩家从名单和本局所有状态中清除
// ban 为 true 时记入踢出名单，之后无法再加入
func removePlayer(rec *Record, rt Runtime, playerID string, ban bool) {
	holderBefore, _ := rec.CurrentTurn()

	players := make([]Player, 0, len(rec.Players))
	for _, p := range rec.Players {
		if p.ID != playerID {
			players = append(players, p)
		}
	}
	rec.Players = players

	if ban && !rec.IsKicked(playerID) {
		rec.KickedPlayerIDs = append(rec.KickedPlayerIDs, playerID)
	}

	rec.ImpostorIDs = without(rec.ImpostorIDs, playerID)
	rec.EliminatedIDs = without(rec.EliminatedIDs, playerID)

	clues := make([]Clue, 0, len(rec.Clues))
	for _, c := range rec.Clues {
		if c.PlayerID != playerID {
			clues = append(clues, c)
		}
	}
	rec.Clues = clues

	delete(rec.Votes, playerID)
	for voter, targets := range rec.Votes {
		targets = without(targets, playerID)
		if len(targets) == 0 {
			delete(rec.Votes, voter)
			continue
		}

		rec.Votes[voter] = targets
	}

	if rec.LastEliminatedID == OptionalID(playerID) {
		rec.LastEliminatedID = ""
	}

	// 当前回合的玩家被移除，下一位重新计时
	if rec.Phase == PHASE_CLUE && holderBefore.ID == playerID {
		rec.TurnStartTime = rt.nowMillis()
	}
}

// afterRosterChange 在名单变化后重新检查胜负和阶段完成条件
// 移除一名玩家可能让进行中的线索轮或投票轮立即完成
func afterRosterChange(rec *Record) {
	if !rec.Phase.IsActive() {
		return
	}

	if team := CheckWinCondition(rec.Players, rec.ImpostorIDs, rec.EliminatedIDs); team != TEAM_NONE {
		finishGame(rec, team)
		return
	}

	switch rec.Phase {
	case PHASE_CLUE:
		if rec.AllCluesIn() {
			rec.Phase = PHASE_DISCUSSION
		}
	case PHASE_VOTING:
		if rec.AllVotesIn() {
			resolveRound(rec)
		}
	}
}

// dealNewGame 重新抽取内鬼、词语和发言顺序，开始第一轮
func dealNewGame(rec *Record, rt Runtime) error {
	if len(rec.Players) < MIN_PLAYERS {
		return fmt.Errorf("%w: 至少需要 %d 名玩家", ErrNotEnoughPlayers, MIN_PLAYERS)
	}

	word, err := pickWord(rt, rec.Settings, nil)
	if err != nil {
		return fmt.Errorf("无法开始游戏: 词库 %s/%s: %w", rec.Settings.Language, rec.Settings.Category, err)
	}

	// 内鬼从独立的一次洗牌中选出，与发言顺序无关
	count := ImpostorCount(rec.Settings.NumImpostors, len(rec.Players))
	shuffledIDs := ShuffleArray(rt, playerIDs(rec.Players))

	rec.ImpostorIDs = append(make([]string, 0, count), shuffledIDs[:count]...)
	rec.Players = ShuffleArray(rt, rec.Players)
	rec.SecretWord = word

	rec.Clues = make([]Clue, 0)
	rec.ClueHistory = make([]RoundClues, 0)
	rec.Votes = make(map[string][]string)
	rec.EliminatedIDs = make([]string, 0)
	rec.LastEliminatedID = ""
	rec.Winner = TEAM_NONE
	rec.Round = 1
	rec.VoteSeed = 0

	rec.Phase = PHASE_CLUE

	return nil
}

func validateClue(rec *Record, playerID, clue string) error {
	if clue == "" {
		return fmt.Errorf("%w: 线索不能为空", ErrInvalidClue)
	}

	if utf8.RuneCountInString(clue) > MAX_CLUE_LENGTH {
		return fmt.Errorf("%w: 线索不能超过 %d 个字符", ErrInvalidClue, MAX_CLUE_LENGTH)
	}

	if strings.IndexFunc(clue, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: 线索只能是一个词", ErrInvalidClue)
	}

	// 内鬼不知道词语，不受此限制
	if !rec.IsImpostor(playerID) && strings.EqualFold(clue, rec.SecretWord) {
		return fmt.Errorf("%w: 不能直接说出词语", ErrInvalidClue)
	}

	return nil
}

func onSubmitClue(rec *Record, rt Runtime, req SubmitClueRequest) error {
	if rec.HasClue(req.PlayerID) {
		return ErrNoChange
	}

	if !rec.HasPlayer(req.PlayerID) {
		return ErrNotMember
	}

	if rec.IsEliminated(req.PlayerID) {
		return ErrAlreadyEliminated
	}

	holder, ok := rec.CurrentTurn()
	if !ok || holder.ID != req.PlayerID {
		return ErrNotYourTurn
	}

	clue := strings.TrimSpace(req.Clue)
	if err := validateClue(rec, req.PlayerID, clue); err != nil {
		return err
	}

	appendClue(rec, rt, req.PlayerID, clue)

	return nil
}

// onSkipTurn 用于超时自动跳过，只有当前玩家本人或房主可以触发
// 房主代为跳过时的宽限期由调用方保证
func onSkipTurn(rec *Record, rt Runtime, req SkipTurnRequest) error {
	if rec.HasClue(req.TargetID) {
		return ErrNoChange
	}

	holder, ok := rec.CurrentTurn()
	if !ok || holder.ID != req.TargetID {
		return ErrNotYourTurn
	}

	if req.ActorID != req.TargetID && !rec.IsHost(req.ActorID) {
		return fmt.Errorf("无法跳过他人的回合: %w", ErrNotHost)
	}

	appendClue(rec, rt, req.TargetID, CLUE_SKIPPED)

	return nil
}

func appendClue(rec *Record, rt Runtime, playerID, clue string) {
	rec.Clues = append(rec.Clues, Clue{PlayerID: playerID, Clue: clue})
	rec.TurnStartTime = rt.nowMillis()

	if rec.AllCluesIn() {
		rec.Phase = PHASE_DISCUSSION
	}
}

func onVote(rec *Record, req VoteRequest) error {
	if !rec.HasPlayer(req.VoterID) {
		return ErrNotMember
	}

	if rec.IsEliminated(req.VoterID) {
		return ErrNoChange
	}

	allowed := rec.VotesAllowed()
	current := rec.Votes[req.VoterID]
	if len(current) >= allowed {
		return ErrNoChange
	}

	// 过滤自投、已淘汰和不存在的目标，去重后追加到已有票上
	merged := append(make([]string, 0, allowed), current...)
	for _, target := range req.TargetIDs {
		if len(merged) >= allowed {
			break
		}

		if target == req.VoterID || !rec.IsAlive(target) || contains(merged, target) {
			continue
		}

		merged = append(merged, target)
	}

	if len(merged) == len(current) {
		return ErrNoChange
	}

	rec.Votes[req.VoterID] = merged

	if rec.AllVotesIn() {
		resolveRound(rec)
	}

	return nil
}

func onNextRound(rec *Record, rt Runtime) error {
	if team := CheckWinCondition(rec.Players, rec.ImpostorIDs, rec.EliminatedIDs); team != TEAM_NONE {
		finishGame(rec, team)
		return nil
	}

	used := []string{rec.SecretWord}
	for _, h := range rec.ClueHistory {
		used = append(used, h.Word)
	}

	word, err := pickWord(rt, rec.Settings, used)
	if err != nil {
		return fmt.Errorf("无法进入下一轮: %w", err)
	}

	archiveClues(rec)

	rec.SecretWord = word
	rec.Clues = make([]Clue, 0)
	rec.Votes = make(map[string][]string)
	rec.LastEliminatedID = ""
	rec.Round++
	rec.VoteSeed = rt.seed()

	rec.Phase = PHASE_CLUE

	return nil
}

// archiveClues 把本轮线索存入历史，同一轮只保存一次
func archiveClues(rec *Record) {
	for _, h := range rec.ClueHistory {
		if h.Round == rec.Round {
			return
		}
	}

	rec.ClueHistory = append(rec.ClueHistory, RoundClues{
		Round: rec.Round,
		Word:  rec.SecretWord,
		Clues: append(make([]Clue, 0, len(rec.Clues)), rec.Clues...),
	})
}

// finishGame 设置胜利方并进入揭晓阶段，胜利方只会被设置一次
func finishGame(rec *Record, team Team) {
	if rec.Winner == TEAM_NONE {
		rec.Winner = team
	}

	rec.Phase = PHASE_REVEAL
}

func resetToLobby(rec *Record) {
	rec.SecretWord = ""
	rec.ImpostorIDs = make([]string, 0)
	rec.Clues = make([]Clue, 0)
	rec.ClueHistory = make([]RoundClues, 0)
	rec.Votes = make(map[string][]string)
	rec.EliminatedIDs = make([]string, 0)
	rec.LastEliminatedID = ""
	rec.Round = 0
	rec.Winner = TEAM_NONE
	rec.TurnStartTime = 0
	rec.VoteSeed = 0

	rec.Phase = PHASE_LOBBY
}
