package game

import "time"

const (
	// 房主代替挂机玩家跳过回合前的宽限期，减少与玩家本人同时触发
	HOST_GRACE_PERIOD = 2 * time.Second
)

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// TurnDeadline 返回当前线索回合的截止时间，clueTime <= 0 表示不限时
func TurnDeadline(rec *Record) (time.Time, bool) {
	if rec.Phase != PHASE_CLUE || rec.Settings.ClueTime <= 0 {
		return time.Time{}, false
	}

	return millisToTime(rec.TurnStartTime).Add(time.Duration(rec.Settings.ClueTime) * time.Second), true
}

// PhaseDeadline 返回讨论或投票阶段的截止时间，其他阶段返回零值
func PhaseDeadline(rec *Record) time.Time {
	var seconds int

	switch rec.Phase {
	case PHASE_DISCUSSION:
		seconds = rec.Settings.DiscussionTime
	case PHASE_VOTING:
		seconds = rec.Settings.VotingTime
	default:
		return time.Time{}
	}

	return millisToTime(rec.PhaseStartTime).Add(time.Duration(seconds) * time.Second)
}

// canForceTimeout 房主随时可以推进阶段，其他玩家只能在截止时间之后推进
func canForceTimeout(rec *Record, rt Runtime, actorID string, deadline time.Time) bool {
	if rec.IsHost(actorID) {
		return true
	}

	if !rec.HasPlayer(actorID) || deadline.IsZero() {
		return false
	}

	return !rt.now().Before(deadline)
}

// DueTimeout 计算 playerID 所在的客户端此刻应触发的超时操作，没有则返回 nil
//   - 线索阶段：当前回合玩家到点立即跳过自己；房主在宽限期之后代为跳过
//   - 讨论阶段：开启自动结束时，房主到点结束讨论
//   - 投票阶段：房主到点强制结束投票
func DueTimeout(rec *Record, playerID string, now time.Time) Action {
	if rec == nil || !rec.HasPlayer(playerID) {
		return nil
	}

	switch rec.Phase {
	case PHASE_CLUE:
		deadline, ok := TurnDeadline(rec)
		if !ok || now.Before(deadline) {
			return nil
		}

		holder, ok := rec.CurrentTurn()
		if !ok {
			return nil
		}

		if holder.ID == playerID {
			return SkipTurnRequest{ActorID: playerID, TargetID: holder.ID}
		}

		if rec.IsHost(playerID) && !now.Before(deadline.Add(HOST_GRACE_PERIOD)) {
			return SkipTurnRequest{ActorID: playerID, TargetID: holder.ID}
		}

	case PHASE_DISCUSSION:
		if rec.IsHost(playerID) && rec.Settings.AutoEndDiscussion && !now.Before(PhaseDeadline(rec)) {
			return EndDiscussionRequest{ActorID: playerID}
		}

	case PHASE_VOTING:
		if rec.IsHost(playerID) && !now.Before(PhaseDeadline(rec)) {
			return ForceEndVotingRequest{ActorID: playerID}
		}
	}

	return nil
}

// Remaining 返回距离截止时间的剩余秒数，向下取整且不小于 0
func Remaining(deadline, now time.Time) int {
	if deadline.IsZero() || !now.Before(deadline) {
		return 0
	}

	return int(deadline.Sub(now) / time.Second)
}
