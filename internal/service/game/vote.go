package game

import (
	"math"
	"sort"
)

// TallyVotes 统计每个目标获得的票数，一人多票时每票各计一次
func TallyVotes(votes map[string][]string) map[string]int {
	tally := make(map[string]int)
	for _, targets := range votes {
		for _, target := range targets {
			tally[target]++
		}
	}

	return tally
}

// ResolveVotes 计算本轮被淘汰的玩家，没有任何投票时返回空字符串
// 平票时用 SeededRandom(voteSeed+round) 在按 ID 排序的候选人中选择，
// 任何客户端用同样的输入都会得到同样的结果
func ResolveVotes(votes map[string][]string, voteSeed int64, round int) string {
	tally := TallyVotes(votes)

	maxVotes := 0
	for _, count := range tally {
		maxVotes = max(maxVotes, count)
	}

	if maxVotes == 0 {
		return ""
	}

	candidates := make([]string, 0)
	for target, count := range tally {
		if count == maxVotes {
			candidates = append(candidates, target)
		}
	}

	sort.Strings(candidates)

	if len(candidates) == 1 {
		return candidates[0]
	}

	idx := int(math.Floor(SeededRandom(voteSeed+int64(round)) * float64(len(candidates))))
	idx = clamp(idx, 0, len(candidates)-1)

	return candidates[idx]
}

// CheckWinCondition 判断胜负
//   - 存活内鬼为 0：船员胜
//   - 存活内鬼不少于存活船员：内鬼胜
//   - 否则游戏继续
func CheckWinCondition(players []Player, impostorIDs, eliminatedIDs []string) Team {
	aliveImpostors, aliveCrew := 0, 0

	for _, p := range players {
		if contains(eliminatedIDs, p.ID) {
			continue
		}

		if contains(impostorIDs, p.ID) {
			aliveImpostors++
		} else {
			aliveCrew++
		}
	}

	if aliveImpostors == 0 {
		return TEAM_CREW
	}

	if aliveImpostors >= aliveCrew {
		return TEAM_IMPOSTOR
	}

	return TEAM_NONE
}

// resolveRound 结算本轮投票，进入回合结果或直接揭晓
func resolveRound(rec *Record) {
	eliminated := ResolveVotes(rec.Votes, rec.VoteSeed, rec.Round)

	if eliminated != "" && !rec.IsEliminated(eliminated) {
		rec.EliminatedIDs = append(rec.EliminatedIDs, eliminated)
	}

	rec.LastEliminatedID = OptionalID(eliminated)

	if team := CheckWinCondition(rec.Players, rec.ImpostorIDs, rec.EliminatedIDs); team != TEAM_NONE {
		finishGame(rec, team)
		return
	}

	rec.Phase = PHASE_ROUND_RESULT
}
