package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameMachine_ThreePlayerGame(t *testing.T) {
	gm, _ := newTestMachine(7)

	rec := newLobby(t, gm, "H", "P1", "P2")
	rec = mustApply(t, gm, rec, StartGameRequest{StartPlayerID: "H"})

	require.Equal(t, PHASE_CLUE, rec.Phase)
	assert.Equal(t, 1, rec.Round)
	assert.Len(t, rec.ImpostorIDs, 1)
	assert.Contains(t, []string{"H", "P1", "P2"}, rec.ImpostorIDs[0])
	assert.Contains(t, LookupWords("en", "food"), rec.SecretWord)
	assert.Empty(t, rec.Clues)
	assert.Len(t, rec.Players, 3)

	rec = submitAllClues(t, gm, rec)
	require.Equal(t, PHASE_DISCUSSION, rec.Phase)
	assert.Len(t, rec.Clues, rec.CountAlive())

	rec = mustApply(t, gm, rec, EndDiscussionRequest{ActorID: "H"})
	require.Equal(t, PHASE_VOTING, rec.Phase)
	assert.Empty(t, rec.Votes)

	imp := rec.ImpostorIDs[0]
	crew := crewIDs(rec)
	require.Len(t, crew, 2)

	rec = mustApply(t, gm, rec, VoteRequest{VoterID: imp, TargetIDs: []string{crew[0]}})
	rec = mustApply(t, gm, rec, VoteRequest{VoterID: crew[1], TargetIDs: []string{crew[0]}})
	require.Equal(t, PHASE_VOTING, rec.Phase)

	rec = mustApply(t, gm, rec, VoteRequest{VoterID: crew[0], TargetIDs: []string{crew[1]}})

	assert.Equal(t, []string{crew[0]}, rec.EliminatedIDs)
	assert.Equal(t, OptionalID(crew[0]), rec.LastEliminatedID)
	assert.Equal(t, PHASE_REVEAL, rec.Phase)
	assert.Equal(t, TEAM_IMPOSTOR, rec.Winner)
	require.Len(t, rec.ClueHistory, 1)
	assert.Equal(t, 1, rec.ClueHistory[0].Round)
	assert.Len(t, rec.ClueHistory[0].Clues, 3)
}

func TestGameMachine_NextRoundKeepsImpostors(t *testing.T) {
	gm, _ := newTestMachine(11)

	rec := newLobby(t, gm, "H", "P1", "P2", "P3", "P4")
	rec = mustApply(t, gm, rec, StartGameRequest{StartPlayerID: "H"})
	require.Len(t, rec.ImpostorIDs, 1)

	rec = submitAllClues(t, gm, rec)
	rec = mustApply(t, gm, rec, EndDiscussionRequest{ActorID: "H"})

	imp := rec.ImpostorIDs[0]
	crew := crewIDs(rec)
	target := crew[0]

	for _, p := range rec.Players {
		vote := target
		if p.ID == target {
			vote = crew[1]
		}

		rec = mustApply(t, gm, rec, VoteRequest{VoterID: p.ID, TargetIDs: []string{vote}})
	}

	require.Equal(t, PHASE_ROUND_RESULT, rec.Phase)
	assert.Equal(t, OptionalID(target), rec.LastEliminatedID)
	assert.Equal(t, TEAM_NONE, rec.Winner)

	firstWord := rec.SecretWord

	_, err := gm.Apply(rec, NextRoundRequest{ActorID: crew[1]})
	if crew[1] != rec.HostID {
		assert.ErrorIs(t, err, ErrNotHost)
	}

	rec = mustApply(t, gm, rec, NextRoundRequest{ActorID: rec.HostID})

	assert.Equal(t, PHASE_CLUE, rec.Phase)
	assert.Equal(t, 2, rec.Round)
	assert.NotEqual(t, firstWord, rec.SecretWord)
	assert.Empty(t, rec.Clues)
	assert.Empty(t, rec.Votes)
	assert.Empty(t, rec.LastEliminatedID)
	assert.Equal(t, []string{imp}, rec.ImpostorIDs)
	assert.Equal(t, []string{target}, rec.EliminatedIDs)
	require.Len(t, rec.ClueHistory, 1)
	assert.Equal(t, firstWord, rec.ClueHistory[0].Word)

	// 已淘汰的玩家不再轮到发言
	rec = submitAllClues(t, gm, rec)
	assert.Len(t, rec.Clues, 4)
	for _, c := range rec.Clues {
		assert.NotEqual(t, target, c.PlayerID)
	}
}

func TestGameMachine_ApplyDoesNotMutateInput(t *testing.T) {
	gm, clock := newTestMachine(1)

	rec := newFixedRecord(clock, PHASE_CLUE, "B", "H", "A", "B")

	next := mustApply(t, gm, rec, SubmitClueRequest{PlayerID: "H", Clue: "oven"})

	assert.Empty(t, rec.Clues)
	assert.Len(t, next.Clues, 1)
}

func TestGameMachine_StartRequiresHostAndPlayers(t *testing.T) {
	gm, _ := newTestMachine(3)

	rec := newLobby(t, gm, "H", "P1")

	_, err := gm.Apply(rec, StartGameRequest{StartPlayerID: "H"})
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	rec = mustApply(t, gm, rec, JoinGameRequest{PlayerID: "P2", JoinerName: "Carol"})

	_, err = gm.Apply(rec, StartGameRequest{StartPlayerID: "P1"})
	assert.ErrorIs(t, err, ErrNotHost)

	rec = mustApply(t, gm, rec, StartGameRequest{StartPlayerID: "H"})

	_, err = gm.Apply(rec, StartGameRequest{StartPlayerID: "H"})
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestGameMachine_StartClampsImpostors(t *testing.T) {
	gm, _ := newTestMachine(5)

	rec := newLobby(t, gm, "H", "P1", "P2", "P3")
	rec = mustApply(t, gm, rec, UpdateSettingsRequest{
		ActorID: "H",
		Patch:   SettingsPatch{NumImpostors: ptr(3)},
	})

	rec = mustApply(t, gm, rec, StartGameRequest{StartPlayerID: "H"})

	assert.Len(t, rec.ImpostorIDs, 1)
}

func TestJoin_Idempotent(t *testing.T) {
	gm, _ := newTestMachine(1)

	rec := newLobby(t, gm, "H", "P1")

	_, err := gm.Apply(rec, JoinGameRequest{PlayerID: "P1", JoinerName: "again"})
	assert.ErrorIs(t, err, ErrNoChange)
	assert.Len(t, rec.Players, 2)

	_, err = gm.Apply(rec, JoinGameRequest{PlayerID: "P2", JoinerName: "   "})
	assert.ErrorIs(t, err, ErrInvalidPlayer)

	_, err = gm.Apply(rec, JoinGameRequest{JoinerName: "nobody"})
	assert.ErrorIs(t, err, ErrInvalidPlayer)

	rec = mustApply(t, gm, rec, JoinGameRequest{PlayerID: "P2", JoinerName: "  a very long player name  "})
	name := rec.Players[2].Name
	assert.Equal(t, "a very long pla", name)
}

func TestJoin_KickedPlayerIsBanned(t *testing.T) {
	gm, _ := newTestMachine(1)

	rec := newLobby(t, gm, "H", "P1", "P2")
	rec = mustApply(t, gm, rec, KickPlayerRequest{ActorID: "H", TargetID: "P1"})

	assert.False(t, rec.HasPlayer("P1"))
	assert.True(t, rec.IsKicked("P1"))

	_, err := gm.Apply(rec, JoinGameRequest{PlayerID: "P1", JoinerName: "back"})
	assert.ErrorIs(t, err, ErrBanned)

	// 主动离开的玩家可以重新加入
	rec = mustApply(t, gm, rec, LeaveGameRequest{PlayerID: "P2"})
	rec = mustApply(t, gm, rec, JoinGameRequest{PlayerID: "P2", JoinerName: "back"})
	assert.True(t, rec.HasPlayer("P2"))
}

func TestJoin_RejectedOutsideLobbyOrWhenFull(t *testing.T) {
	gm, _ := newTestMachine(1)

	ids := []string{"H"}
	for i := 1; i < MAX_PLAYERS; i++ {
		ids = append(ids, string(rune('a'+i)))
	}

	rec := newLobby(t, gm, ids...)
	require.Len(t, rec.Players, MAX_PLAYERS)

	_, err := gm.Apply(rec, JoinGameRequest{PlayerID: "late", JoinerName: "late"})
	assert.ErrorIs(t, err, ErrRoomFull)

	rec = mustApply(t, gm, rec, StartGameRequest{StartPlayerID: "H"})

	_, err = gm.Apply(rec, JoinGameRequest{PlayerID: "late", JoinerName: "late"})
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, CLASS_STATE, Classify(err))
}

func TestKick_SilentlyIgnored(t *testing.T) {
	gm, _ := newTestMachine(1)

	rec := newLobby(t, gm, "H", "P1", "P2")

	for _, req := range []KickPlayerRequest{
		{ActorID: "P1", TargetID: "P2"},
		{ActorID: "H", TargetID: "H"},
		{ActorID: "H", TargetID: "ghost"},
	} {
		_, err := gm.Apply(rec, req)
		assert.ErrorIs(t, err, ErrNoChange, "kick %+v", req)
	}
}

func TestKick_ImpostorEndsGame(t *testing.T) {
	gm, clock := newTestMachine(1)

	rec := newFixedRecord(clock, PHASE_CLUE, "B", "H", "A", "B", "C")
	rec = mustApply(t, gm, rec, KickPlayerRequest{ActorID: "H", TargetID: "B"})

	assert.Equal(t, PHASE_REVEAL, rec.Phase)
	assert.Equal(t, TEAM_CREW, rec.Winner)
	assert.Empty(t, rec.ImpostorIDs)
}

func TestKick_TurnHolderAdvancesTurn(t *testing.T) {
	gm, clock := newTestMachine(1)

	rec := newFixedRecord(clock, PHASE_CLUE, "C", "H", "A", "B", "C", "D")
	rec = mustApply(t, gm, rec, SubmitClueRequest{PlayerID: "H", Clue: "oven"})

	clock.Advance(10 * time.Second)
	rec = mustApply(t, gm, rec, KickPlayerRequest{ActorID: "H", TargetID: "A"})

	holder, ok := rec.CurrentTurn()
	require.True(t, ok)
	assert.Equal(t, "B", holder.ID)
	assert.Equal(t, clock.Now().UnixMilli(), rec.TurnStartTime)
	assert.Equal(t, PHASE_CLUE, rec.Phase)
}

func TestKick_LastMissingClueFinishesRound(t *testing.T) {
	gm, clock := newTestMachine(1)

	rec := newFixedRecord(clock, PHASE_CLUE, "C", "H", "A", "B", "C", "D")
	for _, id := range []string{"H", "A", "B", "C"} {
		rec = mustApply(t, gm, rec, SubmitClueRequest{PlayerID: id, Clue: "w" + id})
	}

	rec = mustApply(t, gm, rec, KickPlayerRequest{ActorID: "H", TargetID: "D"})

	assert.Equal(t, PHASE_DISCUSSION, rec.Phase)
	assert.Len(t, rec.Clues, rec.CountAlive())
}

func TestKick_DuringVotingResolvesRound(t *testing.T) {
	gm, clock := newTestMachine(1)

	rec := newFixedRecord(clock, PHASE_VOTING, "B", "H", "A", "B", "C", "D")
	rec.Settings.VotesPerPlayer = 2
	require.Equal(t, 2, rec.VotesAllowed())

	rec.Votes = map[string][]string{
		"H": {"A"},
		"A": {"B"},
		"B": {"A"},
		"C": {"A"},
		"D": {"A", "B"},
	}
	require.False(t, rec.AllVotesIn())

	// 踢掉已投满的 D 后，每人可投票数降为 1，剩余玩家全部投满
	rec = mustApply(t, gm, rec, KickPlayerRequest{ActorID: "H", TargetID: "D"})

	assert.Equal(t, PHASE_ROUND_RESULT, rec.Phase)
	assert.Equal(t, OptionalID("A"), rec.LastEliminatedID)
	assert.Equal(t, []string{"A"}, rec.EliminatedIDs)
	assert.NotContains(t, rec.Votes, "D")
}

func TestKick_PurgesVotesForTarget(t *testing.T) {
	gm, clock := newTestMachine(1)

	rec := newFixedRecord(clock, PHASE_VOTING, "B", "H", "A", "B", "C", "D", "E")
	rec.Votes = map[string][]string{
		"H": {"D"},
		"A": {"B"},
	}

	rec = mustApply(t, gm, rec, KickPlayerRequest{ActorID: "H", TargetID: "D"})

	assert.Equal(t, PHASE_VOTING, rec.Phase)
	assert.Equal(t, map[string][]string{"A": {"B"}}, rec.Votes)
}

func TestLeave_MigratesHost(t *testing.T) {
	gm, _ := newTestMachine(1)

	rec := newLobby(t, gm, "H", "P1", "P2")
	rec = mustApply(t, gm, rec, LeaveGameRequest{PlayerID: "H"})

	assert.Equal(t, "P1", rec.HostID)
	assert.False(t, rec.IsKicked("H"))

	_, err := gm.Apply(rec, LeaveGameRequest{PlayerID: "H"})
	assert.ErrorIs(t, err, ErrNoChange)
}

func TestMigrateHost(t *testing.T) {
	gm, clock := newTestMachine(1)

	rec := newFixedRecord(clock, PHASE_DISCUSSION, "B", "H", "A", "B")
	rec.HostID = "gone"

	rec = mustApply(t, gm, rec, MigrateHostRequest{})
	assert.Equal(t, "H", rec.HostID)

	_, err := gm.Apply(rec, MigrateHostRequest{})
	assert.ErrorIs(t, err, ErrNoChange)
}

func TestUpdateSettings(t *testing.T) {
	gm, _ := newTestMachine(1)

	rec := newLobby(t, gm, "H", "P1")

	_, err := gm.Apply(rec, UpdateSettingsRequest{ActorID: "P1", Patch: SettingsPatch{Category: ptr("animals")}})
	assert.ErrorIs(t, err, ErrNotHost)

	_, err = gm.Apply(rec, UpdateSettingsRequest{ActorID: "H", Patch: SettingsPatch{Category: ptr(DEFAULT_CATEGORY)}})
	assert.ErrorIs(t, err, ErrNoChange)

	rec = mustApply(t, gm, rec, UpdateSettingsRequest{
		ActorID: "H",
		Patch:   SettingsPatch{Category: ptr("animals"), ShowTimer: ptr(false)},
	})

	assert.Equal(t, "animals", rec.Settings.Category)
	assert.False(t, rec.Settings.ShowTimer)
	assert.Equal(t, DEFAULT_CLUE_TIME, rec.Settings.ClueTime)
}

func TestReveal_PlayAgainAndBackToLobby(t *testing.T) {
	gm, clock := newTestMachine(9)

	rec := newFixedRecord(clock, PHASE_REVEAL, "B", "H", "A", "B")
	rec.Winner = TEAM_CREW
	rec.EliminatedIDs = []string{"B"}
	rec.ClueHistory = []RoundClues{{Round: 1, Word: "Pizza"}}

	_, err := gm.Apply(rec, PlayAgainRequest{ActorID: "A"})
	assert.ErrorIs(t, err, ErrNotHost)

	again := mustApply(t, gm, rec, PlayAgainRequest{ActorID: "H"})
	assert.Equal(t, PHASE_CLUE, again.Phase)
	assert.Equal(t, 1, again.Round)
	assert.Equal(t, TEAM_NONE, again.Winner)
	assert.Empty(t, again.EliminatedIDs)
	assert.Empty(t, again.ClueHistory)
	assert.Len(t, again.ImpostorIDs, 1)

	lobby := mustApply(t, gm, rec, BackToLobbyRequest{ActorID: "H"})
	assert.Equal(t, PHASE_LOBBY, lobby.Phase)
	assert.Equal(t, TEAM_NONE, lobby.Winner)
	assert.Empty(t, lobby.SecretWord)
	assert.Empty(t, lobby.ImpostorIDs)
	assert.Len(t, lobby.Players, 3)
	assert.Equal(t, rec.Settings, lobby.Settings)
}

func TestFinishGame_WinnerSetOnce(t *testing.T) {
	_, clock := newTestMachine(1)

	rec := newFixedRecord(clock, PHASE_REVEAL, "B", "H", "A", "B")
	rec.Winner = TEAM_CREW

	finishGame(rec, TEAM_IMPOSTOR)

	assert.Equal(t, TEAM_CREW, rec.Winner)
	assert.Equal(t, PHASE_REVEAL, rec.Phase)
}

func ptr[T any](v T) *T {
	return &v
}
