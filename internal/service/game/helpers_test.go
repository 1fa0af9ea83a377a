package game

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestMachine(seed uint64) (*GameMachine, *fakeClock) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	rt := Runtime{
		Clock: clock.Now,
		Rand:  rand.New(rand.NewPCG(seed, seed+1)),
	}

	return NewGameMachine(rt), clock
}

// mustApply 应用操作并检查每一步之后都成立的不变量
func mustApply(t *testing.T, gm *GameMachine, rec *Record, act Action) *Record {
	t.Helper()

	next, err := gm.Apply(rec, act)
	require.NoError(t, err, "apply %s", act.ReqType())
	assertRecordInvariants(t, next)

	return next
}

func assertRecordInvariants(t *testing.T, rec *Record) {
	t.Helper()

	if rec.Winner != TEAM_NONE {
		require.Equal(t, PHASE_REVEAL, rec.Phase, "winner set outside reveal")
	}

	require.True(t, rec.HostID == "" || rec.HasPlayer(rec.HostID), "host %q is not in the roster", rec.HostID)

	for _, id := range rec.ImpostorIDs {
		require.True(t, rec.HasPlayer(id), "impostor %q is not in the roster", id)
	}

	for _, id := range rec.EliminatedIDs {
		require.True(t, rec.HasPlayer(id), "eliminated %q is not in the roster", id)
	}
}

func newLobby(t *testing.T, gm *GameMachine, ids ...string) *Record {
	t.Helper()

	rec := gm.Create("ABCD", Player{ID: ids[0], Name: "name-" + ids[0]})
	for _, id := range ids[1:] {
		rec = mustApply(t, gm, rec, JoinGameRequest{PlayerID: id, JoinerName: "name-" + id})
	}

	return rec
}

func crewIDs(rec *Record) []string {
	crew := make([]string, 0)
	for _, p := range rec.Players {
		if !rec.IsImpostor(p.ID) {
			crew = append(crew, p.ID)
		}
	}

	return crew
}

func submitAllClues(t *testing.T, gm *GameMachine, rec *Record) *Record {
	t.Helper()

	for rec.Phase == PHASE_CLUE {
		holder, ok := rec.CurrentTurn()
		require.True(t, ok)

		rec = mustApply(t, gm, rec, SubmitClueRequest{PlayerID: holder.ID, Clue: "hint" + holder.ID})
	}

	return rec
}

// newFixedRecord 构造一个内鬼固定为 impostor 的对局，处于 phase 阶段
func newFixedRecord(clock *fakeClock, phase Phase, impostor string, ids ...string) *Record {
	rec := NewRecord(Runtime{Clock: clock.Now}, "WXYZ", Player{ID: ids[0], Name: ids[0]})
	for _, id := range ids[1:] {
		rec.Players = append(rec.Players, Player{ID: id, Name: id})
	}

	rec.Phase = phase
	rec.Round = 1
	rec.SecretWord = "Pizza"
	rec.ImpostorIDs = []string{impostor}
	rec.TurnStartTime = clock.Now().UnixMilli()
	rec.PhaseStartTime = clock.Now().UnixMilli()
	rec.VoteSeed = 42

	return rec
}
