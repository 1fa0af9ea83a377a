package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueTimeout_Clue(t *testing.T) {
	_, clock := newTestMachine(1)

	rec := newFixedRecord(clock, PHASE_CLUE, "B", "H", "A", "B")
	rec.Clues = []Clue{{PlayerID: "H", Clue: "oven"}}

	start := clock.Now()
	deadline := start.Add(time.Duration(rec.Settings.ClueTime) * time.Second)

	assert.Nil(t, DueTimeout(rec, "A", deadline.Add(-time.Millisecond)))
	assert.Equal(t, SkipTurnRequest{ActorID: "A", TargetID: "A"}, DueTimeout(rec, "A", deadline))

	// 房主要等宽限期过后才代为跳过
	assert.Nil(t, DueTimeout(rec, "H", deadline))
	assert.Equal(t, SkipTurnRequest{ActorID: "H", TargetID: "A"}, DueTimeout(rec, "H", deadline.Add(HOST_GRACE_PERIOD)))

	assert.Nil(t, DueTimeout(rec, "B", deadline.Add(time.Minute)))
	assert.Nil(t, DueTimeout(rec, "ghost", deadline.Add(time.Minute)))

	rec.Settings.ClueTime = 0
	assert.Nil(t, DueTimeout(rec, "A", deadline.Add(time.Hour)))
}

func TestDueTimeout_DiscussionAndVoting(t *testing.T) {
	_, clock := newTestMachine(1)

	rec := newFixedRecord(clock, PHASE_DISCUSSION, "B", "H", "A", "B")
	deadline := PhaseDeadline(rec)
	assert.Equal(t, clock.Now().Add(time.Duration(DEFAULT_DISCUSSION_TIME)*time.Second), deadline)

	assert.Nil(t, DueTimeout(rec, "H", deadline.Add(-time.Second)))
	assert.Equal(t, EndDiscussionRequest{ActorID: "H"}, DueTimeout(rec, "H", deadline))
	assert.Nil(t, DueTimeout(rec, "A", deadline))

	rec.Settings.AutoEndDiscussion = false
	assert.Nil(t, DueTimeout(rec, "H", deadline.Add(time.Minute)))

	rec.Phase = PHASE_VOTING
	deadline = PhaseDeadline(rec)
	assert.Equal(t, ForceEndVotingRequest{ActorID: "H"}, DueTimeout(rec, "H", deadline))
	assert.Nil(t, DueTimeout(rec, "A", deadline))

	rec.Phase = PHASE_ROUND_RESULT
	assert.True(t, PhaseDeadline(rec).IsZero())
	assert.Nil(t, DueTimeout(rec, "H", deadline.Add(time.Hour)))
}

func TestRemaining(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	assert.Equal(t, 1, Remaining(now.Add(1500*time.Millisecond), now))
	assert.Equal(t, 0, Remaining(now.Add(-time.Second), now))
	assert.Equal(t, 0, Remaining(time.Time{}, now))
}
