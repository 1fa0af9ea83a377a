package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"impostor-be/internal/service/dto"
	"impostor-be/internal/service/game"
	"impostor-be/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	value, _ := args.Get(0).([]byte)
	return value, args.Error(1)
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func testMachine() *game.GameMachine {
	return game.NewGameMachine(game.Runtime{
		Clock: time.Now,
		Rand:  rand.New(rand.NewPCG(1, 2)),
	})
}

func newTestService(t *testing.T) (*RoomService, *store.MemoryStore) {
	t.Helper()

	ms := store.NewMemoryStore(0, 0)
	rs := NewRoomService(NewGameRepository(ms), testMachine(), 0)

	t.Cleanup(func() {
		rs.Close()
		ms.Close()
	})

	return rs, ms
}

func encode(t *testing.T, rec *game.Record) []byte {
	t.Helper()

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	return raw
}

func lobbyRecord(version int64, ids ...string) *game.Record {
	rec := game.NewRecord(game.NewRuntime(), "ABCD", game.Player{ID: ids[0], Name: ids[0]})
	for _, id := range ids[1:] {
		rec.Players = append(rec.Players, game.Player{ID: id, Name: id})
	}
	rec.Version = version

	return rec
}

func TestRoomService_CreateAndJoin(t *testing.T) {
	rs, ms := newTestService(t)
	ctx := context.Background()

	created, err := rs.CreateRoom(ctx, dto.CreateRoomRequest{PlayerID: "host", CreatorName: " Alice "})
	require.NoError(t, err)

	assert.Len(t, created.RoomCode, game.ROOM_CODE_LENGTH)
	assert.Equal(t, dto.Player{ID: "host", Name: "Alice", IsHost: true}, created.Creator)
	assert.Equal(t, game.PHASE_LOBBY, created.View.Phase)

	raw, err := ms.Get(ctx, RoomKey(created.RoomCode))
	require.NoError(t, err)

	var stored game.Record
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, int64(1), stored.Version)
	assert.NotZero(t, stored.ServerTimestamp)

	joined, err := rs.JoinRoom(ctx, created.RoomCode, dto.JoinRoomRequest{JoinerName: "Bob"})
	require.NoError(t, err)
	assert.NotEmpty(t, joined.Joiner.ID)
	assert.False(t, joined.Joiner.IsHost)
	assert.Len(t, joined.View.Players, 2)

	rec, err := rs.Get(ctx, created.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)

	// 重复加入不会产生新的写入
	again, err := rs.JoinRoom(ctx, created.RoomCode, dto.JoinRoomRequest{PlayerID: joined.Joiner.ID, JoinerName: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, joined.Joiner, again.Joiner)

	rec, err = rs.Get(ctx, created.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)
	assert.Len(t, rec.Players, 2)
}

func TestRoomService_CreateValidatesName(t *testing.T) {
	rs, _ := newTestService(t)

	_, err := rs.CreateRoom(context.Background(), dto.CreateRoomRequest{CreatorName: "  "})
	assert.ErrorIs(t, err, game.ErrInvalidPlayer)
}

func TestRoomService_JoinErrors(t *testing.T) {
	rs, _ := newTestService(t)
	ctx := context.Background()

	_, err := rs.JoinRoom(ctx, "ZZZZ", dto.JoinRoomRequest{JoinerName: "Bob"})
	assert.ErrorIs(t, err, game.ErrNotFound)

	_, err = rs.JoinRoom(ctx, "bad code", dto.JoinRoomRequest{JoinerName: "Bob"})
	assert.ErrorIs(t, err, game.ErrNotFound)

	created, err := rs.CreateRoom(ctx, dto.CreateRoomRequest{PlayerID: "H", CreatorName: "Host"})
	require.NoError(t, err)

	for _, id := range []string{"P1", "P2"} {
		_, err = rs.JoinRoom(ctx, created.RoomCode, dto.JoinRoomRequest{PlayerID: id, JoinerName: id})
		require.NoError(t, err)
	}

	_, err = rs.Apply(ctx, created.RoomCode, game.KickPlayerRequest{ActorID: "H", TargetID: "P2"})
	require.NoError(t, err)

	_, err = rs.JoinRoom(ctx, created.RoomCode, dto.JoinRoomRequest{PlayerID: "P2", JoinerName: "P2"})
	assert.ErrorIs(t, err, game.ErrBanned)

	_, err = rs.JoinRoom(ctx, created.RoomCode, dto.JoinRoomRequest{PlayerID: "P3", JoinerName: "P3"})
	require.NoError(t, err)

	_, err = rs.Apply(ctx, created.RoomCode, game.StartGameRequest{StartPlayerID: "H"})
	require.NoError(t, err)

	_, err = rs.JoinRoom(ctx, created.RoomCode, dto.JoinRoomRequest{PlayerID: "P4", JoinerName: "P4"})
	assert.ErrorIs(t, err, game.ErrAlreadyStarted)

	// 游戏进行中，已在房间里的玩家可以重连
	rejoined, err := rs.JoinRoom(ctx, created.RoomCode, dto.JoinRoomRequest{PlayerID: "P1", JoinerName: "P1"})
	require.NoError(t, err)
	assert.Equal(t, game.PHASE_CLUE, rejoined.View.Phase)
}

func TestRoomService_ApplyNoChangeSkipsWrite(t *testing.T) {
	st := &mockStore{}
	rs := NewRoomService(NewGameRepository(st), testMachine(), 0)
	defer rs.Close()

	rec := lobbyRecord(3, "H", "P1")
	st.On("Get", mock.Anything, "impostor:ABCD").Return(encode(t, rec), nil)

	got, err := rs.Apply(context.Background(), "abcd", game.JoinGameRequest{PlayerID: "P1", JoinerName: "P1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)

	st.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoomService_ApplyRetriesOnVersionChange(t *testing.T) {
	st := &mockStore{}
	rs := NewRoomService(NewGameRepository(st), testMachine(), 0)
	defer rs.Close()

	v1 := encode(t, lobbyRecord(1, "H"))
	v2 := encode(t, lobbyRecord(2, "H", "P1"))

	// 第一次读到 v1，写入前发现已经变成 v2，重新读取后写入
	st.On("Get", mock.Anything, "impostor:ABCD").Return(v1, nil).Once()
	st.On("Get", mock.Anything, "impostor:ABCD").Return(v2, nil).Times(3)
	st.On("Set", mock.Anything, "impostor:ABCD", mock.MatchedBy(func(raw []byte) bool {
		var rec game.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return false
		}
		return rec.Version == 3 && len(rec.Players) == 3
	})).Return(nil).Once()

	got, err := rs.Apply(context.Background(), "ABCD", game.JoinGameRequest{PlayerID: "P2", JoinerName: "P2"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.True(t, got.HasPlayer("P1"))
	assert.True(t, got.HasPlayer("P2"))

	st.AssertExpectations(t)
}

func TestRoomService_PersistenceErrors(t *testing.T) {
	st := &mockStore{}
	rs := NewRoomService(NewGameRepository(st), testMachine(), 0)
	defer rs.Close()

	st.On("Get", mock.Anything, "impostor:ABCD").Return(nil, errors.New("connection reset")).Once()

	_, err := rs.Apply(context.Background(), "ABCD", game.StartGameRequest{StartPlayerID: "H"})
	assert.ErrorIs(t, err, game.ErrPersistence)
	assert.Equal(t, game.CLASS_PERSISTENCE, game.Classify(err))

	st.On("Get", mock.Anything, "impostor:ABCD").Return([]byte("{not json"), nil).Once()

	_, err = rs.Apply(context.Background(), "ABCD", game.StartGameRequest{StartPlayerID: "H"})
	assert.ErrorIs(t, err, game.ErrPersistence)

	st.On("Get", mock.Anything, mock.Anything).Return(nil, store.ErrNotFound)
	st.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err = rs.CreateRoom(context.Background(), dto.CreateRoomRequest{PlayerID: "H", CreatorName: "Host"})
	assert.ErrorIs(t, err, game.ErrCreation)
	assert.Equal(t, game.CLASS_PERSISTENCE, game.Classify(err))
}

// racingStore 在第一次条件写入之前插入另一个客户端的写入
type racingStore struct {
	*store.MemoryStore

	once  sync.Once
	racer func()
}

func (rs *racingStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) error {
	rs.once.Do(rs.racer)
	return rs.MemoryStore.CompareAndSwap(ctx, key, old, value)
}

func TestRoomService_ConcurrentWriteIsNotLost(t *testing.T) {
	ms := store.NewMemoryStore(0, 0)
	defer ms.Close()

	ctx := context.Background()
	require.NoError(t, ms.Set(ctx, RoomKey("ABCD"), encode(t, lobbyRecord(1, "H"))))

	other := NewRoomService(NewGameRepository(ms), testMachine(), 0)
	defer other.Close()

	rst := &racingStore{MemoryStore: ms}
	rst.racer = func() {
		_, err := other.Apply(ctx, "ABCD", game.JoinGameRequest{PlayerID: "P1", JoinerName: "P1"})
		require.NoError(t, err)
	}

	rs := NewRoomService(NewGameRepository(rst), testMachine(), 0)
	defer rs.Close()

	got, err := rs.Apply(ctx, "ABCD", game.JoinGameRequest{PlayerID: "P2", JoinerName: "P2"})
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.Version)
	assert.True(t, got.HasPlayer("P1"))
	assert.True(t, got.HasPlayer("P2"))
}

func TestRoomService_ApplyRequest(t *testing.T) {
	rs, _ := newTestService(t)
	ctx := context.Background()

	created, err := rs.CreateRoom(ctx, dto.CreateRoomRequest{PlayerID: "H", CreatorName: "Host"})
	require.NoError(t, err)

	resp, err := rs.ApplyRequest(ctx, created.RoomCode, dto.ActionRequest{
		PlayerID:    "H",
		RequestType: game.REQ_UPDATE_SETTINGS,
		Data:        json.RawMessage(`{"actor_id":"H","patch":{"category":"animals"}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "animals", resp.View.Settings.Category)

	_, err = rs.ApplyRequest(ctx, created.RoomCode, dto.ActionRequest{PlayerID: "H", RequestType: "Nope"})
	assert.ErrorIs(t, err, game.ErrUnknownAction)
}

type countingCleaner struct {
	*store.MemoryStore

	mu    sync.Mutex
	calls int
}

func (cc *countingCleaner) Cleanup(ctx context.Context) (int64, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.calls++
	return 1, nil
}

func (cc *countingCleaner) Calls() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	return cc.calls
}

func TestRoomService_CleanupLoop(t *testing.T) {
	cc := &countingCleaner{MemoryStore: store.NewMemoryStore(0, 0)}
	defer cc.Close()

	rs := NewRoomService(NewGameRepository(cc), testMachine(), 10*time.Millisecond)

	assert.Eventually(t, func() bool { return cc.Calls() >= 2 }, time.Second, 5*time.Millisecond)

	rs.Close()
	rs.Close()
}

func TestRoomService_ApplyRequestActsAsCaller(t *testing.T) {
	rs, _ := newTestService(t)
	ctx := context.Background()

	created, err := rs.CreateRoom(ctx, dto.CreateRoomRequest{PlayerID: "H", CreatorName: "Host"})
	require.NoError(t, err)
	for _, id := range []string{"P1", "P2"} {
		_, err = rs.JoinRoom(ctx, created.RoomCode, dto.JoinRoomRequest{PlayerID: id, JoinerName: id})
		require.NoError(t, err)
	}

	// 载荷声称房主发起，但请求来自 P1
	_, err = rs.ApplyRequest(ctx, created.RoomCode, dto.ActionRequest{
		PlayerID:    "P1",
		RequestType: game.REQ_KICK_PLAYER,
		Data:        json.RawMessage(`{"actor_id":"H","target_id":"P2"}`),
	})
	assert.ErrorIs(t, err, game.ErrNotHost)

	_, err = rs.ApplyRequest(ctx, created.RoomCode, dto.ActionRequest{
		PlayerID:    "P1",
		RequestType: game.REQ_START_GAME,
		Data:        json.RawMessage(`{"start_player_id":"H"}`),
	})
	assert.ErrorIs(t, err, game.ErrNotHost)

	got, err := rs.Get(ctx, created.RoomCode)
	require.NoError(t, err)
	assert.True(t, got.HasPlayer("P2"))
	assert.Empty(t, got.KickedPlayerIDs)
	assert.Equal(t, game.PHASE_LOBBY, got.Phase)
}
