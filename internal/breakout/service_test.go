package breakout

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/repository"
	"github.com/dkeye/Conclave/internal/rooms"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const conf = domain.ConferenceID("conf-1")

func newService(t *testing.T) (*Service, *rooms.Service) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := repository.NewClient(rdb)
	roomService := rooms.NewService(repo, repo, domain.ConferenceConfig{})
	return NewService(repo, roomService), roomService
}

func join(t *testing.T, roomService *rooms.Service, ids ...domain.ParticipantID) {
	t.Helper()
	for _, id := range ids {
		_, err := roomService.Join(context.Background(), conf,
			domain.Participant{ID: id, DisplayName: string(id)})
		require.NoError(t, err)
	}
}

func TestOpenCreatesRoomsAndMovesAssigned(t *testing.T) {
	s, roomService := newService(t)
	ctx := context.Background()
	join(t, roomService, "a", "b", "c")

	state, _, err := s.Open(ctx, conf, 2,
		[][]domain.ParticipantID{{"a"}, {"b"}}, nil)
	require.NoError(t, err)
	require.True(t, state.IsOpen)
	require.Len(t, state.RoomIDs, 2)

	all, err := roomService.Rooms(ctx, conf)
	require.NoError(t, err)
	require.Len(t, all, 3) // default + 2 breakout
	names := []string{all[0].DisplayName, all[1].DisplayName, all[2].DisplayName}
	require.Contains(t, names, "Room A")
	require.Contains(t, names, "Room B")

	roomOfA, err := roomService.RoomOfParticipant(ctx, conf, "a")
	require.NoError(t, err)
	require.Equal(t, state.RoomIDs[0], roomOfA)
	roomOfC, err := roomService.RoomOfParticipant(ctx, conf, "c")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultRoomID, roomOfC)
}

func TestOpenTwiceConflicts(t *testing.T) {
	s, roomService := newService(t)
	ctx := context.Background()
	join(t, roomService, "a")

	_, _, err := s.Open(ctx, conf, 1, nil, nil)
	require.NoError(t, err)
	_, _, err = s.Open(ctx, conf, 1, nil, nil)
	require.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestOpenRejectsInvalidAssignments(t *testing.T) {
	s, roomService := newService(t)
	ctx := context.Background()
	join(t, roomService, "a")

	_, _, err := s.Open(ctx, conf, 1, [][]domain.ParticipantID{{"a"}, {"b"}}, nil)
	require.ErrorIs(t, err, domain.ErrAssignmentOutOfRange)

	_, _, err = s.Open(ctx, conf, 2, [][]domain.ParticipantID{{"a"}, {"a"}}, nil)
	require.ErrorIs(t, err, domain.ErrDuplicateAssignment)
}

func TestOpenRandomRejectsOutOfRangeExplicitRows(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := repository.NewClient(rdb)
	roomService := rooms.NewService(repo, repo, domain.ConferenceConfig{})
	s := NewService(repo, roomService)
	ctx := context.Background()
	for _, id := range []domain.ParticipantID{"a", "b", "c"} {
		_, err := roomService.Join(ctx, conf, domain.Participant{ID: id, DisplayName: string(id)})
		require.NoError(t, err)
	}

	// Three explicit rows for two rooms: the random path must reject this
	// just like the explicit path, not truncate the third row away.
	h := &openHandler{service: s, rooms: repo}
	result := h.Handle(ctx, OpenCommand{
		Base:           dispatch.Base{Conference: conf, Caller: "a"},
		Amount:         2,
		Assignments:    [][]domain.ParticipantID{{"a"}, {"b"}, {"c"}},
		AssignRandomly: true,
		Seed:           1,
	})
	require.False(t, result.Success)
	require.Equal(t, dispatch.CodeConflict, result.Code)

	// Nothing opened, nobody moved.
	state, err := s.State(ctx, conf)
	require.NoError(t, err)
	require.Nil(t, state)
	room, err := roomService.RoomOfParticipant(ctx, conf, "c")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultRoomID, room)
}

func TestChangeStateMovesParticipants(t *testing.T) {
	s, roomService := newService(t)
	ctx := context.Background()
	join(t, roomService, "a", "b")

	state, _, err := s.Open(ctx, conf, 2, [][]domain.ParticipantID{{"a"}}, nil)
	require.NoError(t, err)

	raw, err := json.Marshal([]domain.ParticipantID{"b"})
	require.NoError(t, err)
	next, _, err := s.ChangeState(ctx, conf, []PatchOp{
		{Op: "add", Path: "/assignments/-", Value: raw},
	})
	require.NoError(t, err)
	require.Equal(t, [][]domain.ParticipantID{{"a"}, {"b"}}, next.Assignments)

	roomOfB, err := roomService.RoomOfParticipant(ctx, conf, "b")
	require.NoError(t, err)
	require.Equal(t, state.RoomIDs[1], roomOfB)
}

func TestChangeStateRejectsWholePatchOnViolation(t *testing.T) {
	s, roomService := newService(t)
	ctx := context.Background()
	join(t, roomService, "a", "b")

	_, _, err := s.Open(ctx, conf, 2, [][]domain.ParticipantID{{"a"}, {"b"}}, nil)
	require.NoError(t, err)

	// Second op duplicates "a"; the valid first op must not stick either.
	dupe, err := json.Marshal(domain.ParticipantID("a"))
	require.NoError(t, err)
	_, _, err = s.ChangeState(ctx, conf, []PatchOp{
		{Op: "remove", Path: "/assignments/1/0"},
		{Op: "add", Path: "/assignments/0/-", Value: dupe},
	})
	require.ErrorIs(t, err, domain.ErrDuplicateAssignment)

	state, err := s.State(ctx, conf)
	require.NoError(t, err)
	require.Equal(t, [][]domain.ParticipantID{{"a"}, {"b"}}, state.Assignments)
}

func TestChangeStateRejectsMalformedPatch(t *testing.T) {
	s, roomService := newService(t)
	ctx := context.Background()
	join(t, roomService, "a")

	_, _, err := s.Open(ctx, conf, 1, nil, nil)
	require.NoError(t, err)

	_, _, err = s.ChangeState(ctx, conf, []PatchOp{
		{Op: "replace", Path: "/assignments/7/0", Value: json.RawMessage(`"a"`)},
	})
	require.ErrorIs(t, err, ErrInvalidPatch)
}

func TestChangeStateWhileClosed(t *testing.T) {
	s, _ := newService(t)
	_, _, err := s.ChangeState(context.Background(), conf, []PatchOp{
		{Op: "replace", Path: "/deadline", Value: json.RawMessage(`null`)},
	})
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestDeadlinePatch(t *testing.T) {
	s, roomService := newService(t)
	ctx := context.Background()
	join(t, roomService, "a")

	_, _, err := s.Open(ctx, conf, 1, nil, nil)
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Second)
	raw, err := json.Marshal(deadline)
	require.NoError(t, err)
	next, _, err := s.ChangeState(ctx, conf, []PatchOp{
		{Op: "replace", Path: "/deadline", Value: raw},
	})
	require.NoError(t, err)
	require.NotNil(t, next.Deadline)
	require.Equal(t, deadline, next.Deadline.UTC())
}

func TestCloseTearsDownRoomsAndState(t *testing.T) {
	s, roomService := newService(t)
	ctx := context.Background()
	join(t, roomService, "a", "b")

	_, _, err := s.Open(ctx, conf, 2, [][]domain.ParticipantID{{"a"}, {"b"}}, nil)
	require.NoError(t, err)

	_, err = s.Close(ctx, conf)
	require.NoError(t, err)

	after, err := s.State(ctx, conf)
	require.NoError(t, err)
	require.Nil(t, after)

	all, err := roomService.Rooms(ctx, conf)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, domain.DefaultRoomID, all[0].ID)

	for _, pid := range []domain.ParticipantID{"a", "b"} {
		room, err := roomService.RoomOfParticipant(ctx, conf, pid)
		require.NoError(t, err)
		require.Equal(t, domain.DefaultRoomID, room)
	}

	_, err = s.Close(ctx, conf)
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestRandomAssignDeterministicAndEven(t *testing.T) {
	participants := []domain.ParticipantID{"a", "b", "c", "d", "e"}

	first := RandomAssign(participants, 2, 42)
	second := RandomAssign(participants, 2, 42)
	require.Equal(t, first, second)

	// 5 over 2 rooms splits 3/2 with no duplicates.
	require.Len(t, first, 2)
	require.Len(t, first[0], 3)
	require.Len(t, first[1], 2)
	state := domain.BreakoutRoomsState{Amount: 2, Assignments: first}
	require.NoError(t, state.Validate())
	require.ElementsMatch(t, participants, state.Assigned())

	require.Nil(t, RandomAssign(participants, 0, 1))
}

func TestRoomNames(t *testing.T) {
	require.Equal(t, "Room A", roomName(0))
	require.Equal(t, "Room Z", roomName(25))
	require.Equal(t, "Room AA", roomName(26))
}

func TestSyncProviderValue(t *testing.T) {
	s, roomService := newService(t)
	ctx := context.Background()
	join(t, roomService, "a")

	provider := NewSyncProvider(s)
	object := syncobj.ObjectID{ID: SyncObjID}
	value, err := provider.FetchValue(ctx, conf, object)
	require.NoError(t, err)
	require.Nil(t, value.(SynchronizedBreakoutRooms).Active)

	_, _, err = s.Open(ctx, conf, 1, nil, nil)
	require.NoError(t, err)
	value, err = provider.FetchValue(ctx, conf, object)
	require.NoError(t, err)
	require.NotNil(t, value.(SynchronizedBreakoutRooms).Active)
}
