package rooms

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/repository"
)

const conf = domain.ConferenceID("conf-1")

func newService(t *testing.T) (*Service, *repository.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := repository.NewClient(rdb)
	return NewService(repo, repo, domain.ConferenceConfig{ShowTyping: true}), repo
}

func kinds(notifications []dispatch.Notification) []string {
	out := make([]string, len(notifications))
	for i, n := range notifications {
		out[i] = n.Kind()
	}
	return out
}

func TestJoinCreatesConferenceAndDefaultRoom(t *testing.T) {
	s, repo := newService(t)
	ctx := context.Background()

	notifications, err := s.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)
	require.Equal(t, []string{
		KindRoomsCreated, KindParticipantJoined, KindParticipantRoomChanged,
	}, kinds(notifications))

	rooms, err := s.Rooms(ctx, conf)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, domain.DefaultRoomID, rooms[0].ID)

	room, err := s.RoomOfParticipant(ctx, conf, "p1")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultRoomID, room)

	// A second join does not recreate the conference.
	notifications, err = s.Join(ctx, conf, domain.Participant{ID: "p2", DisplayName: "Bob"})
	require.NoError(t, err)
	require.Equal(t, []string{KindParticipantJoined, KindParticipantRoomChanged}, kinds(notifications))

	conference, found, err := repo.GetConference(ctx, conf)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, conference.Config.ShowTyping)
}

func TestLastLeaverEndsConference(t *testing.T) {
	s, repo := newService(t)
	ctx := context.Background()

	_, err := s.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)
	_, err = s.Join(ctx, conf, domain.Participant{ID: "p2", DisplayName: "Bob"})
	require.NoError(t, err)

	notifications, err := s.Leave(ctx, conf, "p1")
	require.NoError(t, err)
	require.Equal(t, []string{KindParticipantLeft}, kinds(notifications))

	notifications, err = s.Leave(ctx, conf, "p2")
	require.NoError(t, err)
	require.Equal(t, []string{KindParticipantLeft, KindConferenceEnded}, kinds(notifications))

	_, found, err := repo.GetConference(ctx, conf)
	require.NoError(t, err)
	require.False(t, found)

	// Leaving twice is harmless and silent.
	notifications, err = s.Leave(ctx, conf, "p2")
	require.NoError(t, err)
	require.Empty(t, notifications)
}

func TestJoinDuringTeardownIsRefused(t *testing.T) {
	s, repo := newService(t)
	ctx := context.Background()

	_, err := s.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)

	// The last removal closes the conference in the same atomic unit; with
	// the teardown sweep still pending, a racing join must be refused
	// instead of ending up orphaned by the sweep.
	_, ended, err := repo.RemoveParticipantSafe(ctx, conf, "p1")
	require.NoError(t, err)
	require.True(t, ended)

	_, err = s.Join(ctx, conf, domain.Participant{ID: "p2", DisplayName: "Bob"})
	require.ErrorIs(t, err, repository.ErrConferenceEnding)
}

func TestCreateRoomsAssignsFreshIDs(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	created, notifications, err := s.CreateRooms(ctx, conf, []string{"Alpha", "Beta"})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.NotEqual(t, created[0].ID, created[1].ID)
	require.Equal(t, []string{KindRoomsCreated}, kinds(notifications))

	_, _, err = s.CreateRooms(ctx, conf, []string{""})
	require.ErrorIs(t, err, domain.ErrDisplayNameEmpty)
}

func TestRemoveRoomsMovesMembersToDefault(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)
	created, _, err := s.CreateRooms(ctx, conf, []string{"Side"})
	require.NoError(t, err)
	side := created[0].ID

	_, err = s.SetParticipantRoom(ctx, conf, "p1", side)
	require.NoError(t, err)

	removed, notifications, err := s.RemoveRooms(ctx, conf, []domain.RoomID{side})
	require.NoError(t, err)
	require.Equal(t, []domain.RoomID{side}, removed)
	require.Contains(t, kinds(notifications), KindParticipantRoomChanged)
	require.Contains(t, kinds(notifications), KindRoomsRemoved)

	room, err := s.RoomOfParticipant(ctx, conf, "p1")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultRoomID, room)
}

func TestRemoveRoomsSkipsDefaultAndMissing(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)

	removed, notifications, err := s.RemoveRooms(ctx, conf,
		[]domain.RoomID{domain.DefaultRoomID, "ghost"})
	require.NoError(t, err)
	require.Empty(t, removed)
	// Nothing was removed, so no notification fires.
	require.Empty(t, notifications)

	rooms, err := s.Rooms(ctx, conf)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
}

func TestSetParticipantRoomUnknownRoom(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)

	_, err = s.SetParticipantRoom(ctx, conf, "p1", "ghost")
	require.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestSyncProviderProjection(t *testing.T) {
	s, repo := newService(t)
	ctx := context.Background()

	_, err := s.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)
	created, _, err := s.CreateRooms(ctx, conf, []string{"Side"})
	require.NoError(t, err)
	_, err = s.SetParticipantRoom(ctx, conf, "p1", created[0].ID)
	require.NoError(t, err)

	provider := NewSyncProvider(repo)
	objects, err := provider.AvailableObjects(ctx, conf, "p1")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	require.Equal(t, SyncObjID, objects[0].ID)

	value, err := provider.FetchValue(ctx, conf, objects[0])
	require.NoError(t, err)
	projection, ok := value.(SynchronizedRooms)
	require.True(t, ok)
	require.Len(t, projection.Rooms, 2)
	require.Equal(t, created[0].ID, projection.Participants["p1"])
	require.Equal(t, domain.DefaultRoomID, projection.DefaultRoom)
}
