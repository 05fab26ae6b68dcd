package scenes

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/repository"
	"github.com/dkeye/Conclave/internal/rooms"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const conf = domain.ConferenceID("conf-1")

func newFixture(t *testing.T) (*Service, *rooms.Service, *repository.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := repository.NewClient(rdb)

	defaults := domain.ConferenceConfig{
		DefaultRoomScene: domain.SceneState{Scene: domain.Scene{Type: domain.SceneGrid}},
		RoomScene:        domain.AutomaticScene(),
	}
	roomService := rooms.NewService(repo, repo, defaults)
	return NewService(repo, repo, repo), roomService, repo
}

func TestSetSceneUnknownRoom(t *testing.T) {
	s, roomService, _ := newFixture(t)
	ctx := context.Background()
	_, err := roomService.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)

	_, err = s.SetScene(ctx, conf, "ghost", domain.AutomaticScene())
	require.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestSetSceneHandlerDemandsPermission(t *testing.T) {
	h := &setSceneHandler{}
	require.Equal(t, []string{KeyCanSetScene}, h.RequiredPermissions())
}

func TestSetSceneStoresExplicitScene(t *testing.T) {
	s, roomService, _ := newFixture(t)
	ctx := context.Background()
	_, err := roomService.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)

	want := domain.SceneState{Scene: domain.Scene{Type: domain.SceneGrid}}
	notifications, err := s.SetScene(ctx, conf, domain.DefaultRoomID, want)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, KindSceneChanged, notifications[0].Kind())

	got, err := s.SceneOf(ctx, conf, domain.DefaultRoomID)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestControlledRoomForcesAutomaticScene(t *testing.T) {
	s, roomService, _ := newFixture(t)
	ctx := context.Background()
	_, err := roomService.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)

	_, err = s.SetScene(ctx, conf, domain.DefaultRoomID, domain.SceneState{
		IsControlled: true,
		Scene:        domain.Scene{Type: domain.SceneGrid},
	})
	require.NoError(t, err)

	got, err := s.SceneOf(ctx, conf, domain.DefaultRoomID)
	require.NoError(t, err)
	require.True(t, got.IsControlled)
	require.Equal(t, domain.SceneAutomatic, got.Scene.Type)

	// Releasing control in the same request applies the explicit scene.
	_, err = s.SetScene(ctx, conf, domain.DefaultRoomID, domain.SceneState{
		IsControlled: false,
		Scene:        domain.Scene{Type: domain.SceneGrid},
	})
	require.NoError(t, err)
	got, err = s.SceneOf(ctx, conf, domain.DefaultRoomID)
	require.NoError(t, err)
	require.False(t, got.IsControlled)
	require.Equal(t, domain.SceneGrid, got.Scene.Type)
}

func TestDefaultsAppliedOnRoomLifecycle(t *testing.T) {
	s, roomService, _ := newFixture(t)
	ctx := context.Background()
	_, err := roomService.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)

	// The default room inherits the configured default-room scene.
	s.HandleNotification(ctx, rooms.RoomsCreated{
		Conference: conf, RoomIDs: []domain.RoomID{domain.DefaultRoomID},
	})
	got, err := s.SceneOf(ctx, conf, domain.DefaultRoomID)
	require.NoError(t, err)
	require.Equal(t, domain.SceneGrid, got.Scene.Type)

	// Other rooms inherit the general room scene.
	created, notifications, err := roomService.CreateRooms(ctx, conf, []string{"Side"})
	require.NoError(t, err)
	for _, n := range notifications {
		s.HandleNotification(ctx, n)
	}
	got, err = s.SceneOf(ctx, conf, created[0].ID)
	require.NoError(t, err)
	require.Equal(t, domain.SceneAutomatic, got.Scene.Type)

	// Removal drops the stored entry.
	_, notifications, err = roomService.RemoveRooms(ctx, conf, []domain.RoomID{created[0].ID})
	require.NoError(t, err)
	for _, n := range notifications {
		s.HandleNotification(ctx, n)
	}
	all, err := repositoryScenes(ctx, s)
	require.NoError(t, err)
	require.NotContains(t, all, created[0].ID)
}

func repositoryScenes(ctx context.Context, s *Service) (map[domain.RoomID]domain.SceneState, error) {
	return s.scenes.GetAllScenes(ctx, conf)
}

func TestSyncProviderScopesToCurrentRoom(t *testing.T) {
	s, roomService, repo := newFixture(t)
	ctx := context.Background()
	_, err := roomService.Join(ctx, conf, domain.Participant{ID: "p1", DisplayName: "Ada"})
	require.NoError(t, err)
	created, _, err := roomService.CreateRooms(ctx, conf, []string{"Side"})
	require.NoError(t, err)

	provider := NewSyncProvider(s, repo)
	objects, err := provider.AvailableObjects(ctx, conf, "p1")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	require.Equal(t, map[string]string{"roomId": string(domain.DefaultRoomID)}, objects[0].Params)

	_, err = roomService.SetParticipantRoom(ctx, conf, "p1", created[0].ID)
	require.NoError(t, err)
	objects, err = provider.AvailableObjects(ctx, conf, "p1")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"roomId": string(created[0].ID)}, objects[0].Params)

	// Participants outside the conference see nothing.
	objects, err = provider.AvailableObjects(ctx, conf, "stranger")
	require.NoError(t, err)
	require.Empty(t, objects)

	value, err := provider.FetchValue(ctx, conf, sceneObject(created[0].ID))
	require.NoError(t, err)
	require.Equal(t, domain.SceneAutomatic, value.(domain.SceneState).Scene.Type)
}

func sceneObject(room domain.RoomID) syncobj.ObjectID {
	return syncobj.NewObjectID(SyncObjID, map[string]string{"roomId": string(room)})
}
