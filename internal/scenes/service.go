// Package scenes owns the per-room scene state: which layout a room shows
// and whether the automatic layout algorithm controls it.
package scenes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/permissions"
	"github.com/dkeye/Conclave/internal/repository"
	"github.com/dkeye/Conclave/internal/rooms"
)

const KeyCanSetScene = "scenes/canSetScene"

func Permissions() []permissions.Descriptor {
	return []permissions.Descriptor{permissions.NewBool(KeyCanSetScene, false)}
}

const KindSceneChanged = "scenes.changed"

type SceneChanged struct {
	Conference domain.ConferenceID
	Room       domain.RoomID
}

func (n SceneChanged) Kind() string                      { return KindSceneChanged }
func (n SceneChanged) ConferenceID() domain.ConferenceID { return n.Conference }

type Service struct {
	scenes      repository.SceneRepository
	rooms       repository.RoomRepository
	conferences repository.ConferenceRepository
}

func NewService(sceneRepo repository.SceneRepository, roomRepo repository.RoomRepository,
	conferences repository.ConferenceRepository) *Service {
	return &Service{scenes: sceneRepo, rooms: roomRepo, conferences: conferences}
}

// SetScene stores the scene of one room. A controlled room keeps the
// automatic scene regardless of the requested one; passing IsControlled
// false in the same request applies the explicit scene instead.
func (s *Service) SetScene(ctx context.Context, conference domain.ConferenceID,
	room domain.RoomID, state domain.SceneState) ([]dispatch.Notification, error) {
	_, exists, err := s.rooms.GetRoom(ctx, conference, room)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrRoomNotFound, room)
	}

	if state.IsControlled {
		state.Scene = domain.Scene{Type: domain.SceneAutomatic}
	}
	if err := s.scenes.SetSceneState(ctx, conference, room, state); err != nil {
		return nil, err
	}
	return []dispatch.Notification{SceneChanged{Conference: conference, Room: room}}, nil
}

// SceneOf returns the stored scene of a room, falling back to the configured
// default when none was set yet.
func (s *Service) SceneOf(ctx context.Context, conference domain.ConferenceID,
	room domain.RoomID) (domain.SceneState, error) {
	state, found, err := s.scenes.GetSceneState(ctx, conference, room)
	if err != nil {
		return domain.SceneState{}, err
	}
	if found {
		return state, nil
	}
	return s.defaultScene(ctx, conference, room)
}

func (s *Service) defaultScene(ctx context.Context, conference domain.ConferenceID,
	room domain.RoomID) (domain.SceneState, error) {
	conf, found, err := s.conferences.GetConference(ctx, conference)
	if err != nil {
		return domain.SceneState{}, err
	}
	if !found {
		return domain.AutomaticScene(), nil
	}
	if room == domain.DefaultRoomID {
		return conf.Config.DefaultRoomScene, nil
	}
	return conf.Config.RoomScene, nil
}

// Run applies the configured scene defaults whenever rooms come and go.
func (s *Service) Run(ctx context.Context, sub <-chan dispatch.Notification) {
	for n := range sub {
		s.HandleNotification(ctx, n)
	}
}

// HandleNotification reacts to room lifecycle notifications: created rooms
// receive their configured default scene, removed rooms lose their entry.
func (s *Service) HandleNotification(ctx context.Context, n dispatch.Notification) {
	switch v := n.(type) {
	case rooms.RoomsCreated:
		for _, room := range v.RoomIDs {
			state, err := s.defaultScene(ctx, v.Conference, room)
			if err != nil {
				log.Error().Err(err).Str("module", "scenes").Str("room", string(room)).
					Msg("cannot resolve default scene")
				continue
			}
			if err := s.scenes.SetSceneState(ctx, v.Conference, room, state); err != nil {
				log.Error().Err(err).Str("module", "scenes").Str("room", string(room)).
					Msg("cannot apply default scene")
			}
		}
	case rooms.RoomsRemoved:
		for _, room := range v.RoomIDs {
			if err := s.scenes.RemoveSceneState(ctx, v.Conference, room); err != nil {
				log.Error().Err(err).Str("module", "scenes").Str("room", string(room)).
					Msg("cannot drop scene of removed room")
			}
		}
	}
}
