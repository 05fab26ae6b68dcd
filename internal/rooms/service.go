package rooms

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/repository"
)

const defaultRoomName = "Main Hall"

// Service mutates the authoritative room state through the repository's
// atomic operations. It never holds an in-process lock across an operation;
// replica-safety comes entirely from the store.
type Service struct {
	rooms       repository.RoomRepository
	conferences repository.ConferenceRepository
	defaults    domain.ConferenceConfig
}

func NewService(rooms repository.RoomRepository, conferences repository.ConferenceRepository,
	defaults domain.ConferenceConfig) *Service {
	return &Service{rooms: rooms, conferences: conferences, defaults: defaults}
}

// Join puts the participant into the conference's default room, creating the
// conference and its default room on the first join.
func (s *Service) Join(ctx context.Context, conference domain.ConferenceID,
	participant domain.Participant) ([]dispatch.Notification, error) {
	var notifications []dispatch.Notification

	created, err := s.conferences.CreateConference(ctx, domain.Conference{ID: conference, Config: s.defaults})
	if err != nil {
		return nil, err
	}
	if created {
		if err := s.rooms.CreateRooms(ctx, conference, []domain.Room{
			{ID: domain.DefaultRoomID, DisplayName: defaultRoomName},
		}); err != nil {
			return nil, err
		}
		notifications = append(notifications, RoomsCreated{
			Conference: conference,
			RoomIDs:    []domain.RoomID{domain.DefaultRoomID},
		})
		log.Info().Str("module", "rooms").Str("conference", string(conference)).Msg("conference created")
	}

	if err := s.rooms.SetParticipantData(ctx, conference, participant); err != nil {
		return nil, err
	}
	if err := s.rooms.SetParticipantRoom(ctx, conference, participant.ID, domain.DefaultRoomID); err != nil {
		return nil, err
	}

	notifications = append(notifications,
		ParticipantJoined{Conference: conference, Participant: participant},
		ParticipantRoomChanged{Conference: conference, Participant: participant.ID, Room: domain.DefaultRoomID},
	)
	return notifications, nil
}

// Leave removes the participant's membership atomically. The same atomic
// unit decides whether this was the last participant; if so the conference
// is already closed for joins and the remaining scoped state is swept here.
func (s *Service) Leave(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID) ([]dispatch.Notification, error) {
	wasJoined, ended, err := s.rooms.RemoveParticipantSafe(ctx, conference, participant)
	if err != nil {
		return nil, err
	}
	if !wasJoined {
		return nil, nil
	}
	if err := s.rooms.RemoveParticipantData(ctx, conference, participant); err != nil {
		return nil, err
	}

	notifications := []dispatch.Notification{
		ParticipantLeft{Conference: conference, Participant: participant},
	}

	if ended {
		if err := s.conferences.EndConference(ctx, conference); err != nil {
			return nil, err
		}
		notifications = append(notifications, ConferenceEnded{Conference: conference})
		log.Info().Str("module", "rooms").Str("conference", string(conference)).Msg("conference ended")
	}
	return notifications, nil
}

// CreateRooms allocates rooms with fresh unique ids.
func (s *Service) CreateRooms(ctx context.Context, conference domain.ConferenceID,
	names []string) ([]domain.Room, []dispatch.Notification, error) {
	created := make([]domain.Room, 0, len(names))
	for _, name := range names {
		room, err := domain.NewRoom(name)
		if err != nil {
			return nil, nil, err
		}
		created = append(created, room)
	}
	if err := s.rooms.CreateRooms(ctx, conference, created); err != nil {
		return nil, nil, err
	}

	ids := make([]domain.RoomID, len(created))
	for i, room := range created {
		ids[i] = room.ID
	}
	return created, []dispatch.Notification{RoomsCreated{Conference: conference, RoomIDs: ids}}, nil
}

// RemoveRooms removes the given rooms and moves any still-joined participants
// back to the default room. The default room itself is skipped with a log,
// and a per-participant move failure is logged and skipped so the remaining
// participants are still processed. The returned notification lists only the
// rooms actually removed.
func (s *Service) RemoveRooms(ctx context.Context, conference domain.ConferenceID,
	roomIDs []domain.RoomID) ([]domain.RoomID, []dispatch.Notification, error) {
	var removed []domain.RoomID
	var notifications []dispatch.Notification

	for _, roomID := range roomIDs {
		if roomID == domain.DefaultRoomID {
			log.Warn().Str("module", "rooms").Str("conference", string(conference)).
				Msg("cannot remove the default room")
			continue
		}

		wasRemoved, members, err := s.rooms.RemoveRoom(ctx, conference, roomID)
		if err != nil {
			return removed, notifications, err
		}
		if !wasRemoved {
			log.Debug().Str("module", "rooms").Str("room", string(roomID)).Msg("room did not exist")
			continue
		}
		removed = append(removed, roomID)

		if len(members) > 0 {
			log.Debug().Str("module", "rooms").Str("room", string(roomID)).
				Int("count", len(members)).Msg("participants still in removed room, moving them")
		}
		for _, participant := range members {
			moveNotifications, err := s.SetParticipantRoom(ctx, conference, participant, domain.DefaultRoomID)
			if err != nil {
				log.Error().Err(err).Str("module", "rooms").
					Str("participant", string(participant)).
					Msg("failed to switch participant to the default room")
				continue
			}
			notifications = append(notifications, moveNotifications...)
		}
	}

	if len(removed) > 0 {
		notifications = append(notifications, RoomsRemoved{Conference: conference, RoomIDs: removed})
	}
	return removed, notifications, nil
}

// SetParticipantRoom moves one participant. It fails with ErrRoomNotFound
// when the target room is absent (or already removed) from the catalog.
func (s *Service) SetParticipantRoom(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, room domain.RoomID) ([]dispatch.Notification, error) {
	if err := s.rooms.SetParticipantRoom(ctx, conference, participant, room); err != nil {
		return nil, err
	}
	return []dispatch.Notification{
		ParticipantRoomChanged{Conference: conference, Participant: participant, Room: room},
	}, nil
}

// Rooms returns the current room catalog.
func (s *Service) Rooms(ctx context.Context, conference domain.ConferenceID) ([]domain.Room, error) {
	return s.rooms.GetRooms(ctx, conference)
}

// RoomOfParticipant reports which room a participant currently occupies.
func (s *Service) RoomOfParticipant(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID) (domain.RoomID, error) {
	all, err := s.rooms.GetParticipantRooms(ctx, conference)
	if err != nil {
		return "", err
	}
	room, ok := all[participant]
	if !ok {
		return "", fmt.Errorf("%w: participant %s not joined", repository.ErrRoomNotFound, participant)
	}
	return room, nil
}
