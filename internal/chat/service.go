package chat

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

const KeyCanSendMessage = "chat/canSendMessage"

func Permissions() []permissions.Descriptor {
	return []permissions.Descriptor{permissions.NewBool(KeyCanSendMessage, true)}
}

const KindTypingChanged = "chat.typingChanged"

type TypingChanged struct {
	Conference domain.ConferenceID
	Channel    string
}

func (n TypingChanged) Kind() string                      { return KindTypingChanged }
func (n TypingChanged) ConferenceID() domain.ConferenceID { return n.Conference }

type Service struct {
	chat        repository.ChatRepository
	rooms       repository.RoomRepository
	conferences repository.ConferenceRepository
}

func NewService(chatRepo repository.ChatRepository, roomRepo repository.RoomRepository,
	conferences repository.ConferenceRepository) *Service {
	return &Service{chat: chatRepo, rooms: roomRepo, conferences: conferences}
}

// SetTyping flips the typing flag of a participant in one channel. When the
// conference has the typing indicator disabled the call is accepted but
// nothing is stored, so clients need not know the setting.
func (s *Service) SetTyping(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, channel string, isTyping bool) ([]dispatch.Notification, error) {
	room, scoped, err := ParseChannel(channel)
	if err != nil {
		return nil, err
	}
	if scoped {
		_, exists, err := s.rooms.GetRoom(ctx, conference, room)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", repository.ErrRoomNotFound, room)
		}
	}

	enabled, err := s.typingEnabled(ctx, conference)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}

	if err := s.chat.SetParticipantTyping(ctx, conference, channel, participant, isTyping); err != nil {
		return nil, err
	}
	return []dispatch.Notification{TypingChanged{Conference: conference, Channel: channel}}, nil
}

// ParticipantsTyping lists who is currently typing in a channel; always empty
// while the indicator is disabled.
func (s *Service) ParticipantsTyping(ctx context.Context, conference domain.ConferenceID,
	channel string) ([]domain.ParticipantID, error) {
	enabled, err := s.typingEnabled(ctx, conference)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return []domain.ParticipantID{}, nil
	}
	return s.chat.GetParticipantsTyping(ctx, conference, channel)
}

// Run clears stale typing flags whenever participants move or leave.
func (s *Service) Run(ctx context.Context, sub <-chan dispatch.Notification) {
	for n := range sub {
		s.HandleNotification(ctx, n)
	}
}

// HandleNotification drops a participant's typing flags when they leave the
// conference or switch rooms, so no channel keeps showing a departed
// participant as typing.
func (s *Service) HandleNotification(ctx context.Context, n dispatch.Notification) {
	var participant domain.ParticipantID
	switch v := n.(type) {
	case rooms.ParticipantLeft:
		participant = v.Participant
	case rooms.ParticipantRoomChanged:
		participant = v.Participant
	default:
		return
	}
	if err := s.chat.ClearParticipantTyping(ctx, n.ConferenceID(), participant); err != nil {
		log.Error().Err(err).Str("module", "chat").Str("participant", string(participant)).
			Msg("cannot clear typing flags")
	}
}

func (s *Service) typingEnabled(ctx context.Context, conference domain.ConferenceID) (bool, error) {
	conf, found, err := s.conferences.GetConference(ctx, conference)
	if err != nil {
		return false, err
	}
	return found && conf.Config.ShowTyping, nil
}
