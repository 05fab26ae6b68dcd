package repository

import (
	"context"

	"github.com/dkeye/Conclave/internal/domain"
)

// ConferenceRepository owns the lifetime boundary of a conference.
type ConferenceRepository interface {
	// CreateConference stores the configuration if the conference does not
	// exist yet and reports whether this call created it. While a just-ended
	// conference is being torn down it fails with ErrConferenceEnding.
	CreateConference(ctx context.Context, conference domain.Conference) (bool, error)
	GetConference(ctx context.Context, conference domain.ConferenceID) (domain.Conference, bool, error)
	// EndConference deletes every key scoped to the conference.
	EndConference(ctx context.Context, conference domain.ConferenceID) error
}

// RoomRepository holds the room catalog and the participant/room membership.
// Membership is the unit of the race the atomic operations close: a
// participant never appears in two member sets, and a removed room can never
// be joined again.
type RoomRepository interface {
	CreateRooms(ctx context.Context, conference domain.ConferenceID, rooms []domain.Room) error
	GetRooms(ctx context.Context, conference domain.ConferenceID) ([]domain.Room, error)
	GetRoom(ctx context.Context, conference domain.ConferenceID, room domain.RoomID) (domain.Room, bool, error)

	// RemoveRoom atomically removes the room from the catalog, clears its
	// member set and unmaps the members, returning them. A second call on
	// the same room is a no-op returning (false, nil, nil).
	RemoveRoom(ctx context.Context, conference domain.ConferenceID, room domain.RoomID) (removed bool, members []domain.ParticipantID, err error)

	// SetParticipantRoom atomically moves the participant into the room,
	// failing with ErrRoomNotFound if the room is absent from the catalog
	// (a removed room no longer accepts joins).
	SetParticipantRoom(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID, room domain.RoomID) error

	// RemoveParticipantSafe removes the participant from its current room
	// membership as a single atomic unit, cleaning up the member set of an
	// already-removed room once it empties. Reports whether the participant
	// was joined at all and whether this removal emptied the conference; in
	// the ended case the same atomic unit closes the conference for joins,
	// so the caller can sweep the remaining state without racing one.
	RemoveParticipantSafe(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID) (wasJoined bool, ended bool, err error)

	GetParticipantsOfRoom(ctx context.Context, conference domain.ConferenceID,
		room domain.RoomID) ([]domain.ParticipantID, error)
	GetParticipantRooms(ctx context.Context, conference domain.ConferenceID) (map[domain.ParticipantID]domain.RoomID, error)

	SetParticipantData(ctx context.Context, conference domain.ConferenceID, participant domain.Participant) error
	RemoveParticipantData(ctx context.Context, conference domain.ConferenceID, participant domain.ParticipantID) error
	GetJoinedParticipants(ctx context.Context, conference domain.ConferenceID) ([]domain.Participant, error)
}

// TemporaryPermissionRepository stores per-participant permission overrides
// that live until explicitly cleared or the conference ends.
type TemporaryPermissionRepository interface {
	SetTemporaryPermission(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID, key string, value any) error
	RemoveTemporaryPermission(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID, key string) error
	GetTemporaryPermissions(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID) (map[string]any, error)
}

// BreakoutRepository stores the breakout-room state. Update runs an
// optimistic transaction: concurrent writers retry instead of losing writes,
// and a nil new state clears the entry.
type BreakoutRepository interface {
	GetBreakoutState(ctx context.Context, conference domain.ConferenceID) (*domain.BreakoutRoomsState, error)
	UpdateBreakoutState(ctx context.Context, conference domain.ConferenceID,
		update func(current *domain.BreakoutRoomsState) (*domain.BreakoutRoomsState, error)) error
}

// SceneRepository stores the per-room scene state.
type SceneRepository interface {
	SetSceneState(ctx context.Context, conference domain.ConferenceID, room domain.RoomID, state domain.SceneState) error
	GetSceneState(ctx context.Context, conference domain.ConferenceID, room domain.RoomID) (domain.SceneState, bool, error)
	RemoveSceneState(ctx context.Context, conference domain.ConferenceID, room domain.RoomID) error
	GetAllScenes(ctx context.Context, conference domain.ConferenceID) (map[domain.RoomID]domain.SceneState, error)
}

// ChatRepository stores the typing indicator membership per chat channel.
type ChatRepository interface {
	SetParticipantTyping(ctx context.Context, conference domain.ConferenceID, channel string,
		participant domain.ParticipantID, isTyping bool) error
	GetParticipantsTyping(ctx context.Context, conference domain.ConferenceID, channel string) ([]domain.ParticipantID, error)
	// ClearParticipantTyping drops the participant from every channel's
	// typing set, used when they leave or switch rooms.
	ClearParticipantTyping(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID) error
}

// EquipmentRepository stores the companion devices registered per participant.
type EquipmentRepository interface {
	AddEquipment(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID, item domain.EquipmentItem) error
	GetEquipment(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID) ([]domain.EquipmentItem, error)
}
