package rooms

import (
	"context"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/repository"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const SyncObjID = "rooms"

// SynchronizedRooms is the projection every joined participant observes: the
// room catalog plus who is where.
type SynchronizedRooms struct {
	Rooms        []domain.Room                          `json:"rooms"`
	Participants map[domain.ParticipantID]domain.RoomID `json:"participants"`
	DefaultRoom  domain.RoomID                          `json:"defaultRoomId"`
}

// SyncProvider computes the rooms synchronized object.
type SyncProvider struct {
	rooms repository.RoomRepository
}

func NewSyncProvider(roomRepo repository.RoomRepository) *SyncProvider {
	return &SyncProvider{rooms: roomRepo}
}

func (p *SyncProvider) ID() string { return SyncObjID }

func (p *SyncProvider) AvailableObjects(context.Context, domain.ConferenceID,
	domain.ParticipantID) ([]syncobj.ObjectID, error) {
	// Every joined participant sees the room overview.
	return []syncobj.ObjectID{{ID: SyncObjID}}, nil
}

func (p *SyncProvider) FetchValue(ctx context.Context, conference domain.ConferenceID,
	_ syncobj.ObjectID) (any, error) {
	roomList, err := p.rooms.GetRooms(ctx, conference)
	if err != nil {
		return nil, err
	}
	participants, err := p.rooms.GetParticipantRooms(ctx, conference)
	if err != nil {
		return nil, err
	}
	return SynchronizedRooms{
		Rooms:        roomList,
		Participants: participants,
		DefaultRoom:  domain.DefaultRoomID,
	}, nil
}
