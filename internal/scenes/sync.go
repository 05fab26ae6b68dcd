package scenes

import (
	"context"
	"fmt"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/repository"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const SyncObjID = "scenes"

// SyncProvider exposes one scene object per room, visible only to the
// participants currently inside that room.
type SyncProvider struct {
	service *Service
	rooms   repository.RoomRepository
}

func NewSyncProvider(service *Service, roomRepo repository.RoomRepository) *SyncProvider {
	return &SyncProvider{service: service, rooms: roomRepo}
}

func (p *SyncProvider) ID() string { return SyncObjID }

func (p *SyncProvider) AvailableObjects(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID) ([]syncobj.ObjectID, error) {
	joined, err := p.rooms.GetParticipantRooms(ctx, conference)
	if err != nil {
		return nil, err
	}
	room, ok := joined[participant]
	if !ok {
		return nil, nil
	}
	return []syncobj.ObjectID{objectID(room)}, nil
}

func (p *SyncProvider) FetchValue(ctx context.Context, conference domain.ConferenceID,
	id syncobj.ObjectID) (any, error) {
	room := domain.RoomID(id.Params["roomId"])
	if room == "" {
		return nil, fmt.Errorf("scene object %q without roomId", id.String())
	}
	return p.service.SceneOf(ctx, conference, room)
}

func objectID(room domain.RoomID) syncobj.ObjectID {
	return syncobj.NewObjectID(SyncObjID, map[string]string{"roomId": string(room)})
}
