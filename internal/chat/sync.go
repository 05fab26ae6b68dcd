package chat

import (
	"context"
	"fmt"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/repository"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const SyncObjID = "chat"

// SynchronizedChat is the per-channel projection: who is typing right now.
type SynchronizedChat struct {
	ParticipantsTyping []domain.ParticipantID `json:"participantsTyping"`
}

// SyncProvider exposes one object per chat channel a participant can read:
// the global channel for everyone, the room channel for the room they are in.
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
	objects := []syncobj.ObjectID{channelObjectID(GlobalChannel)}
	joined, err := p.rooms.GetParticipantRooms(ctx, conference)
	if err != nil {
		return nil, err
	}
	if room, ok := joined[participant]; ok {
		objects = append(objects, channelObjectID(RoomChannel(room)))
	}
	return objects, nil
}

func (p *SyncProvider) FetchValue(ctx context.Context, conference domain.ConferenceID,
	id syncobj.ObjectID) (any, error) {
	channel := id.Params["channel"]
	if channel == "" {
		return nil, fmt.Errorf("chat object %q without channel", id.String())
	}
	typing, err := p.service.ParticipantsTyping(ctx, conference, channel)
	if err != nil {
		return nil, err
	}
	return SynchronizedChat{ParticipantsTyping: typing}, nil
}

func channelObjectID(channel string) syncobj.ObjectID {
	return syncobj.NewObjectID(SyncObjID, map[string]string{"channel": channel})
}
