package equipment

import (
	"context"
	"fmt"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const SyncObjID = "equipment"

// SynchronizedEquipment lists the devices a participant has paired. Only the
// owner ever receives it.
type SynchronizedEquipment struct {
	Items []domain.EquipmentItem `json:"items"`
}

type SyncProvider struct {
	service *Service
}

func NewSyncProvider(service *Service) *SyncProvider {
	return &SyncProvider{service: service}
}

func (p *SyncProvider) ID() string { return SyncObjID }

func (p *SyncProvider) AvailableObjects(_ context.Context, _ domain.ConferenceID,
	participant domain.ParticipantID) ([]syncobj.ObjectID, error) {
	return []syncobj.ObjectID{objectID(participant)}, nil
}

func (p *SyncProvider) FetchValue(ctx context.Context, conference domain.ConferenceID,
	id syncobj.ObjectID) (any, error) {
	participant := domain.ParticipantID(id.Params["participantId"])
	if participant == "" {
		return nil, fmt.Errorf("equipment object %q without participantId", id.String())
	}
	items, err := p.service.Items(ctx, conference, participant)
	if err != nil {
		return nil, err
	}
	return SynchronizedEquipment{Items: items}, nil
}

func objectID(participant domain.ParticipantID) syncobj.ObjectID {
	return syncobj.NewObjectID(SyncObjID, map[string]string{"participantId": string(participant)})
}
