package breakout

import (
	"context"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const SyncObjID = "breakoutRooms"

// SynchronizedBreakoutRooms is pushed to every joined participant; Active is
// nil while no breakout session is open.
type SynchronizedBreakoutRooms struct {
	Active *domain.BreakoutRoomsState `json:"active"`
}

type SyncProvider struct {
	service *Service
}

func NewSyncProvider(service *Service) *SyncProvider {
	return &SyncProvider{service: service}
}

func (p *SyncProvider) ID() string { return SyncObjID }

func (p *SyncProvider) AvailableObjects(context.Context, domain.ConferenceID,
	domain.ParticipantID) ([]syncobj.ObjectID, error) {
	return []syncobj.ObjectID{{ID: SyncObjID}}, nil
}

func (p *SyncProvider) FetchValue(ctx context.Context, conference domain.ConferenceID,
	_ syncobj.ObjectID) (any, error) {
	state, err := p.service.State(ctx, conference)
	if err != nil {
		return nil, err
	}
	if state != nil && !state.IsOpen {
		state = nil
	}
	return SynchronizedBreakoutRooms{Active: state}, nil
}
