package syncobj

import (
	"context"

	"github.com/dkeye/Conclave/internal/domain"
)

// Provider computes one family of synchronized objects from its owning
// domain service's authoritative state. Providers never own state; values
// are computed fresh on every fetch.
type Provider interface {
	// ID is the object id prefix this provider serves, e.g. "chat".
	ID() string
	// AvailableObjects lists the object ids the participant may currently
	// observe.
	AvailableObjects(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID) ([]ObjectID, error)
	// FetchValue computes the current value of one object.
	FetchValue(ctx context.Context, conference domain.ConferenceID, id ObjectID) (any, error)
}

// Pusher is the external notify channel. The engine calls it; transport is
// somebody else's problem.
type Pusher interface {
	PushUpdate(ctx context.Context, participant domain.ParticipantID, id ObjectID, value any) error
	PushRemoved(ctx context.Context, participant domain.ParticipantID, id ObjectID) error
}
