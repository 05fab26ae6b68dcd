// Package dispatch implements the command pipeline: every mutating request
// enters as a typed Command, is routed to the single handler registered for
// its type, permission-checked, executed and its notifications published.
package dispatch

import (
	"context"

	"github.com/dkeye/Conclave/internal/domain"
)

// Type identifies the kind of command for handler routing.
type Type string

// Command is an explicit intent entering the engine. Concrete commands embed
// Base and add their typed fields.
type Command interface {
	Type() Type
	ConferenceID() domain.ConferenceID
	CallerID() domain.ParticipantID
	// Validate checks the command's own fields before any handler runs.
	Validate() error
}

// Base carries the envelope fields shared by every command.
type Base struct {
	Conference domain.ConferenceID  `json:"conferenceId"`
	Caller     domain.ParticipantID `json:"callerParticipantId"`
}

func (b Base) ConferenceID() domain.ConferenceID { return b.Conference }
func (b Base) CallerID() domain.ParticipantID    { return b.Caller }

// SetBase fills the envelope fields after the payload is decoded; transports
// use it through the pointer to a concrete command.
func (b *Base) SetBase(base Base) { *b = base }

// Handler executes one command type. RequiredPermissions lists the boolean
// permission keys the caller must hold; the pipeline evaluates them before
// Handle runs.
type Handler interface {
	RequiredPermissions() []string
	Handle(ctx context.Context, cmd Command) *Result
}

// As narrows a dispatched command to its concrete type. Handlers use it so a
// mismatched payload surfaces as a validation failure instead of a panic.
func As[T Command](cmd Command) (T, bool) {
	c, ok := cmd.(T)
	return c, ok
}

// Notification is an internal event published after a successful state
// mutation, consumed by the synchronized object engine and other services.
type Notification interface {
	Kind() string
	ConferenceID() domain.ConferenceID
}
