package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/pubsub"
)

// PermissionResolver evaluates a boolean permission for a participant.
// Satisfied by permissions.Resolver.
type PermissionResolver interface {
	HasPermission(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID, key string) (bool, error)
}

// Dispatcher routes commands to their handlers. Exactly one handler serves a
// command type; registration happens at startup, after which the handler map
// is read-only and dispatch needs no lock.
type Dispatcher struct {
	handlers map[Type]Handler
	resolver PermissionResolver
	bus      *pubsub.Broker[Notification]
}

func NewDispatcher(resolver PermissionResolver, bus *pubsub.Broker[Notification]) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[Type]Handler),
		resolver: resolver,
		bus:      bus,
	}
}

// Register binds a handler to a command type. A second handler for the same
// type is a configuration error.
func (d *Dispatcher) Register(t Type, h Handler) error {
	if _, exists := d.handlers[t]; exists {
		return fmt.Errorf("command type %q registered twice", t)
	}
	d.handlers[t] = h
	return nil
}

// MustRegister is Register for startup wiring, where a duplicate must kill
// the process.
func (d *Dispatcher) MustRegister(t Type, h Handler) {
	if err := d.Register(t, h); err != nil {
		panic(err)
	}
}

// Bus exposes the notification broker so consumers can subscribe.
func (d *Dispatcher) Bus() *pubsub.Broker[Notification] {
	return d.bus
}

// Dispatch validates, authorizes and executes cmd, then publishes the
// handler's notifications. Cancellation is honored only before the handler
// starts; once it is running the operation completes or fails on its own.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) *Result {
	if err := ctx.Err(); err != nil {
		return d.logged(cmd, Fail(CodeValidation, "command cancelled before dispatch"))
	}

	handler, ok := d.handlers[cmd.Type()]
	if !ok {
		return d.logged(cmd, Fail(CodeNoHandler, fmt.Sprintf("no handler for command type %q", cmd.Type())))
	}

	if err := cmd.Validate(); err != nil {
		return d.logged(cmd, Fail(CodeValidation, err.Error()))
	}

	for _, key := range handler.RequiredPermissions() {
		allowed, err := d.resolver.HasPermission(ctx, cmd.ConferenceID(), cmd.CallerID(), key)
		if err != nil {
			return d.logged(cmd, FromError(err))
		}
		if !allowed {
			return d.logged(cmd, Fail(CodePermissionDenied, fmt.Sprintf("missing permission %q", key)))
		}
	}

	result := handler.Handle(ctx, cmd)
	if result == nil {
		result = Ok()
	}

	if result.Success {
		// Fire-and-forget: listener failures or backpressure never roll
		// back the already-committed state change.
		for _, n := range result.Notifications {
			d.bus.Publish(n)
		}
	}

	return d.logged(cmd, result)
}

// logged writes the outcome with the level the error taxonomy demands:
// client-caused failures stay at debug, store failures at error.
func (d *Dispatcher) logged(cmd Command, result *Result) *Result {
	event := log.Debug()
	if result.Code == CodeStoreUnavailable {
		event = log.Error().Err(result.Err)
	}
	event.Str("module", "dispatch").
		Str("type", string(cmd.Type())).
		Str("conference", string(cmd.ConferenceID())).
		Str("caller", string(cmd.CallerID())).
		Bool("success", result.Success).
		Str("code", string(result.Code)).
		Msg("command dispatched")
	return result
}
