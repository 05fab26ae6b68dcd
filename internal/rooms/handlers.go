package rooms

import (
	"context"
	"errors"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
)

const (
	TypeJoin               dispatch.Type = "conference/join"
	TypeLeave              dispatch.Type = "conference/leave"
	TypeCreateRooms        dispatch.Type = "rooms/create"
	TypeRemoveRooms        dispatch.Type = "rooms/remove"
	TypeSetParticipantRoom dispatch.Type = "rooms/setParticipantRoom"
)

var (
	errNoRoomNames = errors.New("no room names given")
	errNoRoomIDs   = errors.New("no room ids given")
	errNoRoomID    = errors.New("room id missing")
)

type JoinCommand struct {
	dispatch.Base
	DisplayName string `json:"displayName"`
}

func (c JoinCommand) Type() dispatch.Type { return TypeJoin }
func (c JoinCommand) Validate() error {
	_, err := domain.NewParticipant(c.Caller, c.DisplayName)
	return err
}

type LeaveCommand struct {
	dispatch.Base
}

func (c LeaveCommand) Type() dispatch.Type { return TypeLeave }
func (c LeaveCommand) Validate() error     { return nil }

type CreateRoomsCommand struct {
	dispatch.Base
	Names []string `json:"names"`
}

func (c CreateRoomsCommand) Type() dispatch.Type { return TypeCreateRooms }
func (c CreateRoomsCommand) Validate() error {
	if len(c.Names) == 0 {
		return errNoRoomNames
	}
	return nil
}

type RemoveRoomsCommand struct {
	dispatch.Base
	RoomIDs []domain.RoomID `json:"roomIds"`
}

func (c RemoveRoomsCommand) Type() dispatch.Type { return TypeRemoveRooms }
func (c RemoveRoomsCommand) Validate() error {
	if len(c.RoomIDs) == 0 {
		return errNoRoomIDs
	}
	return nil
}

type SetParticipantRoomCommand struct {
	dispatch.Base
	// Participant is the move target; empty means the caller moves itself.
	Participant domain.ParticipantID `json:"participantId,omitempty"`
	RoomID      domain.RoomID        `json:"roomId"`
}

func (c SetParticipantRoomCommand) Type() dispatch.Type { return TypeSetParticipantRoom }
func (c SetParticipantRoomCommand) Validate() error {
	if c.RoomID == "" {
		return errNoRoomID
	}
	return nil
}

func (c SetParticipantRoomCommand) target() domain.ParticipantID {
	if c.Participant != "" {
		return c.Participant
	}
	return c.Caller
}

// RegisterHandlers binds this package's command handlers.
func RegisterHandlers(d *dispatch.Dispatcher, service *Service) {
	d.MustRegister(TypeJoin, &joinHandler{service})
	d.MustRegister(TypeLeave, &leaveHandler{service})
	d.MustRegister(TypeCreateRooms, &createRoomsHandler{service})
	d.MustRegister(TypeRemoveRooms, &removeRoomsHandler{service})
	d.MustRegister(TypeSetParticipantRoom, &setParticipantRoomHandler{service})
}

type joinHandler struct{ service *Service }

func (h *joinHandler) RequiredPermissions() []string { return nil }

func (h *joinHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[JoinCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	participant := domain.Participant{ID: c.Caller, DisplayName: c.DisplayName}
	notifications, err := h.service.Join(ctx, c.Conference, participant)
	if err != nil {
		return dispatch.FromError(err)
	}
	return dispatch.Ok(notifications...)
}

type leaveHandler struct{ service *Service }

func (h *leaveHandler) RequiredPermissions() []string { return nil }

func (h *leaveHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[LeaveCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	notifications, err := h.service.Leave(ctx, c.Conference, c.Caller)
	if err != nil {
		return dispatch.FromError(err)
	}
	return dispatch.Ok(notifications...)
}

type createRoomsHandler struct{ service *Service }

func (h *createRoomsHandler) RequiredPermissions() []string {
	return []string{KeyCanCreateAndRemove}
}

func (h *createRoomsHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[CreateRoomsCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	created, notifications, err := h.service.CreateRooms(ctx, c.Conference, c.Names)
	if err != nil {
		return dispatch.FromError(err)
	}
	return dispatch.OkValue(created, notifications...)
}

type removeRoomsHandler struct{ service *Service }

func (h *removeRoomsHandler) RequiredPermissions() []string {
	return []string{KeyCanCreateAndRemove}
}

func (h *removeRoomsHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[RemoveRoomsCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	removed, notifications, err := h.service.RemoveRooms(ctx, c.Conference, c.RoomIDs)
	if err != nil {
		return dispatch.FromError(err)
	}
	return dispatch.OkValue(removed, notifications...)
}

type setParticipantRoomHandler struct{ service *Service }

func (h *setParticipantRoomHandler) RequiredPermissions() []string {
	return []string{KeyCanSwitchRoom}
}

func (h *setParticipantRoomHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[SetParticipantRoomCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	notifications, err := h.service.SetParticipantRoom(ctx, c.Conference, c.target(), c.RoomID)
	if err != nil {
		return dispatch.FromError(err)
	}
	return dispatch.Ok(notifications...)
}
