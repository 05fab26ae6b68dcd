package equipment

import (
	"context"
	"errors"

	"github.com/dkeye/Conclave/internal/dispatch"
)

var ErrEquipmentNotFound = errors.New("equipment not found")

const (
	TypeRegister    dispatch.Type = "equipment/register"
	TypeSendCommand dispatch.Type = "equipment/sendCommand"
)

type RegisterCommand struct {
	dispatch.Base
	Name string `json:"name"`
}

func (c RegisterCommand) Type() dispatch.Type { return TypeRegister }
func (c RegisterCommand) Validate() error {
	if c.Name == "" {
		return errors.New("equipment name missing")
	}
	return nil
}

type SendCommandCommand struct {
	dispatch.Base
	ItemID string `json:"itemId"`
	Action string `json:"action"`
}

func (c SendCommandCommand) Type() dispatch.Type { return TypeSendCommand }
func (c SendCommandCommand) Validate() error {
	if c.ItemID == "" {
		return errors.New("equipment item id missing")
	}
	if c.Action == "" {
		return errors.New("equipment action missing")
	}
	return nil
}

func RegisterHandlers(d *dispatch.Dispatcher, service *Service) {
	d.MustRegister(TypeRegister, &registerHandler{service})
	d.MustRegister(TypeSendCommand, &sendCommandHandler{service})
}

type registerHandler struct{ service *Service }

func (h *registerHandler) RequiredPermissions() []string { return []string{KeyCanUse} }

func (h *registerHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[RegisterCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	item, notifications, err := h.service.Register(ctx, c.Conference, c.Caller, c.Name)
	if err != nil {
		return dispatch.FromError(err)
	}
	return dispatch.OkValue(item, notifications...)
}

type sendCommandHandler struct{ service *Service }

func (h *sendCommandHandler) RequiredPermissions() []string { return []string{KeyCanUse} }

func (h *sendCommandHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[SendCommandCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	notifications, err := h.service.SendCommand(ctx, c.Conference, c.Caller, c.ItemID, c.Action)
	if err != nil {
		if errors.Is(err, ErrEquipmentNotFound) {
			return dispatch.Fail(dispatch.CodeNotFound, err.Error())
		}
		return dispatch.FromError(err)
	}
	return dispatch.Ok(notifications...)
}
