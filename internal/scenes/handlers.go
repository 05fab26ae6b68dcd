package scenes

import (
	"context"
	"errors"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
)

const TypeSetScene dispatch.Type = "scenes/setScene"

type SetSceneCommand struct {
	dispatch.Base
	RoomID domain.RoomID     `json:"roomId"`
	State  domain.SceneState `json:"state"`
}

func (c SetSceneCommand) Type() dispatch.Type { return TypeSetScene }
func (c SetSceneCommand) Validate() error {
	if c.RoomID == "" {
		return errors.New("room id missing")
	}
	if !c.State.IsControlled {
		switch c.State.Scene.Type {
		case domain.SceneAutomatic, domain.SceneGrid, domain.SceneCustom:
		default:
			return errors.New("unknown scene type")
		}
	}
	return nil
}

func RegisterHandlers(d *dispatch.Dispatcher, service *Service) {
	d.MustRegister(TypeSetScene, &setSceneHandler{service})
}

type setSceneHandler struct{ service *Service }

func (h *setSceneHandler) RequiredPermissions() []string { return []string{KeyCanSetScene} }

func (h *setSceneHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[SetSceneCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	notifications, err := h.service.SetScene(ctx, c.Conference, c.RoomID, c.State)
	if err != nil {
		return dispatch.FromError(err)
	}
	return dispatch.Ok(notifications...)
}
