package chat

import (
	"context"
	"errors"

	"github.com/dkeye/Conclave/internal/dispatch"
)

const TypeSetTyping dispatch.Type = "chat/setTyping"

type SetTypingCommand struct {
	dispatch.Base
	Channel  string `json:"channel"`
	IsTyping bool   `json:"isTyping"`
}

func (c SetTypingCommand) Type() dispatch.Type { return TypeSetTyping }
func (c SetTypingCommand) Validate() error {
	if c.Channel == "" {
		return errors.New("channel missing")
	}
	if _, _, err := ParseChannel(c.Channel); err != nil {
		return err
	}
	return nil
}

func RegisterHandlers(d *dispatch.Dispatcher, service *Service) {
	d.MustRegister(TypeSetTyping, &setTypingHandler{service})
}

type setTypingHandler struct{ service *Service }

func (h *setTypingHandler) RequiredPermissions() []string { return []string{KeyCanSendMessage} }

func (h *setTypingHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[SetTypingCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	notifications, err := h.service.SetTyping(ctx, c.Conference, c.Caller, c.Channel, c.IsTyping)
	if err != nil {
		return dispatch.FromError(err)
	}
	return dispatch.Ok(notifications...)
}
