package http

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Conclave/internal/breakout"
	"github.com/dkeye/Conclave/internal/chat"
	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/equipment"
	"github.com/dkeye/Conclave/internal/permissions"
	"github.com/dkeye/Conclave/internal/rooms"
	"github.com/dkeye/Conclave/internal/scenes"
)

// envelope is the wire form of every command: routing fields at the top
// level, the command-specific fields under payload.
type envelope struct {
	CommandType dispatch.Type `json:"type"`
	dispatch.Base
	Payload json.RawMessage `json:"payload"`
}

// DecodeFunc turns a payload into the concrete command of one type.
type DecodeFunc func(base dispatch.Base, payload json.RawMessage) (dispatch.Command, error)

// Codec maps wire command types onto their decoders.
type Codec struct {
	decoders map[dispatch.Type]DecodeFunc
}

func NewCodec() *Codec {
	return &Codec{decoders: make(map[dispatch.Type]DecodeFunc)}
}

func (c *Codec) MustRegister(t dispatch.Type, f DecodeFunc) {
	if _, exists := c.decoders[t]; exists {
		panic(fmt.Sprintf("command decoder %q registered twice", t))
	}
	c.decoders[t] = f
}

// Decode parses a raw request body into a typed command. Unknown types pass
// through as an error the endpoint maps to no_handler semantics.
func (c *Codec) Decode(raw []byte) (dispatch.Command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed command envelope: %w", err)
	}
	decode, ok := c.decoders[env.CommandType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommandType, env.CommandType)
	}
	return decode(env.Base, env.Payload)
}

// payload builds the decoder for one command type: unmarshal the payload into
// the zero command, then stamp the envelope fields over it.
func payload[T dispatch.Command, P interface {
	*T
	SetBase(dispatch.Base)
}]() DecodeFunc {
	return func(base dispatch.Base, raw json.RawMessage) (dispatch.Command, error) {
		var cmd T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &cmd); err != nil {
				return nil, fmt.Errorf("malformed command payload: %w", err)
			}
		}
		P(&cmd).SetBase(base)
		return cmd, nil
	}
}

// DefaultCodec knows every command the engine serves.
func DefaultCodec() *Codec {
	c := NewCodec()

	c.MustRegister(rooms.TypeJoin, payload[rooms.JoinCommand]())
	c.MustRegister(rooms.TypeLeave, payload[rooms.LeaveCommand]())
	c.MustRegister(rooms.TypeCreateRooms, payload[rooms.CreateRoomsCommand]())
	c.MustRegister(rooms.TypeRemoveRooms, payload[rooms.RemoveRoomsCommand]())
	c.MustRegister(rooms.TypeSetParticipantRoom, payload[rooms.SetParticipantRoomCommand]())

	c.MustRegister(breakout.TypeOpen, payload[breakout.OpenCommand]())
	c.MustRegister(breakout.TypeChangeAssignments, payload[breakout.ChangeAssignmentsCommand]())
	c.MustRegister(breakout.TypeExtendDeadline, payload[breakout.ExtendDeadlineCommand]())
	c.MustRegister(breakout.TypeClose, payload[breakout.CloseCommand]())

	c.MustRegister(scenes.TypeSetScene, payload[scenes.SetSceneCommand]())
	c.MustRegister(chat.TypeSetTyping, payload[chat.SetTypingCommand]())

	c.MustRegister(equipment.TypeRegister, payload[equipment.RegisterCommand]())
	c.MustRegister(equipment.TypeSendCommand, payload[equipment.SendCommandCommand]())

	c.MustRegister(permissions.TypeSetTemporaryPermission,
		payload[permissions.SetTemporaryPermissionCommand]())

	return c
}
