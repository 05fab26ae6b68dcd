package breakout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/repository"
)

const (
	TypeOpen              dispatch.Type = "breakoutRooms/open"
	TypeChangeAssignments dispatch.Type = "breakoutRooms/changeAssignments"
	TypeExtendDeadline    dispatch.Type = "breakoutRooms/extendDeadline"
	TypeClose             dispatch.Type = "breakoutRooms/close"
)

type OpenCommand struct {
	dispatch.Base
	Amount      int                      `json:"amount"`
	Assignments [][]domain.ParticipantID `json:"assignments,omitempty"`
	Deadline    *time.Time               `json:"deadline,omitempty"`
	// AssignRandomly distributes every unassigned joined participant across
	// the rooms. Seed makes the shuffle reproducible; zero means "pick one".
	AssignRandomly bool  `json:"assignRandomly,omitempty"`
	Seed           int64 `json:"seed,omitempty"`
}

func (c OpenCommand) Type() dispatch.Type { return TypeOpen }
func (c OpenCommand) Validate() error {
	if c.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	return nil
}

type ChangeAssignmentsCommand struct {
	dispatch.Base
	Patch []PatchOp `json:"patch"`
}

func (c ChangeAssignmentsCommand) Type() dispatch.Type { return TypeChangeAssignments }
func (c ChangeAssignmentsCommand) Validate() error {
	if len(c.Patch) == 0 {
		return errors.New("empty patch")
	}
	return nil
}

type ExtendDeadlineCommand struct {
	dispatch.Base
	Deadline time.Time `json:"deadline"`
}

func (c ExtendDeadlineCommand) Type() dispatch.Type { return TypeExtendDeadline }
func (c ExtendDeadlineCommand) Validate() error {
	if c.Deadline.IsZero() {
		return errors.New("deadline missing")
	}
	return nil
}

type CloseCommand struct {
	dispatch.Base
}

func (c CloseCommand) Type() dispatch.Type { return TypeClose }
func (c CloseCommand) Validate() error     { return nil }

// RegisterHandlers binds this package's command handlers. All of them demand
// the breakout permission; joining an assigned room happens through the
// regular room switch.
func RegisterHandlers(d *dispatch.Dispatcher, service *Service, rooms repository.RoomRepository) {
	d.MustRegister(TypeOpen, &openHandler{service, rooms})
	d.MustRegister(TypeChangeAssignments, &changeAssignmentsHandler{service})
	d.MustRegister(TypeExtendDeadline, &extendDeadlineHandler{service})
	d.MustRegister(TypeClose, &closeHandler{service})
}

// fromBreakoutError maps this package's sentinel errors before falling back
// to the shared mapping.
func fromBreakoutError(err error) *dispatch.Result {
	switch {
	case errors.Is(err, ErrAlreadyOpen), errors.Is(err, ErrNotOpen):
		return dispatch.Fail(dispatch.CodeConflict, err.Error())
	case errors.Is(err, ErrInvalidPatch):
		return dispatch.Fail(dispatch.CodeValidation, err.Error())
	default:
		return dispatch.FromError(err)
	}
}

type openHandler struct {
	service *Service
	rooms   repository.RoomRepository
}

func (h *openHandler) RequiredPermissions() []string { return []string{KeyCanOpen} }

func (h *openHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[OpenCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}

	assignments := c.Assignments
	if c.AssignRandomly {
		// The explicit part must fit on its own before merging: a row
		// beyond the room amount would otherwise be dropped silently.
		explicit := domain.BreakoutRoomsState{Amount: c.Amount, Assignments: assignments}
		if err := explicit.Validate(); err != nil {
			return dispatch.FromError(err)
		}
		joined, err := h.rooms.GetParticipantRooms(ctx, c.Conference)
		if err != nil {
			return dispatch.FromError(err)
		}
		all := make([]domain.ParticipantID, 0, len(joined))
		for pid := range joined {
			all = append(all, pid)
		}
		seed := c.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		unassigned := explicit.Unassigned(all)
		assignments = mergeAssignments(assignments, RandomAssign(unassigned, c.Amount, seed), c.Amount)
	}

	state, notifications, err := h.service.Open(ctx, c.Conference, c.Amount, assignments, c.Deadline)
	if err != nil {
		return fromBreakoutError(err)
	}
	return dispatch.OkValue(state, notifications...)
}

// mergeAssignments overlays the random distribution onto explicitly assigned
// participants, room index by room index.
func mergeAssignments(explicit, random [][]domain.ParticipantID, amount int) [][]domain.ParticipantID {
	out := make([][]domain.ParticipantID, amount)
	for i := 0; i < amount; i++ {
		if i < len(explicit) {
			out[i] = append(out[i], explicit[i]...)
		}
		if i < len(random) {
			out[i] = append(out[i], random[i]...)
		}
	}
	return out
}

type changeAssignmentsHandler struct{ service *Service }

func (h *changeAssignmentsHandler) RequiredPermissions() []string { return []string{KeyCanOpen} }

func (h *changeAssignmentsHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[ChangeAssignmentsCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	state, notifications, err := h.service.ChangeState(ctx, c.Conference, c.Patch)
	if err != nil {
		return fromBreakoutError(err)
	}
	return dispatch.OkValue(state, notifications...)
}

type extendDeadlineHandler struct{ service *Service }

func (h *extendDeadlineHandler) RequiredPermissions() []string { return []string{KeyCanOpen} }

func (h *extendDeadlineHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[ExtendDeadlineCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	raw, err := deadlineValue(c.Deadline)
	if err != nil {
		return dispatch.Fail(dispatch.CodeValidation, err.Error())
	}
	state, notifications, err := h.service.ChangeState(ctx, c.Conference, []PatchOp{
		{Op: "replace", Path: "/deadline", Value: raw},
	})
	if err != nil {
		return fromBreakoutError(err)
	}
	return dispatch.OkValue(state, notifications...)
}

type closeHandler struct{ service *Service }

func (h *closeHandler) RequiredPermissions() []string { return []string{KeyCanOpen} }

func (h *closeHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[CloseCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}
	notifications, err := h.service.Close(ctx, c.Conference)
	if err != nil {
		return fromBreakoutError(err)
	}
	return dispatch.Ok(notifications...)
}

func deadlineValue(t time.Time) (json.RawMessage, error) {
	return json.Marshal(t)
}
