// Package breakout manages the temporary breakout-room session of a
// conference: opening, reassigning participants and closing.
package breakout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/permissions"
	"github.com/dkeye/Conclave/internal/repository"
	"github.com/dkeye/Conclave/internal/rooms"
)

const KeyCanOpen = "breakoutRooms/canOpen"

func Permissions() []permissions.Descriptor {
	return []permissions.Descriptor{permissions.NewBool(KeyCanOpen, false)}
}

var (
	ErrAlreadyOpen  = errors.New("breakout rooms already open")
	ErrNotOpen      = errors.New("breakout rooms not open")
	ErrInvalidPatch = errors.New("invalid breakout rooms patch")
)

const KindBreakoutChanged = "breakout.changed"

// BreakoutChanged fires on open, close and every assignment or deadline
// change.
type BreakoutChanged struct {
	Conference domain.ConferenceID
}

func (n BreakoutChanged) Kind() string                      { return KindBreakoutChanged }
func (n BreakoutChanged) ConferenceID() domain.ConferenceID { return n.Conference }

type Service struct {
	state repository.BreakoutRepository
	rooms *rooms.Service
}

func NewService(state repository.BreakoutRepository, roomService *rooms.Service) *Service {
	return &Service{state: state, rooms: roomService}
}

// Open creates amount breakout rooms, stores the initial state and moves
// every assigned participant into their room.
func (s *Service) Open(ctx context.Context, conference domain.ConferenceID, amount int,
	assignments [][]domain.ParticipantID, deadline *time.Time) (*domain.BreakoutRoomsState, []dispatch.Notification, error) {
	initial := domain.BreakoutRoomsState{
		Amount:      amount,
		Assignments: assignments,
		Deadline:    deadline,
		IsOpen:      true,
	}
	if err := initial.Validate(); err != nil {
		return nil, nil, err
	}

	current, err := s.state.GetBreakoutState(ctx, conference)
	if err != nil {
		return nil, nil, err
	}
	if current != nil && current.IsOpen {
		return nil, nil, ErrAlreadyOpen
	}

	names := make([]string, amount)
	for i := range names {
		names[i] = roomName(i)
	}
	created, notifications, err := s.rooms.CreateRooms(ctx, conference, names)
	if err != nil {
		return nil, nil, err
	}
	initial.RoomIDs = make([]domain.RoomID, len(created))
	for i, room := range created {
		initial.RoomIDs[i] = room.ID
	}

	err = s.state.UpdateBreakoutState(ctx, conference, func(cur *domain.BreakoutRoomsState) (*domain.BreakoutRoomsState, error) {
		if cur != nil && cur.IsOpen {
			return nil, repository.BreakoutCallbackError(ErrAlreadyOpen)
		}
		return &initial, nil
	})
	if err != nil {
		// Lost the race against another replica: take the created rooms
		// back down, best effort.
		if _, _, removeErr := s.rooms.RemoveRooms(ctx, conference, initial.RoomIDs); removeErr != nil {
			log.Error().Err(removeErr).Str("module", "breakout").Msg("failed to clean up rooms after lost open race")
		}
		return nil, nil, err
	}

	notifications = append(notifications, s.moveAssigned(ctx, conference, nil, &initial)...)
	notifications = append(notifications, BreakoutChanged{Conference: conference})
	log.Info().Str("module", "breakout").Str("conference", string(conference)).
		Int("amount", amount).Msg("breakout rooms opened")
	return &initial, notifications, nil
}

// PatchOp is one JSON-patch operation against the mutable breakout state
// document, e.g. {"op": "replace", "path": "/deadline", "value": ...} or a
// structural edit below /assignments.
type PatchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// patchDoc is the slice of the state a patch may touch.
type patchDoc struct {
	Amount      int                      `json:"amount"`
	Assignments [][]domain.ParticipantID `json:"assignments"`
	Deadline    *time.Time               `json:"deadline"`
}

// ChangeState applies a patch to the stored state. An invalid patch or an
// assignment invariant violation rejects the whole patch; the stored state is
// left byte-for-byte unchanged.
func (s *Service) ChangeState(ctx context.Context, conference domain.ConferenceID,
	ops []PatchOp) (*domain.BreakoutRoomsState, []dispatch.Notification, error) {
	rawOps, err := json.Marshal(ops)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	patch, err := jsonpatch.DecodePatch(rawOps)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	var before, after *domain.BreakoutRoomsState
	err = s.state.UpdateBreakoutState(ctx, conference, func(cur *domain.BreakoutRoomsState) (*domain.BreakoutRoomsState, error) {
		if cur == nil || !cur.IsOpen {
			return nil, repository.BreakoutCallbackError(ErrNotOpen)
		}
		before = cur

		doc, err := json.Marshal(patchDoc{Amount: cur.Amount, Assignments: cur.Assignments, Deadline: cur.Deadline})
		if err != nil {
			return nil, err
		}
		patched, err := patch.Apply(doc)
		if err != nil {
			return nil, repository.BreakoutCallbackError(fmt.Errorf("%w: %v", ErrInvalidPatch, err))
		}
		var next patchDoc
		if err := json.Unmarshal(patched, &next); err != nil {
			return nil, repository.BreakoutCallbackError(fmt.Errorf("%w: %v", ErrInvalidPatch, err))
		}

		updated := *cur
		updated.Amount = next.Amount
		updated.Assignments = next.Assignments
		updated.Deadline = next.Deadline
		if updated.Amount != cur.Amount {
			// The number of rooms is fixed while open; reject silent resizes.
			return nil, repository.BreakoutCallbackError(domain.ErrAssignmentOutOfRange)
		}
		if err := updated.Validate(); err != nil {
			return nil, err
		}
		after = &updated
		return &updated, nil
	})
	if err != nil {
		return nil, nil, err
	}

	notifications := s.moveAssigned(ctx, conference, before, after)
	notifications = append(notifications, BreakoutChanged{Conference: conference})
	return after, notifications, nil
}

// Close removes every breakout room, returning their participants to the
// default room, and clears the stored state.
func (s *Service) Close(ctx context.Context, conference domain.ConferenceID) ([]dispatch.Notification, error) {
	current, err := s.state.GetBreakoutState(ctx, conference)
	if err != nil {
		return nil, err
	}
	if current == nil || !current.IsOpen {
		return nil, ErrNotOpen
	}

	_, notifications, err := s.rooms.RemoveRooms(ctx, conference, current.RoomIDs)
	if err != nil {
		return nil, err
	}

	err = s.state.UpdateBreakoutState(ctx, conference, func(*domain.BreakoutRoomsState) (*domain.BreakoutRoomsState, error) {
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	notifications = append(notifications, BreakoutChanged{Conference: conference})
	log.Info().Str("module", "breakout").Str("conference", string(conference)).Msg("breakout rooms closed")
	return notifications, nil
}

// State returns the current breakout state, nil when none is open.
func (s *Service) State(ctx context.Context, conference domain.ConferenceID) (*domain.BreakoutRoomsState, error) {
	return s.state.GetBreakoutState(ctx, conference)
}

// moveAssigned moves every participant whose assigned room changed between
// the two states. A single participant's failure is logged and skipped.
func (s *Service) moveAssigned(ctx context.Context, conference domain.ConferenceID,
	before, after *domain.BreakoutRoomsState) []dispatch.Notification {
	if after == nil {
		return nil
	}
	roomOf := func(state *domain.BreakoutRoomsState) map[domain.ParticipantID]domain.RoomID {
		out := make(map[domain.ParticipantID]domain.RoomID)
		if state == nil {
			return out
		}
		for i, assigned := range state.Assignments {
			if i >= len(state.RoomIDs) {
				break
			}
			for _, pid := range assigned {
				out[pid] = state.RoomIDs[i]
			}
		}
		return out
	}

	oldRooms, newRooms := roomOf(before), roomOf(after)
	var notifications []dispatch.Notification

	move := func(pid domain.ParticipantID, target domain.RoomID) {
		ns, err := s.rooms.SetParticipantRoom(ctx, conference, pid, target)
		if err != nil {
			log.Error().Err(err).Str("module", "breakout").
				Str("participant", string(pid)).Msg("failed to move participant for breakout assignment")
			return
		}
		notifications = append(notifications, ns...)
	}

	for pid, target := range newRooms {
		if oldRooms[pid] != target {
			move(pid, target)
		}
	}
	// Participants dropped from every assignment go back to the default room.
	for pid := range oldRooms {
		if _, still := newRooms[pid]; !still {
			move(pid, domain.DefaultRoomID)
		}
	}
	return notifications
}

// RandomAssign distributes all unassigned participants evenly across amount
// rooms: shuffle with the caller-supplied seed, then round-robin. Every
// participant lands in exactly one room.
func RandomAssign(participants []domain.ParticipantID, amount int, seed int64) [][]domain.ParticipantID {
	if amount <= 0 {
		return nil
	}
	shuffled := lo.Uniq(participants)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	out := make([][]domain.ParticipantID, amount)
	for i, pid := range shuffled {
		out[i%amount] = append(out[i%amount], pid)
	}
	return out
}

// roomName yields "Room A", "Room B", ..., "Room AA" past the alphabet.
func roomName(index int) string {
	letters := ""
	for index >= 0 {
		letters = string(rune('A'+index%26)) + letters
		index = index/26 - 1
	}
	return "Room " + letters
}
