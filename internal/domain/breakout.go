package domain

import (
	"errors"
	"time"

	"github.com/samber/lo"
)

var (
	ErrDuplicateAssignment  = errors.New("participant assigned to more than one breakout room")
	ErrAssignmentOutOfRange = errors.New("assignment index outside breakout room amount")
	ErrInvalidAmount        = errors.New("breakout room amount must be positive")
)

// BreakoutRoomsState is the authoritative breakout-room configuration of a
// conference. Assignments maps room index to the ordered participants placed
// there; participants missing from every list are implicitly unassigned.
type BreakoutRoomsState struct {
	Amount      int               `json:"amount"`
	Assignments [][]ParticipantID `json:"assignments"`
	Deadline    *time.Time        `json:"deadline,omitempty"`
	IsOpen      bool              `json:"isOpen"`
	// RoomIDs are the rooms created for this breakout session, index-aligned
	// with Assignments.
	RoomIDs []RoomID `json:"roomIds"`
}

// Validate enforces the assignment invariant: no participant may appear in
// more than one room's list, and no list may exceed Amount room slots.
func (s BreakoutRoomsState) Validate() error {
	if s.Amount <= 0 {
		return ErrInvalidAmount
	}
	if len(s.Assignments) > s.Amount {
		return ErrAssignmentOutOfRange
	}
	seen := make(map[ParticipantID]struct{})
	for _, room := range s.Assignments {
		for _, id := range room {
			if _, dup := seen[id]; dup {
				return ErrDuplicateAssignment
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

// Assigned returns every participant that appears in some room's list.
func (s BreakoutRoomsState) Assigned() []ParticipantID {
	return lo.Flatten(s.Assignments)
}

// Unassigned is computed, never stored: everyone in all that is not assigned.
func (s BreakoutRoomsState) Unassigned(all []ParticipantID) []ParticipantID {
	assigned := s.Assigned()
	return lo.Without(all, assigned...)
}
