package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBreakoutStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   BreakoutRoomsState
		wantErr error
	}{
		{
			name:  "valid",
			state: BreakoutRoomsState{Amount: 2, Assignments: [][]ParticipantID{{"a", "b"}, {"c"}}},
		},
		{
			name:  "valid with empty rooms",
			state: BreakoutRoomsState{Amount: 3, Assignments: [][]ParticipantID{{"a"}}},
		},
		{
			name:    "zero amount",
			state:   BreakoutRoomsState{Amount: 0},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			state:   BreakoutRoomsState{Amount: -1},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "more lists than rooms",
			state:   BreakoutRoomsState{Amount: 1, Assignments: [][]ParticipantID{{"a"}, {"b"}}},
			wantErr: ErrAssignmentOutOfRange,
		},
		{
			name:    "participant in two rooms",
			state:   BreakoutRoomsState{Amount: 2, Assignments: [][]ParticipantID{{"a"}, {"a"}}},
			wantErr: ErrDuplicateAssignment,
		},
		{
			name:    "participant twice in one room",
			state:   BreakoutRoomsState{Amount: 2, Assignments: [][]ParticipantID{{"a", "a"}}},
			wantErr: ErrDuplicateAssignment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBreakoutStateUnassigned(t *testing.T) {
	state := BreakoutRoomsState{
		Amount:      2,
		Assignments: [][]ParticipantID{{"a"}, {"b", "c"}},
	}
	require.ElementsMatch(t, []ParticipantID{"a", "b", "c"}, state.Assigned())

	all := []ParticipantID{"a", "b", "c", "d", "e"}
	require.Equal(t, []ParticipantID{"d", "e"}, state.Unassigned(all))

	empty := BreakoutRoomsState{Amount: 1}
	require.Equal(t, all, empty.Unassigned(all))
}

func TestNewRoom(t *testing.T) {
	room, err := NewRoom("Standup")
	require.NoError(t, err)
	require.NotEmpty(t, room.ID)
	require.Equal(t, "Standup", room.DisplayName)

	other, err := NewRoom("Standup")
	require.NoError(t, err)
	require.NotEqual(t, room.ID, other.ID)

	_, err = NewRoom("")
	require.ErrorIs(t, err, ErrDisplayNameEmpty)
}
