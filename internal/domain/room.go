// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxDisplayNameLen = 64

// DefaultRoomID is reserved for the room every participant lands in.
// It can never be removed.
const DefaultRoomID RoomID = "default"

var (
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

type (
	ConferenceID string
	RoomID       string
)

type Room struct {
	ID          RoomID `json:"id"`
	DisplayName string `json:"displayName"`
}

// NewRoom allocates a room with a fresh unique id. Rooms are never
// recreated under an old id, which is what makes room removal final.
func NewRoom(displayName string) (Room, error) {
	if len(displayName) == 0 {
		return Room{}, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return Room{}, ErrDisplayNameTooLong
	}
	return Room{ID: RoomID(uuid.NewString()), DisplayName: displayName}, nil
}
