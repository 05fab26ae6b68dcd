// Package chat owns the chat channels of a conference and the typing
// indicator attached to each of them.
package chat

import (
	"fmt"
	"strings"

	"github.com/dkeye/Conclave/internal/domain"
)

// GlobalChannel is the conference-wide channel every participant can see.
const GlobalChannel = "global"

const roomChannelPrefix = "room:"

// RoomChannel names the private channel of one room.
func RoomChannel(room domain.RoomID) string {
	return roomChannelPrefix + string(room)
}

// ParseChannel validates a channel name and returns the room it is scoped to,
// if any.
func ParseChannel(channel string) (room domain.RoomID, scoped bool, err error) {
	if channel == GlobalChannel {
		return "", false, nil
	}
	if id, ok := strings.CutPrefix(channel, roomChannelPrefix); ok && id != "" {
		return domain.RoomID(id), true, nil
	}
	return "", false, fmt.Errorf("unknown chat channel %q", channel)
}
