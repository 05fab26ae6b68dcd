// Package rooms owns the room catalog and the participant/room membership of
// a conference.
package rooms

import "github.com/dkeye/Conclave/internal/permissions"

const (
	// KeyCanCreateAndRemove guards explicit room creation and removal.
	KeyCanCreateAndRemove = "rooms/canCreateAndRemove"
	// KeyCanSwitchRoom guards moving a participant between rooms.
	KeyCanSwitchRoom = "rooms/canSwitchRoom"
)

// Permissions declares this package's permission descriptors for the
// process-wide registry.
func Permissions() []permissions.Descriptor {
	return []permissions.Descriptor{
		permissions.NewBool(KeyCanCreateAndRemove, false),
		permissions.NewBool(KeyCanSwitchRoom, true),
	}
}
