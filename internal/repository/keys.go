package repository

import (
	"fmt"

	"github.com/dkeye/Conclave/internal/domain"
)

// All keys are scoped by conference id so conferences are fully isolated on a
// shared store and can be torn down with one scan.
//
//	conference:{id}:config                         conference configuration (json)
//	conference:{id}:ended                          teardown marker (short ttl)
//	conference:{id}:rooms                          hash roomId -> displayName
//	conference:{id}:room:{roomId}:members          set of participant ids
//	conference:{id}:participants                   hash participantId -> roomId
//	conference:{id}:participantData                hash participantId -> displayName
//	conference:{id}:tempPermission:{participantId} hash permissionKey -> value (json)
//	conference:{id}:breakoutRooms                  breakout state (json)
//	conference:{id}:scenes                         hash roomId -> scene state (json)
//	conference:{id}:chat:{channel}:typing          set of participant ids
//	conference:{id}:equipment:{participantId}      hash equipmentId -> item (json)

func confKey(conference domain.ConferenceID, suffix string) string {
	return fmt.Sprintf("conference:%s:%s", conference, suffix)
}

func configKey(c domain.ConferenceID) string       { return confKey(c, "config") }
func endedKey(c domain.ConferenceID) string        { return confKey(c, "ended") }
func roomsKey(c domain.ConferenceID) string        { return confKey(c, "rooms") }
func participantsKey(c domain.ConferenceID) string { return confKey(c, "participants") }
func participantDataKey(c domain.ConferenceID) string {
	return confKey(c, "participantData")
}
func breakoutKey(c domain.ConferenceID) string { return confKey(c, "breakoutRooms") }
func scenesKey(c domain.ConferenceID) string   { return confKey(c, "scenes") }

// roomMembersPrefix is handed to the lua scripts, which append
// "{roomId}:members" to address a room's member set.
func roomMembersPrefix(c domain.ConferenceID) string { return confKey(c, "room:") }

func roomMembersKey(c domain.ConferenceID, room domain.RoomID) string {
	return fmt.Sprintf("%s%s:members", roomMembersPrefix(c), room)
}

func tempPermissionKey(c domain.ConferenceID, p domain.ParticipantID) string {
	return confKey(c, fmt.Sprintf("tempPermission:%s", p))
}

func typingKey(c domain.ConferenceID, channel string) string {
	return confKey(c, fmt.Sprintf("chat:%s:typing", channel))
}

func equipmentKey(c domain.ConferenceID, p domain.ParticipantID) string {
	return confKey(c, fmt.Sprintf("equipment:%s", p))
}
