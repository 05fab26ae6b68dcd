package repository

import "github.com/redis/go-redis/v9"

// The multi-step room transitions run as lua scripts so they are atomic on
// the store even with many backend replicas issuing them concurrently. The
// room catalog hash doubles as the "may still receive joins" flag: removal
// deletes the catalog entry in the same script that enumerates the members,
// so a concurrent join observes either the room or its absence, never a
// half-removed room.

// KEYS[1] rooms hash, KEYS[2] participants hash
// ARGV[1] member-set prefix, ARGV[2] room id, ARGV[3] participant id
// Returns "ok" or "room_not_found".
var setParticipantRoomScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[2]) == 0 then
  return 'room_not_found'
end
local old = redis.call('HGET', KEYS[2], ARGV[3])
if old == ARGV[2] then
  return 'ok'
end
if old then
  redis.call('SREM', ARGV[1] .. old .. ':members', ARGV[3])
end
redis.call('HSET', KEYS[2], ARGV[3], ARGV[2])
redis.call('SADD', ARGV[1] .. ARGV[2] .. ':members', ARGV[3])
return 'ok'
`)

// KEYS[1] rooms hash, KEYS[2] participants hash, KEYS[3] member set
// ARGV[1] room id
// Returns {0} if the room was already gone, else {1, member...}. The members
// are unmapped inside the script, so two replicas removing the same room can
// never both claim its participants.
var removeRoomScript = redis.NewScript(`
if redis.call('HDEL', KEYS[1], ARGV[1]) == 0 then
  return {0}
end
local members = redis.call('SMEMBERS', KEYS[3])
for _, pid in ipairs(members) do
  if redis.call('HGET', KEYS[2], pid) == ARGV[1] then
    redis.call('HDEL', KEYS[2], pid)
  end
end
redis.call('DEL', KEYS[3])
local res = {1}
for i, pid in ipairs(members) do
  res[i + 1] = pid
end
return res
`)

// KEYS[1] participants hash, KEYS[2] rooms hash, KEYS[3] ended marker
// ARGV[1] member-set prefix, ARGV[2] participant id, ARGV[3] marker ttl (s)
// Returns 0 if the participant was not joined, 1 if removed with others
// remaining, 2 if the removal emptied the conference. In the ended case the
// rooms catalog is deleted and the ended marker set inside the same script,
// so a concurrent join cannot land between the last leave and the teardown
// sweep. When the last member leaves a room that is no longer in the catalog
// the member set is deleted, closing the room for good.
var removeParticipantSafeScript = redis.NewScript(`
local room = redis.call('HGET', KEYS[1], ARGV[2])
if not room then
  return 0
end
redis.call('HDEL', KEYS[1], ARGV[2])
local membersKey = ARGV[1] .. room .. ':members'
redis.call('SREM', membersKey, ARGV[2])
if redis.call('SCARD', membersKey) == 0 and redis.call('HEXISTS', KEYS[2], room) == 0 then
  redis.call('DEL', membersKey)
end
if redis.call('HLEN', KEYS[1]) > 0 then
  return 1
end
redis.call('DEL', KEYS[2])
redis.call('SET', KEYS[3], '1', 'EX', ARGV[3])
return 2
`)
