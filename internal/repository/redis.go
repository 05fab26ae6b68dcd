// Package repository implements the distributed repository layer on redis.
// Every multi-step transition that must be race-free across backend replicas
// runs as a store-native lua script; everything else is plain key-value.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/domain"
)

const breakoutUpdateRetries = 5

// endedMarkerTTLSeconds bounds the window in which a conference being torn
// down refuses new joins.
const endedMarkerTTLSeconds = 10

// Client implements every repository interface on a redis connection.
type Client struct {
	rdb redis.UniversalClient
}

func NewClient(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

// wrapErr folds every infrastructure failure into ErrStoreUnavailable so
// callers never depend on driver error types.
func wrapErr(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (c *Client) CreateConference(ctx context.Context, conference domain.Conference) (bool, error) {
	raw, err := json.Marshal(conference)
	if err != nil {
		return false, err
	}
	ending, err := c.rdb.Exists(ctx, endedKey(conference.ID)).Result()
	if err != nil {
		return false, wrapErr(err)
	}
	if ending > 0 {
		return false, fmt.Errorf("%w: %s", ErrConferenceEnding, conference.ID)
	}
	created, err := c.rdb.SetNX(ctx, configKey(conference.ID), raw, 0).Result()
	if err != nil {
		return false, wrapErr(err)
	}
	return created, nil
}

func (c *Client) GetConference(ctx context.Context, conference domain.ConferenceID) (domain.Conference, bool, error) {
	raw, err := c.rdb.Get(ctx, configKey(conference)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Conference{}, false, nil
	}
	if err != nil {
		return domain.Conference{}, false, wrapErr(err)
	}
	var conf domain.Conference
	if err := json.Unmarshal(raw, &conf); err != nil {
		return domain.Conference{}, false, err
	}
	return conf, true, nil
}

func (c *Client) EndConference(ctx context.Context, conference domain.ConferenceID) error {
	iter := c.rdb.Scan(ctx, 0, confKey(conference, "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return wrapErr(err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return wrapErr(err)
	}
	log.Debug().Str("module", "repository").Str("conference", string(conference)).
		Int("keys", len(keys)).Msg("conference state deleted")
	return nil
}

func (c *Client) CreateRooms(ctx context.Context, conference domain.ConferenceID, rooms []domain.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	fields := make([]any, 0, len(rooms)*2)
	for _, room := range rooms {
		fields = append(fields, string(room.ID), room.DisplayName)
	}
	return wrapErr(c.rdb.HSet(ctx, roomsKey(conference), fields...).Err())
}

func (c *Client) GetRooms(ctx context.Context, conference domain.ConferenceID) ([]domain.Room, error) {
	raw, err := c.rdb.HGetAll(ctx, roomsKey(conference)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	rooms := make([]domain.Room, 0, len(raw))
	for id, name := range raw {
		rooms = append(rooms, domain.Room{ID: domain.RoomID(id), DisplayName: name})
	}
	sort.Slice(rooms, func(i, j int) bool {
		// Default room first, then stable by name and id.
		if (rooms[i].ID == domain.DefaultRoomID) != (rooms[j].ID == domain.DefaultRoomID) {
			return rooms[i].ID == domain.DefaultRoomID
		}
		if rooms[i].DisplayName != rooms[j].DisplayName {
			return rooms[i].DisplayName < rooms[j].DisplayName
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

func (c *Client) GetRoom(ctx context.Context, conference domain.ConferenceID, room domain.RoomID) (domain.Room, bool, error) {
	name, err := c.rdb.HGet(ctx, roomsKey(conference), string(room)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Room{}, false, nil
	}
	if err != nil {
		return domain.Room{}, false, wrapErr(err)
	}
	return domain.Room{ID: room, DisplayName: name}, true, nil
}

func (c *Client) RemoveRoom(ctx context.Context, conference domain.ConferenceID, room domain.RoomID) (bool, []domain.ParticipantID, error) {
	res, err := removeRoomScript.Run(ctx, c.rdb,
		[]string{roomsKey(conference), participantsKey(conference), roomMembersKey(conference, room)},
		string(room)).Slice()
	if err != nil {
		return false, nil, wrapErr(err)
	}
	if len(res) == 0 {
		return false, nil, nil
	}
	flag, _ := res[0].(int64)
	if flag == 0 {
		return false, nil, nil
	}
	members := make([]domain.ParticipantID, 0, len(res)-1)
	for _, v := range res[1:] {
		if s, ok := v.(string); ok {
			members = append(members, domain.ParticipantID(s))
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return true, members, nil
}

func (c *Client) SetParticipantRoom(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, room domain.RoomID) error {
	res, err := setParticipantRoomScript.Run(ctx, c.rdb,
		[]string{roomsKey(conference), participantsKey(conference)},
		roomMembersPrefix(conference), string(room), string(participant)).Text()
	if err != nil {
		return wrapErr(err)
	}
	if res == "room_not_found" {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, room)
	}
	return nil
}

func (c *Client) RemoveParticipantSafe(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID) (bool, bool, error) {
	res, err := removeParticipantSafeScript.Run(ctx, c.rdb,
		[]string{participantsKey(conference), roomsKey(conference), endedKey(conference)},
		roomMembersPrefix(conference), string(participant), endedMarkerTTLSeconds).Int64()
	if err != nil {
		return false, false, wrapErr(err)
	}
	return res >= 1, res == 2, nil
}

func (c *Client) GetParticipantsOfRoom(ctx context.Context, conference domain.ConferenceID,
	room domain.RoomID) ([]domain.ParticipantID, error) {
	raw, err := c.rdb.SMembers(ctx, roomMembersKey(conference, room)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	sort.Strings(raw)
	out := make([]domain.ParticipantID, len(raw))
	for i, s := range raw {
		out[i] = domain.ParticipantID(s)
	}
	return out, nil
}

func (c *Client) GetParticipantRooms(ctx context.Context, conference domain.ConferenceID) (map[domain.ParticipantID]domain.RoomID, error) {
	raw, err := c.rdb.HGetAll(ctx, participantsKey(conference)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make(map[domain.ParticipantID]domain.RoomID, len(raw))
	for pid, room := range raw {
		out[domain.ParticipantID(pid)] = domain.RoomID(room)
	}
	return out, nil
}

func (c *Client) SetParticipantData(ctx context.Context, conference domain.ConferenceID, participant domain.Participant) error {
	return wrapErr(c.rdb.HSet(ctx, participantDataKey(conference), string(participant.ID), participant.DisplayName).Err())
}

func (c *Client) RemoveParticipantData(ctx context.Context, conference domain.ConferenceID, participant domain.ParticipantID) error {
	return wrapErr(c.rdb.HDel(ctx, participantDataKey(conference), string(participant)).Err())
}

func (c *Client) GetJoinedParticipants(ctx context.Context, conference domain.ConferenceID) ([]domain.Participant, error) {
	joined, err := c.GetParticipantRooms(ctx, conference)
	if err != nil {
		return nil, err
	}
	names, err := c.rdb.HGetAll(ctx, participantDataKey(conference)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]domain.Participant, 0, len(joined))
	for pid := range joined {
		out = append(out, domain.Participant{ID: pid, DisplayName: names[string(pid)]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Client) SetTemporaryPermission(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return wrapErr(c.rdb.HSet(ctx, tempPermissionKey(conference, participant), key, raw).Err())
}

func (c *Client) RemoveTemporaryPermission(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, key string) error {
	return wrapErr(c.rdb.HDel(ctx, tempPermissionKey(conference, participant), key).Err())
}

func (c *Client) GetTemporaryPermissions(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID) (map[string]any, error) {
	raw, err := c.rdb.HGetAll(ctx, tempPermissionKey(conference, participant)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make(map[string]any, len(raw))
	for key, encoded := range raw {
		var value any
		if err := json.Unmarshal([]byte(encoded), &value); err != nil {
			log.Warn().Str("module", "repository").Str("permission", key).
				Msg("skipping unreadable temporary permission")
			continue
		}
		out[key] = value
	}
	return out, nil
}

func (c *Client) GetBreakoutState(ctx context.Context, conference domain.ConferenceID) (*domain.BreakoutRoomsState, error) {
	raw, err := c.rdb.Get(ctx, breakoutKey(conference)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	var state domain.BreakoutRoomsState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// UpdateBreakoutState applies update under an optimistic transaction. The
// update function sees the current state (nil when none) and returns the new
// one (nil clears it); an error from update aborts without writing. On a
// concurrent write the transaction is retried.
func (c *Client) UpdateBreakoutState(ctx context.Context, conference domain.ConferenceID,
	update func(current *domain.BreakoutRoomsState) (*domain.BreakoutRoomsState, error)) error {
	key := breakoutKey(conference)

	txn := func(tx *redis.Tx) error {
		var current *domain.BreakoutRoomsState
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			current = &domain.BreakoutRoomsState{}
			if err := json.Unmarshal(raw, current); err != nil {
				return err
			}
		}

		next, err := update(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
				return nil
			}
			encoded, err := json.Marshal(next)
			if err != nil {
				return err
			}
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for i := 0; i < breakoutUpdateRetries; i++ {
		err := c.rdb.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err == nil {
			return nil
		}
		// update() errors pass through untouched so callers can match them.
		if isDomainError(err) {
			return err
		}
		return wrapErr(err)
	}
	return fmt.Errorf("%w: breakout state contended", ErrStoreUnavailable)
}

// isDomainError distinguishes validation failures surfaced by an update
// callback from genuine store failures.
func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrDuplicateAssignment) ||
		errors.Is(err, domain.ErrAssignmentOutOfRange) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, errBreakoutCallback)
}

// errBreakoutCallback lets callers tag arbitrary update() failures that must
// not be reported as store errors.
var errBreakoutCallback = errors.New("breakout update rejected")

// BreakoutCallbackError wraps err so UpdateBreakoutState returns it verbatim.
func BreakoutCallbackError(err error) error {
	return fmt.Errorf("%w: %w", errBreakoutCallback, err)
}

func (c *Client) SetSceneState(ctx context.Context, conference domain.ConferenceID,
	room domain.RoomID, state domain.SceneState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return wrapErr(c.rdb.HSet(ctx, scenesKey(conference), string(room), raw).Err())
}

func (c *Client) GetSceneState(ctx context.Context, conference domain.ConferenceID,
	room domain.RoomID) (domain.SceneState, bool, error) {
	raw, err := c.rdb.HGet(ctx, scenesKey(conference), string(room)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SceneState{}, false, nil
	}
	if err != nil {
		return domain.SceneState{}, false, wrapErr(err)
	}
	var state domain.SceneState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.SceneState{}, false, err
	}
	return state, true, nil
}

func (c *Client) RemoveSceneState(ctx context.Context, conference domain.ConferenceID, room domain.RoomID) error {
	return wrapErr(c.rdb.HDel(ctx, scenesKey(conference), string(room)).Err())
}

func (c *Client) GetAllScenes(ctx context.Context, conference domain.ConferenceID) (map[domain.RoomID]domain.SceneState, error) {
	raw, err := c.rdb.HGetAll(ctx, scenesKey(conference)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make(map[domain.RoomID]domain.SceneState, len(raw))
	for room, encoded := range raw {
		var state domain.SceneState
		if err := json.Unmarshal([]byte(encoded), &state); err != nil {
			return nil, err
		}
		out[domain.RoomID(room)] = state
	}
	return out, nil
}

func (c *Client) SetParticipantTyping(ctx context.Context, conference domain.ConferenceID, channel string,
	participant domain.ParticipantID, isTyping bool) error {
	key := typingKey(conference, channel)
	if isTyping {
		return wrapErr(c.rdb.SAdd(ctx, key, string(participant)).Err())
	}
	return wrapErr(c.rdb.SRem(ctx, key, string(participant)).Err())
}

func (c *Client) GetParticipantsTyping(ctx context.Context, conference domain.ConferenceID, channel string) ([]domain.ParticipantID, error) {
	raw, err := c.rdb.SMembers(ctx, typingKey(conference, channel)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	sort.Strings(raw)
	out := make([]domain.ParticipantID, len(raw))
	for i, s := range raw {
		out[i] = domain.ParticipantID(s)
	}
	return out, nil
}

func (c *Client) ClearParticipantTyping(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID) error {
	iter := c.rdb.Scan(ctx, 0, confKey(conference, "chat:*:typing"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return wrapErr(err)
	}
	for _, key := range keys {
		if err := c.rdb.SRem(ctx, key, string(participant)).Err(); err != nil {
			return wrapErr(err)
		}
	}
	return nil
}

func (c *Client) AddEquipment(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, item domain.EquipmentItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return wrapErr(c.rdb.HSet(ctx, equipmentKey(conference, participant), item.ID, raw).Err())
}

func (c *Client) GetEquipment(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID) ([]domain.EquipmentItem, error) {
	raw, err := c.rdb.HGetAll(ctx, equipmentKey(conference, participant)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]domain.EquipmentItem, 0, len(raw))
	for _, encoded := range raw {
		var item domain.EquipmentItem
		if err := json.Unmarshal([]byte(encoded), &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
