package syncobj

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/pubsub"
	"github.com/dkeye/Conclave/internal/repository"
)

// EngineConfig names the notification kinds with engine-wide meaning:
// membership kinds move entitlements for every provider, the ended kind
// tears a conference down.
type EngineConfig struct {
	MembershipKinds []string
	EndedKind       string
}

// Engine recomputes synchronized objects on domain notifications and pushes
// the changes to every entitled participant. Per (participant, object) it
// remembers the last value sent from this instance, so unchanged values are
// not re-pushed; participants who lose entitlement get an explicit removal,
// newly entitled participants get the full current value.
type Engine struct {
	pusher Pusher
	rooms  repository.RoomRepository
	config EngineConfig

	mu        sync.Mutex
	providers map[string]Provider
	byKind    map[string][]string // notification kind -> provider ids
	seen      map[seenKey]string  // last pushed value as canonical json
}

type seenKey struct {
	conference  domain.ConferenceID
	participant domain.ParticipantID
	object      string
}

func NewEngine(pusher Pusher, roomRepo repository.RoomRepository, config EngineConfig) *Engine {
	return &Engine{
		pusher:    pusher,
		rooms:     roomRepo,
		config:    config,
		providers: make(map[string]Provider),
		byKind:    make(map[string][]string),
		seen:      make(map[seenKey]string),
	}
}

// Register binds a provider and the notification kinds that can affect its
// objects. Participant join/leave and conference end are always handled.
func (e *Engine) Register(p Provider, kinds ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.providers[p.ID()] = p
	for _, kind := range kinds {
		e.byKind[kind] = append(e.byKind[kind], p.ID())
	}
}

// Run consumes the notification broker until ctx ends. Delivery is
// best-effort by design: the originating command has already succeeded.
func (e *Engine) Run(ctx context.Context, bus *pubsub.Broker[dispatch.Notification]) {
	sub := bus.Subscribe(ctx)
	for n := range sub {
		e.HandleNotification(ctx, n)
	}
}

// HandleNotification recomputes the providers affected by n.
func (e *Engine) HandleNotification(ctx context.Context, n dispatch.Notification) {
	conference := n.ConferenceID()

	if n.Kind() == e.config.EndedKind {
		e.dropConference(ctx, conference)
		return
	}
	for _, kind := range e.config.MembershipKinds {
		if n.Kind() == kind {
			e.update(ctx, conference, e.allProviderIDs())
			return
		}
	}

	e.mu.Lock()
	affected := e.byKind[n.Kind()]
	e.mu.Unlock()
	if len(affected) == 0 {
		return
	}
	e.update(ctx, conference, affected)
}

// Resync pushes the full current state of every available object to one
// participant, e.g. after their push channel (re)connects.
func (e *Engine) Resync(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID) {
	for _, id := range e.allProviderIDs() {
		e.mu.Lock()
		provider := e.providers[id]
		e.mu.Unlock()
		e.syncParticipant(ctx, conference, participant, provider, true)
	}
}

func (e *Engine) allProviderIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.providers))
	for id := range e.providers {
		ids = append(ids, id)
	}
	return ids
}

func (e *Engine) update(ctx context.Context, conference domain.ConferenceID, providerIDs []string) {
	joined, err := e.rooms.GetJoinedParticipants(ctx, conference)
	if err != nil {
		log.Error().Err(err).Str("module", "syncobj").Msg("cannot list joined participants")
		return
	}

	for _, id := range providerIDs {
		e.mu.Lock()
		provider, ok := e.providers[id]
		e.mu.Unlock()
		if !ok {
			continue
		}

		entitled := make(map[seenKey]struct{})
		for _, participant := range joined {
			keys := e.syncParticipant(ctx, conference, participant.ID, provider, false)
			for _, k := range keys {
				entitled[k] = struct{}{}
			}
		}
		e.removeStale(ctx, conference, provider.ID(), entitled)
	}
}

// syncParticipant pushes the provider's objects to one participant and
// returns the seen-keys of everything the participant is entitled to.
// force re-sends values even when unchanged.
func (e *Engine) syncParticipant(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, provider Provider, force bool) []seenKey {
	objects, err := provider.AvailableObjects(ctx, conference, participant)
	if err != nil {
		log.Error().Err(err).Str("module", "syncobj").Str("provider", provider.ID()).
			Str("participant", string(participant)).Msg("cannot compute available objects")
		return nil
	}

	keys := make([]seenKey, 0, len(objects))
	for _, object := range objects {
		key := seenKey{conference: conference, participant: participant, object: object.String()}
		keys = append(keys, key)

		value, err := provider.FetchValue(ctx, conference, object)
		if err != nil {
			log.Error().Err(err).Str("module", "syncobj").Str("object", key.object).
				Msg("cannot fetch synchronized object value")
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			log.Error().Err(err).Str("module", "syncobj").Str("object", key.object).
				Msg("cannot encode synchronized object value")
			continue
		}

		e.mu.Lock()
		previous, known := e.seen[key]
		changed := !known || previous != string(encoded)
		if changed {
			e.seen[key] = string(encoded)
		}
		e.mu.Unlock()

		if changed || force {
			if err := e.pusher.PushUpdate(ctx, participant, object, value); err != nil {
				log.Warn().Err(err).Str("module", "syncobj").Str("object", key.object).
					Str("participant", string(participant)).Msg("push failed")
			}
		}
	}
	return keys
}

// removeStale signals removal for every previously pushed object of this
// provider the participant is no longer entitled to.
func (e *Engine) removeStale(ctx context.Context, conference domain.ConferenceID,
	providerID string, entitled map[seenKey]struct{}) {
	e.mu.Lock()
	var stale []seenKey
	for key := range e.seen {
		if key.conference != conference || !objectBelongsTo(key.object, providerID) {
			continue
		}
		if _, ok := entitled[key]; !ok {
			stale = append(stale, key)
			delete(e.seen, key)
		}
	}
	e.mu.Unlock()

	for _, key := range stale {
		id, err := ParseObjectID(key.object)
		if err != nil {
			continue
		}
		if err := e.pusher.PushRemoved(ctx, key.participant, id); err != nil {
			log.Warn().Err(err).Str("module", "syncobj").Str("object", key.object).
				Str("participant", string(key.participant)).Msg("removal push failed")
		}
	}
}

// dropConference clears all per-conference engine state; no removals are
// pushed since the participants are gone with the conference.
func (e *Engine) dropConference(_ context.Context, conference domain.ConferenceID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.seen {
		if key.conference == conference {
			delete(e.seen, key)
		}
	}
}

func objectBelongsTo(object, providerID string) bool {
	return object == providerID || strings.HasPrefix(object, providerID+"?")
}
