package permissions

import (
	"context"
	"fmt"

	"github.com/dkeye/Conclave/internal/domain"
)

// Layer is one source of a permission value during resolution.
type Layer struct {
	Value any
	Set   bool
}

// ResolveValue picks the effective permission value for one participant:
// temporary override if present, else the conference-configured value, else
// the descriptor default. Pure function over explicit inputs so it stays
// trivially testable.
func ResolveValue(d Descriptor, override, configured Layer) any {
	if override.Set {
		return override.Value
	}
	if configured.Set {
		return configured.Value
	}
	return d.DefaultValue
}

// OverrideSource yields the temporary permission overrides of a participant.
type OverrideSource interface {
	GetTemporaryPermissions(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID) (map[string]any, error)
}

// ConfigSource yields the conference configuration.
type ConfigSource interface {
	GetConference(ctx context.Context, conference domain.ConferenceID) (domain.Conference, bool, error)
}

// Resolver computes effective permission values from the registry, the
// conference configuration and the stored temporary overrides.
type Resolver struct {
	registry  *Registry
	overrides OverrideSource
	configs   ConfigSource
}

func NewResolver(registry *Registry, overrides OverrideSource, configs ConfigSource) *Resolver {
	return &Resolver{registry: registry, overrides: overrides, configs: configs}
}

// Effective resolves one permission for one participant.
func (r *Resolver) Effective(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, key string) (any, error) {
	d, ok := r.registry.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("unknown permission %q", key)
	}

	temp, err := r.overrides.GetTemporaryPermissions(ctx, conference, participant)
	if err != nil {
		return nil, err
	}
	override := Layer{}
	if v, set := temp[key]; set {
		override = Layer{Value: v, Set: true}
	}

	configured := Layer{}
	conf, found, err := r.configs.GetConference(ctx, conference)
	if err != nil {
		return nil, err
	}
	if found {
		if v, set := conf.Config.Permissions[key]; set {
			configured = Layer{Value: v, Set: true}
		}
	}

	return ResolveValue(d, override, configured), nil
}

// HasPermission resolves a boolean permission. Non-boolean effective values
// resolve to false rather than an error so a bad override can never grant
// access.
func (r *Resolver) HasPermission(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, key string) (bool, error) {
	v, err := r.Effective(ctx, conference, participant, key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	return ok && b, nil
}
