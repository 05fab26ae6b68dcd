package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
)

const KeyCanGiveTemporary = "permissions/canGiveTemporaryPermission"

func Permissions() []Descriptor {
	return []Descriptor{NewBool(KeyCanGiveTemporary, false)}
}

const KindPermissionsUpdated = "permissions.updated"

// PermissionsUpdated fires when a participant's effective permissions may
// have changed.
type PermissionsUpdated struct {
	Conference  domain.ConferenceID
	Participant domain.ParticipantID
}

func (n PermissionsUpdated) Kind() string                      { return KindPermissionsUpdated }
func (n PermissionsUpdated) ConferenceID() domain.ConferenceID { return n.Conference }

const TypeSetTemporaryPermission dispatch.Type = "permissions/setTemporary"

// SetTemporaryPermissionCommand grants or clears a per-participant override.
// A nil Value clears the override so the configured or default value applies
// again.
type SetTemporaryPermissionCommand struct {
	dispatch.Base
	Target domain.ParticipantID `json:"targetParticipantId"`
	Key    string               `json:"permissionKey"`
	Value  any                  `json:"value"`
}

func (c SetTemporaryPermissionCommand) Type() dispatch.Type { return TypeSetTemporaryPermission }
func (c SetTemporaryPermissionCommand) Validate() error {
	if c.Target == "" {
		return errors.New("target participant missing")
	}
	if c.Key == "" {
		return errors.New("permission key missing")
	}
	return nil
}

// OverrideStore is the writable side of the temporary permission storage.
type OverrideStore interface {
	OverrideSource
	SetTemporaryPermission(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID, key string, value any) error
	RemoveTemporaryPermission(ctx context.Context, conference domain.ConferenceID,
		participant domain.ParticipantID, key string) error
}

func RegisterHandlers(d *dispatch.Dispatcher, registry *Registry, store OverrideStore) {
	d.MustRegister(TypeSetTemporaryPermission, &setTemporaryHandler{registry: registry, store: store})
}

type setTemporaryHandler struct {
	registry *Registry
	store    OverrideStore
}

func (h *setTemporaryHandler) RequiredPermissions() []string {
	return []string{KeyCanGiveTemporary}
}

func (h *setTemporaryHandler) Handle(ctx context.Context, cmd dispatch.Command) *dispatch.Result {
	c, ok := dispatch.As[SetTemporaryPermissionCommand](cmd)
	if !ok {
		return dispatch.Fail(dispatch.CodeValidation, "malformed command payload")
	}

	if _, known := h.registry.Lookup(c.Key); !known {
		return dispatch.Fail(dispatch.CodeNotFound, fmt.Sprintf("unknown permission %q", c.Key))
	}

	if c.Value == nil {
		if err := h.store.RemoveTemporaryPermission(ctx, c.Conference, c.Target, c.Key); err != nil {
			return dispatch.FromError(err)
		}
	} else {
		if !h.registry.ValidateValue(c.Key, c.Value) {
			return dispatch.Fail(dispatch.CodeValidation,
				fmt.Sprintf("invalid value for permission %q", c.Key))
		}
		if err := h.store.SetTemporaryPermission(ctx, c.Conference, c.Target, c.Key, c.Value); err != nil {
			return dispatch.FromError(err)
		}
	}

	return dispatch.Ok(PermissionsUpdated{Conference: c.Conference, Participant: c.Target})
}
