// Package equipment tracks companion devices a participant pairs with the
// conference and relays control commands to them.
package equipment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/permissions"
	"github.com/dkeye/Conclave/internal/repository"
)

const KeyCanUse = "equipment/canUse"

func Permissions() []permissions.Descriptor {
	return []permissions.Descriptor{permissions.NewBool(KeyCanUse, true)}
}

const (
	KindEquipmentUpdated = "equipment.updated"
	KindEquipmentCommand = "equipment.command"
)

// EquipmentUpdated fires when a participant's device list changes.
type EquipmentUpdated struct {
	Conference  domain.ConferenceID
	Participant domain.ParticipantID
}

func (n EquipmentUpdated) Kind() string                      { return KindEquipmentUpdated }
func (n EquipmentUpdated) ConferenceID() domain.ConferenceID { return n.Conference }

// EquipmentCommand carries a control action addressed at one paired device.
type EquipmentCommand struct {
	Conference  domain.ConferenceID
	Participant domain.ParticipantID
	ItemID      string
	Action      string
}

func (n EquipmentCommand) Kind() string                      { return KindEquipmentCommand }
func (n EquipmentCommand) ConferenceID() domain.ConferenceID { return n.Conference }

type Service struct {
	equipment repository.EquipmentRepository
}

func NewService(repo repository.EquipmentRepository) *Service {
	return &Service{equipment: repo}
}

// Register pairs a new device with the participant and returns it.
func (s *Service) Register(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, name string) (domain.EquipmentItem, []dispatch.Notification, error) {
	item := domain.EquipmentItem{ID: uuid.NewString(), Name: name}
	if err := s.equipment.AddEquipment(ctx, conference, participant, item); err != nil {
		return domain.EquipmentItem{}, nil, err
	}
	notifications := []dispatch.Notification{
		EquipmentUpdated{Conference: conference, Participant: participant},
	}
	return item, notifications, nil
}

// SendCommand relays a control action to one of the participant's own
// devices. The device must exist; nothing is stored.
func (s *Service) SendCommand(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID, itemID, action string) ([]dispatch.Notification, error) {
	items, err := s.equipment.GetEquipment(ctx, conference, participant)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ID == itemID {
			return []dispatch.Notification{EquipmentCommand{
				Conference:  conference,
				Participant: participant,
				ItemID:      itemID,
				Action:      action,
			}}, nil
		}
	}
	return nil, fmt.Errorf("%w: equipment %s", ErrEquipmentNotFound, itemID)
}

// Items lists the devices paired by one participant.
func (s *Service) Items(ctx context.Context, conference domain.ConferenceID,
	participant domain.ParticipantID) ([]domain.EquipmentItem, error) {
	return s.equipment.GetEquipment(ctx, conference, participant)
}
