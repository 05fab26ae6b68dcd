package domain

// EquipmentItem is a companion device (e.g. a phone used as a second camera)
// registered by a participant.
type EquipmentItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
