package domain

// ConferenceConfig is the per-conference configuration chosen at creation
// time. It never changes while the conference is live; mutable per-participant
// state (temporary permissions) lives in the repository instead.
type ConferenceConfig struct {
	// Permissions overrides descriptor defaults for the whole conference,
	// keyed by permission key.
	Permissions map[string]any `json:"permissions"`
	// ShowTyping enables the chat typing indicators projection.
	ShowTyping bool `json:"showTyping"`
	// DefaultRoomScene is applied to the default room when it is created.
	DefaultRoomScene SceneState `json:"defaultRoomScene"`
	// RoomScene is applied to every other room when it is created.
	RoomScene SceneState `json:"roomScene"`
}

// Conference scopes every other entity. It is created on first participant
// join and destroyed, together with all scoped state, when the conference ends.
type Conference struct {
	ID     ConferenceID     `json:"id"`
	Config ConferenceConfig `json:"config"`
}
