package domain

type SceneType string

const (
	SceneAutomatic SceneType = "automatic"
	SceneGrid      SceneType = "grid"
	SceneCustom    SceneType = "custom"
)

type Scene struct {
	Type SceneType `json:"type"`
	// Custom carries scene-specific options (e.g. the presenter for a
	// screen-share scene). Empty for automatic and grid.
	Custom map[string]any `json:"custom,omitempty"`
}

// SceneState is the per-room scene configuration. Controlled rooms let the
// automatic layout algorithm pick the scene; uncontrolled rooms keep whatever
// scene was set explicitly.
type SceneState struct {
	IsControlled bool  `json:"isControlled"`
	Scene        Scene `json:"scene"`
}

func AutomaticScene() SceneState {
	return SceneState{IsControlled: true, Scene: Scene{Type: SceneAutomatic}}
}
