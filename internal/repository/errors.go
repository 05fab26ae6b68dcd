package repository

import "errors"

var (
	// ErrStoreUnavailable wraps every infrastructure failure of the
	// underlying store. Callers must not assume partial application
	// succeeded when they see it.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrRoomNotFound       = errors.New("room not found")
	ErrConferenceNotFound = errors.New("conference not found")

	// ErrConferenceEnding rejects joins arriving between the last leave
	// and the teardown sweep. The ended marker expires on its own, so a
	// crashed sweep never leaves the conference dead forever.
	ErrConferenceEnding = errors.New("conference is ending")
)
