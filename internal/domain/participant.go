package domain

import "errors"

var ErrParticipantIDEmpty = errors.New("participant id empty")

type ParticipantID string

type Participant struct {
	ID          ParticipantID `json:"participantId"`
	DisplayName string        `json:"displayName"`
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipant(id ParticipantID, displayName string) (Participant, error) {
	if len(id) == 0 {
		return Participant{}, ErrParticipantIDEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return Participant{}, ErrDisplayNameTooLong
	}
	return Participant{ID: id, DisplayName: displayName}, nil
}
