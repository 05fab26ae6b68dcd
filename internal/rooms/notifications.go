package rooms

import "github.com/dkeye/Conclave/internal/domain"

const (
	KindRoomsCreated           = "rooms.created"
	KindRoomsRemoved           = "rooms.removed"
	KindParticipantRoomChanged = "rooms.participantRoomChanged"
	KindParticipantJoined      = "conference.participantJoined"
	KindParticipantLeft        = "conference.participantLeft"
	KindConferenceEnded        = "conference.ended"
)

type RoomsCreated struct {
	Conference domain.ConferenceID
	RoomIDs    []domain.RoomID
}

func (n RoomsCreated) Kind() string                      { return KindRoomsCreated }
func (n RoomsCreated) ConferenceID() domain.ConferenceID { return n.Conference }

type RoomsRemoved struct {
	Conference domain.ConferenceID
	RoomIDs    []domain.RoomID
}

func (n RoomsRemoved) Kind() string                      { return KindRoomsRemoved }
func (n RoomsRemoved) ConferenceID() domain.ConferenceID { return n.Conference }

type ParticipantRoomChanged struct {
	Conference  domain.ConferenceID
	Participant domain.ParticipantID
	Room        domain.RoomID
}

func (n ParticipantRoomChanged) Kind() string                      { return KindParticipantRoomChanged }
func (n ParticipantRoomChanged) ConferenceID() domain.ConferenceID { return n.Conference }

type ParticipantJoined struct {
	Conference  domain.ConferenceID
	Participant domain.Participant
}

func (n ParticipantJoined) Kind() string                      { return KindParticipantJoined }
func (n ParticipantJoined) ConferenceID() domain.ConferenceID { return n.Conference }

type ParticipantLeft struct {
	Conference  domain.ConferenceID
	Participant domain.ParticipantID
}

func (n ParticipantLeft) Kind() string                      { return KindParticipantLeft }
func (n ParticipantLeft) ConferenceID() domain.ConferenceID { return n.Conference }

type ConferenceEnded struct {
	Conference domain.ConferenceID
}

func (n ConferenceEnded) Kind() string                      { return KindConferenceEnded }
func (n ConferenceEnded) ConferenceID() domain.ConferenceID { return n.Conference }
