package adapters

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/domain"
)

// Resyncer re-sends the full synchronized state to one participant.
// Satisfied by syncobj.Engine.
type Resyncer interface {
	Resync(ctx context.Context, conference domain.ConferenceID, participant domain.ParticipantID)
}

// SyncController upgrades the sync endpoint and wires the connection into
// the hub.
type SyncController struct {
	hub        *SyncHub
	engine     Resyncer
	upgrader   websocket.Upgrader
	pingPeriod time.Duration
}

func NewSyncController(hub *SyncHub, engine Resyncer, pingPeriod time.Duration) *SyncController {
	return &SyncController{
		hub:    hub,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingPeriod: pingPeriod,
	}
}

// HandleSync serves one participant's push channel for the lifetime of the
// websocket. On connect the engine replays the full synchronized state, so a
// reconnecting client never misses updates pushed while it was away.
func (sc *SyncController) HandleSync(ctx context.Context, c *gin.Context) {
	conference := domain.ConferenceID(c.Query("conferenceId"))
	participant := domain.ParticipantID(c.Query("participantId"))
	if conference == "" || participant == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conferenceId and participantId required"})
		return
	}

	ws, err := sc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters").Msg("websocket upgrade failed")
		return
	}

	conn := newSyncConnection(ws)
	sc.hub.register(participant, conn)
	log.Debug().Str("module", "adapters").Str("conference", string(conference)).
		Str("participant", string(participant)).Msg("sync channel connected")

	connCtx, cancel := context.WithCancel(ctx)
	go conn.writeLoop(connCtx, sc.pingPeriod)

	sc.engine.Resync(connCtx, conference, participant)

	conn.readLoop(connCtx)
	cancel()
	sc.hub.unregister(participant, conn)
	log.Debug().Str("module", "adapters").Str("participant", string(participant)).
		Msg("sync channel disconnected")
}
