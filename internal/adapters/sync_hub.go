// Package adapters holds the transport endpoints: the websocket push channel
// for synchronized objects and the gin HTTP surface under adapters/http.
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/equipment"
	"github.com/dkeye/Conclave/internal/pubsub"
	"github.com/dkeye/Conclave/internal/syncobj"
)

var ErrBackpressure = errors.New("backpressure")

const (
	msgTypeUpdate           = "update"
	msgTypeRemoved          = "removed"
	msgTypeEquipmentCommand = "equipmentCommand"
)

// syncMessage is the wire form of every server push.
type syncMessage struct {
	Type     string `json:"type"`
	ObjectID string `json:"objectId,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// SyncHub tracks the push connection of every online participant and
// implements the engine's Pusher on top of them. A participant without a
// connection simply receives nothing; the engine re-syncs on reconnect.
type SyncHub struct {
	mu    sync.RWMutex
	conns map[domain.ParticipantID]*syncConnection
}

func NewSyncHub() *SyncHub {
	return &SyncHub{conns: make(map[domain.ParticipantID]*syncConnection)}
}

func (h *SyncHub) PushUpdate(_ context.Context, participant domain.ParticipantID,
	id syncobj.ObjectID, value any) error {
	return h.send(participant, syncMessage{Type: msgTypeUpdate, ObjectID: id.String(), Value: value})
}

func (h *SyncHub) PushRemoved(_ context.Context, participant domain.ParticipantID,
	id syncobj.ObjectID) error {
	return h.send(participant, syncMessage{Type: msgTypeRemoved, ObjectID: id.String()})
}

func (h *SyncHub) send(participant domain.ParticipantID, msg syncMessage) error {
	h.mu.RLock()
	conn, online := h.conns[participant]
	h.mu.RUnlock()
	if !online {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.trySend(data)
}

// RunNotifications relays the notifications with a direct client audience,
// currently only equipment commands addressed at a participant's devices.
func (h *SyncHub) RunNotifications(ctx context.Context, bus *pubsub.Broker[dispatch.Notification]) {
	sub := bus.Subscribe(ctx)
	for n := range sub {
		cmd, ok := n.(equipment.EquipmentCommand)
		if !ok {
			continue
		}
		err := h.send(cmd.Participant, syncMessage{
			Type:  msgTypeEquipmentCommand,
			Value: map[string]string{"itemId": cmd.ItemID, "action": cmd.Action},
		})
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters").
				Str("participant", string(cmd.Participant)).Msg("equipment command push failed")
		}
	}
}

// register binds a connection to a participant, closing any previous one.
func (h *SyncHub) register(participant domain.ParticipantID, conn *syncConnection) {
	h.mu.Lock()
	previous := h.conns[participant]
	h.conns[participant] = conn
	h.mu.Unlock()
	if previous != nil {
		previous.close()
	}
}

// unregister drops the connection unless a newer one already replaced it.
func (h *SyncHub) unregister(participant domain.ParticipantID, conn *syncConnection) {
	h.mu.Lock()
	if h.conns[participant] == conn {
		delete(h.conns, participant)
	}
	h.mu.Unlock()
}

// Online returns the number of connected participants.
func (h *SyncHub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// syncConnection is one websocket push endpoint.
type syncConnection struct {
	conn WSConn
	send chan []byte
	once sync.Once
}

func newSyncConnection(conn WSConn) *syncConnection {
	return &syncConnection{conn: conn, send: make(chan []byte, 256)}
}

func (c *syncConnection) trySend(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *syncConnection) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// writeLoop pumps queued messages to the network. The adapter owns the
// transport resources and closes them on exit.
func (c *syncConnection) writeLoop(ctx context.Context, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// readLoop drains the connection until the peer goes away; the push channel
// is one-directional, inbound data is discarded.
func (c *syncConnection) readLoop(ctx context.Context) {
	defer c.close()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
