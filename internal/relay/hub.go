package relay

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mossy-p/meeting-relay/internal/models"
	"github.com/mossy-p/meeting-relay/internal/registry"
)

var (
	ErrAlreadyJoined = errors.New("session already joined another room")
	ErrNotJoined     = errors.New("session has not joined a room")
	ErrSessionClosed = errors.New("session closed")
	ErrHubClosed     = errors.New("hub is shut down")
)

const defaultSendBuffer = 256

// Hub routes signaling traffic between the sessions of each room and keeps
// the registry in step with session lifecycles.
type Hub struct {
	registry   *registry.Registry
	log        zerolog.Logger
	sendBuffer int
	mirror     *mirror

	mu       sync.RWMutex
	rooms    map[string]map[*Session]struct{}
	sessions map[*Session]struct{}
	closed   bool
}

type Option func(*Hub)

// WithSendBuffer sets the per-session outbound queue length.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithPresence mirrors joins and leaves into p. Updates are applied in order
// by a background worker and never block the relay.
func WithPresence(p Presence) Option {
	return func(h *Hub) {
		if p != nil {
			h.mirror = newMirror(p, h.log)
		}
	}
}

func NewHub(reg *registry.Registry, log zerolog.Logger, opts ...Option) *Hub {
	h := &Hub{
		registry:   reg,
		log:        log,
		sendBuffer: defaultSendBuffer,
		rooms:      make(map[string]map[*Session]struct{}),
		sessions:   make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.mirror != nil {
		go h.mirror.run()
	}
	return h
}

func (h *Hub) Registry() *registry.Registry {
	return h.registry
}

// NewSession registers a connection in the Connected state. conn may be nil
// for sessions that are driven without a transport.
func (h *Hub) NewSession(conn *websocket.Conn) (*Session, error) {
	id := uuid.New().String()
	s := &Session{
		ID:   id,
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		log:  h.log.With().Str("conn_id", id).Logger(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	h.sessions[s] = struct{}{}
	return s, nil
}

// Join moves s into roomID as participantID and announces it to the other
// sessions of the room. Re-joining with the same pair is a no-op and reports
// joined=false; any other second join fails with ErrAlreadyJoined.
func (h *Hub) Join(s *Session, roomID, participantID string) (joined bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return false, ErrSessionClosed
	case StateJoined:
		same := s.roomID == roomID && s.participantID == participantID
		s.mu.Unlock()
		if same {
			return false, nil
		}
		return false, ErrAlreadyJoined
	}
	s.state = StateJoined
	s.roomID = roomID
	s.participantID = participantID
	s.mu.Unlock()

	h.registry.Join(roomID, participantID)
	peers, ok := h.rooms[roomID]
	if !ok {
		peers = make(map[*Session]struct{})
		h.rooms[roomID] = peers
		h.log.Info().Str("room_id", roomID).Msg("Created room")
	}
	peers[s] = struct{}{}

	h.broadcastLocked(roomID, models.UserConnected(participantID), s)
	if h.mirror != nil {
		h.mirror.push(presenceEvent{join: true, roomID: roomID, participantID: participantID})
	}

	s.log.Info().Str("room_id", roomID).Str("participant_id", participantID).
		Int("members", len(peers)).Msg("Participant joined room")
	return true, nil
}

// Signal forwards payload from s to the other sessions of its room, tagged
// with the sender's participant id. A non-empty to limits delivery to the
// sessions of that participant. It returns the number of sessions reached.
func (h *Hub) Signal(s *Session, to string, payload json.RawMessage) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if s.state != StateJoined {
		return 0, ErrNotJoined
	}

	data, err := json.Marshal(models.Forwarded(s.participantID, payload))
	if err != nil {
		return 0, err
	}

	delivered := 0
	for peer := range h.rooms[s.roomID] {
		if peer == s {
			continue
		}
		if to != "" && peer.participantID != to {
			continue
		}
		if peer.enqueue(data) {
			delivered++
		}
	}
	return delivered, nil
}

// release detaches s from the hub. For a joined session this removes the
// participant from the registry and tells the rest of the room.
func (h *Hub) release(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s.mu.Lock()
	wasJoined := s.state == StateJoined
	s.state = StateClosed
	close(s.send)
	s.mu.Unlock()

	delete(h.sessions, s)
	if !wasJoined {
		s.log.Debug().Msg("Closed session without room")
		return
	}

	roomID, participantID := s.roomID, s.participantID
	peers := h.rooms[roomID]
	delete(peers, s)

	// Another live connection of the same participant keeps it in the room.
	stillPresent := false
	for peer := range peers {
		if peer.participantID == participantID {
			stillPresent = true
			break
		}
	}
	if !stillPresent {
		h.registry.Leave(roomID, participantID)
		if h.mirror != nil {
			h.mirror.push(presenceEvent{join: false, roomID: roomID, participantID: participantID})
		}
	}
	if len(peers) == 0 {
		delete(h.rooms, roomID)
	}

	h.broadcastLocked(roomID, models.UserDisconnected(participantID), s)

	s.log.Info().Str("room_id", roomID).Str("participant_id", participantID).
		Int("members", len(peers)).Msg("Participant left room")
}

// broadcastLocked enqueues msg for every session of roomID except exclude.
// Callers must hold h.mu.
func (h *Hub) broadcastLocked(roomID string, msg models.SignalMessage, exclude *Session) {
	peers := h.rooms[roomID]
	if len(peers) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal message")
		return
	}

	for peer := range peers {
		if peer != exclude {
			peer.enqueue(data)
		}
	}
}

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown closes every live session, running each one's cleanup, and stops
// the presence worker. New sessions are refused afterwards.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	live := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		live = append(live, s)
	}
	h.mu.Unlock()

	for _, s := range live {
		s.Close()
	}
	if h.mirror != nil {
		h.mirror.stop()
	}
	h.log.Info().Int("sessions", len(live)).Msg("Relay hub stopped")
}
