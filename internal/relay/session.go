package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer, enough for SDP offers.
	maxMessageSize = 64 * 1024
)

// State is the lifecycle position of a session.
type State int

const (
	StateConnected State = iota
	StateJoined
	StateClosed
)

func (st State) String() string {
	switch st {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the relay side of one client connection.
//
// state, roomID and participantID change only while both hub.mu and mu are
// held, so holding either one is enough to read them.
type Session struct {
	ID string

	hub  *Hub
	conn *websocket.Conn
	log  zerolog.Logger

	mu            sync.Mutex
	state         State
	roomID        string
	participantID string
	send          chan []byte

	closeOnce sync.Once
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

func (s *Session) ParticipantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participantID
}

// enqueue hands data to the write pump without blocking. Messages for closed
// sessions or full queues are dropped.
func (s *Session) enqueue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		s.log.Warn().Str("participant_id", s.participantID).Msg("Send buffer full, dropping message")
		return false
	}
}

// Close runs the session cleanup once, however many times it is called.
// The write pump notices the closed queue and closes the transport.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.hub.release(s)
	})
}

// Start launches the read and write pumps for a transport-backed session.
func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}

func (s *Session) readPump() {
	defer func() {
		s.Close()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
		s.hub.Dispatch(s, message)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Warn().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
