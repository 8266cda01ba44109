package relay

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/mossy-p/meeting-relay/internal/models"
)

// Dispatch routes one raw client frame. Malformed or incomplete frames are
// dropped; the connection stays open.
func (h *Hub) Dispatch(s *Session, raw []byte) {
	var msg models.SignalMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.log.Warn().Err(err).Msg("Failed to parse message")
		return
	}

	switch msg.Event {
	case models.EventJoinRoom:
		h.handleJoin(s, msg)
	case models.EventSignal:
		h.handleSignal(s, msg)
	case models.EventDisconnect:
		s.log.Debug().Msg("Client requested disconnect")
		s.Close()
	default:
		s.log.Warn().Str("event", string(msg.Event)).Msg("Unknown message type")
	}
}

func (h *Hub) handleJoin(s *Session, msg models.SignalMessage) {
	roomID := strings.TrimSpace(msg.RoomID)
	participantID := strings.TrimSpace(msg.ParticipantID)
	if roomID == "" || participantID == "" {
		s.log.Warn().Msg("Dropping join-room without roomId or participantId")
		return
	}

	_, err := h.Join(s, roomID, participantID)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyJoined):
		s.log.Warn().Str("room_id", roomID).Str("participant_id", participantID).
			Str("current_room_id", s.RoomID()).Msg("Rejected second join")
		h.reply(s, models.Error(err.Error()))
	default:
		s.log.Debug().Err(err).Msg("Ignoring join-room")
	}
}

func (h *Hub) handleSignal(s *Session, msg models.SignalMessage) {
	if strings.TrimSpace(msg.ParticipantID) == "" || !msg.HasSignal() {
		s.log.Warn().Msg("Dropping signal without participantId or signal")
		return
	}

	if p := s.ParticipantID(); p != "" && p != msg.ParticipantID {
		s.log.Warn().Str("claimed", msg.ParticipantID).Str("participant_id", p).
			Msg("Signal participantId does not match session, using session identity")
	}

	n, err := h.Signal(s, strings.TrimSpace(msg.To), msg.Signal)
	if err != nil {
		s.log.Debug().Err(err).Msg("Signal not relayed")
		return
	}
	s.log.Debug().Str("room_id", s.RoomID()).Int("delivered", n).Msg("Relayed signal")
}

func (h *Hub) reply(s *Session, msg models.SignalMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal message")
		return
	}
	s.enqueue(data)
}
