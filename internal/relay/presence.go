package relay

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Presence receives membership changes for external observers. The relay
// never reads it back.
type Presence interface {
	Join(ctx context.Context, roomID, participantID string) error
	Leave(ctx context.Context, roomID, participantID string) error
}

const (
	presenceQueue   = 1024
	presenceTimeout = 2 * time.Second
)

type presenceEvent struct {
	join          bool
	roomID        string
	participantID string
}

// mirror applies presence events sequentially on its own goroutine.
type mirror struct {
	target Presence
	log    zerolog.Logger
	events chan presenceEvent
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
}

func newMirror(target Presence, log zerolog.Logger) *mirror {
	return &mirror{
		target: target,
		log:    log.With().Str("component", "presence").Logger(),
		events: make(chan presenceEvent, presenceQueue),
		done:   make(chan struct{}),
	}
}

func (m *mirror) push(ev presenceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	select {
	case m.events <- ev:
	default:
		m.log.Warn().Str("room_id", ev.roomID).Str("participant_id", ev.participantID).
			Msg("Presence queue full, dropping update")
	}
}

func (m *mirror) run() {
	defer close(m.done)
	for ev := range m.events {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		var err error
		if ev.join {
			err = m.target.Join(ctx, ev.roomID, ev.participantID)
		} else {
			err = m.target.Leave(ctx, ev.roomID, ev.participantID)
		}
		cancel()
		if err != nil {
			m.log.Warn().Err(err).Bool("join", ev.join).Str("room_id", ev.roomID).
				Str("participant_id", ev.participantID).Msg("Presence update failed")
		}
	}
}

// stop drains queued events and waits for the worker to exit.
func (m *mirror) stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.events)
	m.mu.Unlock()
	<-m.done
}
