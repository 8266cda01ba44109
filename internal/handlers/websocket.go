package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mossy-p/meeting-relay/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

type SignalingHandler struct {
	hub *relay.Hub
	log zerolog.Logger
}

func NewSignalingHandler(hub *relay.Hub, log zerolog.Logger) *SignalingHandler {
	return &SignalingHandler{hub: hub, log: log}
}

// HandleSignaling upgrades the request and hands the connection to the relay.
// The client picks its room with a join-room message afterwards.
func (h *SignalingHandler) HandleSignaling(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to upgrade connection")
		return
	}

	session, err := h.hub.NewSession(conn)
	if err != nil {
		h.log.Warn().Err(err).Msg("Refusing connection")
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"))
		conn.Close()
		return
	}

	h.log.Info().Str("conn_id", session.ID).Str("remote_addr", c.ClientIP()).Msg("Client connected")
	session.Start()
}
