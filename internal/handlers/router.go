package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mossy-p/meeting-relay/internal/middleware"
	"github.com/mossy-p/meeting-relay/internal/relay"
)

// NewRouter wires the relay's HTTP surface onto a gin engine.
func NewRouter(hub *relay.Hub, allowedOrigins []string, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(allowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rooms := NewRoomsHandler(hub.Registry())
	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/rooms", rooms.CreateRoom)
		apiGroup.GET("/rooms", rooms.ListRooms)
		apiGroup.GET("/rooms/:roomId", rooms.GetRoom)
	}

	signaling := NewSignalingHandler(hub, log)
	router.GET("/ws", signaling.HandleSignaling)

	return router
}
