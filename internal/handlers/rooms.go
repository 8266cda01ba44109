package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mossy-p/meeting-relay/internal/models"
	"github.com/mossy-p/meeting-relay/internal/registry"
)

type RoomsHandler struct {
	registry *registry.Registry
}

func NewRoomsHandler(reg *registry.Registry) *RoomsHandler {
	return &RoomsHandler{registry: reg}
}

// CreateRoom hands out a fresh room id. Nothing is stored: the room comes
// into existence when the first participant joins it.
func (h *RoomsHandler) CreateRoom(c *gin.Context) {
	c.JSON(http.StatusCreated, models.CreateRoomResponse{
		RoomID: uuid.New().String(),
	})
}

// ListRooms returns every known room with its member count
func (h *RoomsHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Rooms())
}

// GetRoom returns the current members of a room. Unknown rooms are simply empty.
func (h *RoomsHandler) GetRoom(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("roomId"))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}

	c.JSON(http.StatusOK, models.RoomMembersResponse{
		RoomID:  roomID,
		Members: h.registry.Members(roomID),
	})
}
