package models

// RoomMembersResponse describes the current membership of one room
type RoomMembersResponse struct {
	RoomID  string   `json:"roomId"`
	Members []string `json:"members"`
}

// CreateRoomResponse carries a freshly generated room identifier.
// The room itself only exists once somebody joins it.
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}
