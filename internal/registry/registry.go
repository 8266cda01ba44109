package registry

import (
	"sort"
	"sync"
)

// RoomInfo is a read-only view of one room entry.
type RoomInfo struct {
	RoomID  string `json:"roomId"`
	Members int    `json:"members"`
}

// Registry tracks which participants are present in which room.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]map[string]struct{}
	reapEmpty bool
}

// New creates an empty registry. With reapEmpty set, a room entry is removed
// as soon as its last member leaves.
func New(reapEmpty bool) *Registry {
	return &Registry{
		rooms:     make(map[string]map[string]struct{}),
		reapEmpty: reapEmpty,
	}
}

// Join adds participantID to roomID, creating the room on first use.
// Repeated calls with the same pair are no-ops.
func (r *Registry) Join(roomID, participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[participantID] = struct{}{}
}

// Leave removes participantID from roomID. Unknown rooms and members are ignored.
// It reports whether a member was actually removed.
func (r *Registry) Leave(roomID, participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, present := members[participantID]; !present {
		return false
	}
	delete(members, participantID)

	if r.reapEmpty && len(members) == 0 {
		delete(r.rooms, roomID)
	}
	return true
}

// Members returns a sorted snapshot of the room's participants.
// Unknown rooms yield an empty, non-nil slice.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Exists reports whether the registry holds an entry for roomID.
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RoomInfo, 0, len(r.rooms))
	for id, members := range r.rooms {
		out = append(out, RoomInfo{RoomID: id, Members: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
