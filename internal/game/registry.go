package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry owns every active room, grouped by mode. Collection mutation and
// id allocation are serialized by one mutex; per-room state is guarded by
// the room itself. Lock order is always registry before room.
type Registry struct {
	mu     sync.Mutex
	rooms  map[Mode][]*Room
	byID   map[string]*Room
	nextID int
	log    zerolog.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		rooms: make(map[Mode][]*Room),
		byID:  make(map[string]*Room),
		log:   log,
	}
}

// FindAvailable returns the first joinable room of the mode in creation
// order, creating and registering a fresh one when none qualifies.
func (reg *Registry) FindAvailable(mode Mode) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	now := time.Now()
	for _, room := range reg.rooms[mode] {
		if room.Joinable(now) {
			return room
		}
	}
	return reg.create(mode)
}

// CreateRoom allocates and registers a fresh room for the mode.
func (reg *Registry) CreateRoom(mode Mode) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.create(mode)
}

func (reg *Registry) create(mode Mode) *Room {
	reg.nextID++
	room := newRoom(fmt.Sprintf("room-%d", reg.nextID), mode)
	reg.rooms[mode] = append(reg.rooms[mode], room)
	reg.byID[room.ID] = room
	reg.log.Info().Str("roomId", room.ID).Str("mode", string(mode)).Msg("room created")
	return room
}

// Get looks a room up by id.
func (reg *Registry) Get(roomID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.byID[roomID]
	return room, ok
}

// Remove detaches the room from the registry. Removing twice, or removing a
// room that raced its own cleanup timer, is a no-op.
func (reg *Registry) Remove(room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.byID[room.ID]; !ok {
		return
	}
	delete(reg.byID, room.ID)
	list := reg.rooms[room.Mode]
	for i, r := range list {
		if r == room {
			reg.rooms[room.Mode] = append(list[:i], list[i+1:]...)
			break
		}
	}
	reg.log.Info().Str("roomId", room.ID).Str("mode", string(room.Mode)).Msg("room removed")
}

// RoomCount reports the number of active rooms for the mode.
func (reg *Registry) RoomCount(mode Mode) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms[mode])
}
