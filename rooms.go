package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"
)

var ErrTooManyRooms = errors.New("too many active rooms")

const defaultPlayerName = "Player"

// RoomManager is the registry of live rooms and the matchmaking entry point
type RoomManager struct {
	mu      sync.RWMutex
	joinMu  sync.Mutex // held from name check until the seat is taken
	rooms   map[string]*Room
	order   []string // creation order, so the oldest open room fills first
	cfg     Config
	journal Journal
}

// NewRoomManager creates a RoomManager
func NewRoomManager(cfg Config, journal Journal) *RoomManager {
	return &RoomManager{
		rooms:   make(map[string]*Room),
		cfg:     cfg,
		journal: journal,
	}
}

// Matchmake seats a player in the first open room, creating one when none
// is open. A room that fills between lookup and join is skipped.
func (m *RoomManager) Matchmake(connID, name string, b Broadcaster) (*Room, EntityState, error) {
	m.joinMu.Lock()
	defer m.joinMu.Unlock()

	name = m.UniqueName(name)
	for attempt := 0; attempt < 3; attempt++ {
		room, err := m.findAvailableRoom()
		if err != nil {
			return nil, EntityState{}, err
		}
		st, err := room.Join(connID, name, b)
		if err == nil {
			return room, st, nil
		}
		if !errors.Is(err, ErrRoomFull) && !errors.Is(err, ErrRoomClosed) {
			return nil, EntityState{}, err
		}
	}
	return nil, EntityState{}, fmt.Errorf("matchmaking gave up: %w", ErrRoomFull)
}

func (m *RoomManager) findAvailableRoom() (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		if r := m.rooms[id]; r != nil && r.Open() {
			return r, nil
		}
	}
	if len(m.rooms) >= m.cfg.MaxRooms {
		return nil, ErrTooManyRooms
	}
	r := NewRoom(m.cfg, m.journal)
	r.onClosed = m.remove
	m.rooms[r.ID] = r
	m.order = append(m.order, r.ID)
	r.log.Info("room created", "rooms", len(m.rooms))
	return r, nil
}

func (m *RoomManager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return
	}
	delete(m.rooms, id)
	for i, rid := range m.order {
		if rid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// GetRoom returns a room by ID
func (m *RoomManager) GetRoom(id string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[id]
}

// Count returns the number of live rooms
func (m *RoomManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// ListRooms returns info about all live rooms, oldest first
func (m *RoomManager) ListRooms() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]RoomInfo, 0, len(m.order))
	for _, id := range m.order {
		list = append(list, m.rooms[id].Info())
	}
	return list
}

// Shutdown releases every room without settlement
func (m *RoomManager) Shutdown() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = make(map[string]*Room)
	m.order = nil
	m.mu.Unlock()

	for _, r := range rooms {
		r.Shutdown()
	}
}

// UniqueName cleans a requested display name and suffixes it when a human
// in any live room already uses it
func (m *RoomManager) UniqueName(requested string) string {
	base := sanitizeName(requested)

	taken := make(map[string]bool)
	m.mu.RLock()
	for _, r := range m.rooms {
		for _, n := range r.HumanNames() {
			taken[n] = true
		}
	}
	m.mu.RUnlock()

	if !taken[base] {
		return base
	}
	for i := 0; i < 100; i++ {
		candidate := fmt.Sprintf("%s#%04d", base, rand.IntN(10000))
		if !taken[candidate] {
			return candidate
		}
	}
	return base + "#" + GenerateID(3)
}

func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > maxNameLen {
		name = strings.TrimSpace(string(runes[:maxNameLen]))
	}
	if name == "" {
		return defaultPlayerName
	}
	return name
}
