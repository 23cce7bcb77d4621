// internal/game/store.go
package game

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/wordchain/internal/models"
)

const (
	roomCodeLength   = 6
	roomCodeAttempts = 16
)

// RoomStore is the in-memory registry of live rooms keyed by code.
// It never holds its own lock while a room lock is taken.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room

	// NewCode generates candidate room codes. Collisions are retried.
	NewCode func() string
}

func NewRoomStore() *RoomStore {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var rngMu sync.Mutex
	return &RoomStore{
		rooms: make(map[string]*Room),
		NewCode: func() string {
			rngMu.Lock()
			defer rngMu.Unlock()
			return randomCode(rng)
		},
	}
}

// randomCode builds a base-36 code, uppercased.
func randomCode(rng *rand.Rand) string {
	var b strings.Builder
	for b.Len() < roomCodeLength {
		b.WriteString(strconv.FormatInt(rng.Int63n(36), 36))
	}
	return strings.ToUpper(b.String())
}

// Create registers a new room seated with host under a fresh code.
func (s *RoomStore) Create(host *models.Player, rules models.RoomRules) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < roomCodeAttempts; i++ {
		code := s.NewCode()
		if _, taken := s.rooms[code]; taken {
			continue
		}
		r := newRoom(code, rules)
		host.IsHost = true
		r.Players = append(r.Players, host)
		s.rooms[code] = r
		return r, nil
	}
	return nil, ErrCodeExhausted
}

func (s *RoomStore) Get(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[normalizeCode(code)]
	return r, ok
}

// Delete drops the room only if the registered instance is r.
func (s *RoomStore) Delete(r *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.rooms[r.Code]; ok && cur == r {
		delete(s.rooms, r.Code)
	}
}

// All returns the live rooms in no particular order.
func (s *RoomStore) All() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

func (s *RoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
