// Package presence separates a player's durable identity from the connection
// currently carrying it, and runs the disconnect grace period.
package presence

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoSession    = errors.New("no previous session for that connection")
	ErrRoomMismatch = errors.New("previous session belongs to a different room")
)

// DefaultGrace is how long a dropped seat waits for its owner.
const DefaultGrace = 60 * time.Second

// Session is one durable identity's membership.
type Session struct {
	RoomCode     string `json:"roomCode"`
	Username     string `json:"username"`
	ConnID       string `json:"connectionId"`
	Disconnected bool   `json:"disconnected"`
}

type entry struct {
	Session
	timer *time.Timer
	// epoch invalidates grace timers armed before the last rebind.
	epoch int
}

// Manager tracks identities by (room, username) and their live connection ids.
type Manager struct {
	mu         sync.Mutex
	grace      time.Duration
	byIdentity map[string]*entry
	byConn     map[string]string

	// OnGraceExpired runs, without the manager lock, when a dropped session
	// was not reclaimed in time. The session is already forgotten.
	OnGraceExpired func(s Session)

	Logger *logrus.Logger
}

func NewManager(grace time.Duration, logger *logrus.Logger) *Manager {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		grace:      grace,
		byIdentity: make(map[string]*entry),
		byConn:     make(map[string]string),
		Logger:     logger,
	}
}

func identityKey(roomCode, username string) string {
	return roomCode + "\x00" + username
}

// Track records that username in roomCode is now carried by connID. Any
// previous session for the same identity is replaced.
func (m *Manager) Track(roomCode, username, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := identityKey(roomCode, username)
	if old, ok := m.byIdentity[key]; ok {
		m.dropLocked(key, old)
	}
	m.byIdentity[key] = &entry{Session: Session{RoomCode: roomCode, Username: username, ConnID: connID}}
	m.byConn[connID] = key
}

// Lookup resolves a connection id to the session it carries or last carried.
func (m *Manager) Lookup(connID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.byConn[connID]
	if !ok {
		return Session{}, false
	}
	return m.byIdentity[key].Session, true
}

// Disconnected starts the grace period for connID's session. It reports
// false when the connection carries no session.
func (m *Manager) Disconnected(connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.byConn[connID]
	if !ok {
		return false
	}
	e := m.byIdentity[key]
	if e.timer != nil {
		e.timer.Stop()
	}
	e.Disconnected = true
	e.epoch++
	epoch := e.epoch
	e.timer = time.AfterFunc(m.grace, func() {
		m.expire(key, epoch)
	})
	m.Logger.WithFields(logrus.Fields{"room": e.RoomCode, "player": e.Username, "grace": m.grace}).
		Info("grace period started")
	return true
}

func (m *Manager) expire(key string, epoch int) {
	m.mu.Lock()
	e, ok := m.byIdentity[key]
	if !ok || e.epoch != epoch || !e.Disconnected {
		m.mu.Unlock()
		return
	}
	s := e.Session
	m.dropLocked(key, e)
	m.mu.Unlock()

	m.Logger.WithFields(logrus.Fields{"room": s.RoomCode, "player": s.Username}).Info("grace period expired")
	if m.OnGraceExpired != nil {
		m.OnGraceExpired(s)
	}
}

// Rebind moves the session carried by oldConnID onto newConnID and cancels
// any pending grace period. roomCode must match the session's room.
func (m *Manager) Rebind(roomCode, oldConnID, newConnID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.byConn[oldConnID]
	if !ok {
		return Session{}, ErrNoSession
	}
	e := m.byIdentity[key]
	if e.RoomCode != roomCode {
		return Session{}, ErrRoomMismatch
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.epoch++
	e.Disconnected = false
	delete(m.byConn, oldConnID)
	e.ConnID = newConnID
	m.byConn[newConnID] = key
	return e.Session, nil
}

// Forget drops connID's session and cancels its grace period.
func (m *Manager) Forget(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.byConn[connID]
	if !ok {
		return
	}
	m.dropLocked(key, m.byIdentity[key])
}

// ForgetRoom drops every session of a closed room.
func (m *Manager) ForgetRoom(roomCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.byIdentity {
		if e.RoomCode == roomCode {
			m.dropLocked(key, e)
		}
	}
}

// Len is the number of tracked identities.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byIdentity)
}

func (m *Manager) dropLocked(key string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.epoch++
	delete(m.byConn, e.ConnID)
	delete(m.byIdentity, key)
}

// Stop cancels every pending grace timer.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.byIdentity {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.epoch++
	}
}
