package presence

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(grace time.Duration) (*Manager, *expiries) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	m := NewManager(grace, l)
	ex := &expiries{}
	m.OnGraceExpired = ex.record
	return m, ex
}

type expiries struct {
	mu   sync.Mutex
	seen []Session
}

func (e *expiries) record(s Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, s)
}

func (e *expiries) list() []Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Session{}, e.seen...)
}

func TestLookupAndRebind(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	m.Track("ROOM01", "alice", "c1")

	s, ok := m.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, Session{RoomCode: "ROOM01", Username: "alice", ConnID: "c1"}, s)

	_, err := m.Rebind("OTHER1", "c1", "c2")
	assert.ErrorIs(t, err, ErrRoomMismatch)

	s, err = m.Rebind("ROOM01", "c1", "c2")
	require.NoError(t, err)
	assert.Equal(t, "c2", s.ConnID)

	_, ok = m.Lookup("c1")
	assert.False(t, ok, "old connection id no longer resolves")
	s, ok = m.Lookup("c2")
	require.True(t, ok)
	assert.Equal(t, "alice", s.Username)

	_, err = m.Rebind("ROOM01", "nope", "c3")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestGraceExpiry(t *testing.T) {
	m, ex := newTestManager(10 * time.Millisecond)
	m.Track("ROOM01", "alice", "c1")
	require.True(t, m.Disconnected("c1"))

	require.Eventually(t, func() bool { return len(ex.list()) == 1 }, time.Second, time.Millisecond)
	got := ex.list()[0]
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "c1", got.ConnID)
	assert.True(t, got.Disconnected)
	assert.Zero(t, m.Len())
}

func TestRebindCancelsGrace(t *testing.T) {
	m, ex := newTestManager(20 * time.Millisecond)
	m.Track("ROOM01", "alice", "c1")
	require.True(t, m.Disconnected("c1"))

	_, err := m.Rebind("ROOM01", "c1", "c2")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, ex.list())
	s, ok := m.Lookup("c2")
	require.True(t, ok)
	assert.False(t, s.Disconnected)
}

func TestDisconnectUnknownConnection(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	assert.False(t, m.Disconnected("ghost"))
}

func TestTrackReplacesIdentity(t *testing.T) {
	m, ex := newTestManager(20 * time.Millisecond)
	m.Track("ROOM01", "alice", "c1")
	require.True(t, m.Disconnected("c1"))
	m.Track("ROOM01", "alice", "c9")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, ex.list(), "replacing the session cancels the old grace timer")
	_, ok := m.Lookup("c1")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestForgetRoom(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	m.Track("ROOM01", "alice", "c1")
	m.Track("ROOM01", "bob", "c2")
	m.Track("ROOM02", "carol", "c3")

	m.Forget("c1")
	assert.Equal(t, 2, m.Len())
	m.ForgetRoom("ROOM01")
	assert.Equal(t, 1, m.Len())
	_, ok := m.Lookup("c3")
	assert.True(t, ok)
}
