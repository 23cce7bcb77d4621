// internal/game/room.go
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/wordchain/internal/models"
)

// turnState tracks where the current turn is within its resolution.
type turnState int

const (
	turnIdle       turnState = iota // lobby or game over
	turnAwaiting                    // countdown running, submissions accepted
	turnValidating                  // a submission is with the dictionary
	turnDisplaying                  // result shown, next turn not armed yet
)

// Room is the authoritative state of one game session. Every field below Mu
// is guarded by it; callers outside this package only ever see Snapshot copies.
type Room struct {
	Code      string
	Rules     models.RoomRules
	GameID    uuid.UUID
	CreatedAt time.Time

	Mu sync.Mutex

	Players            []*models.Player
	CurrentPlayerIndex int
	CurrentLetter      string
	LastWord           string
	usedWords          map[string]struct{}
	usedOrder          []string

	Started  bool
	GameOver bool
	Winner   *models.Player

	// TurnID increments every time a new turn is armed. Timer callbacks
	// carry the value they were armed with and are ignored when it moved.
	TurnID     int
	state      turnState
	turnEndsAt time.Time

	turnTimer    *time.Timer
	displayTimer *time.Timer
	aiTimer      *time.Timer

	actionIndex int

	// closed is set once the room has been dropped from the store.
	closed bool
}

func newRoom(code string, rules models.RoomRules) *Room {
	return &Room{
		Code:      code,
		Rules:     rules,
		GameID:    uuid.New(),
		CreatedAt: time.Now(),
		usedWords: make(map[string]struct{}),
	}
}

// Phase reports the coarse lifecycle state. Assumes lock is held.
func (r *Room) Phase() models.Phase {
	switch {
	case r.GameOver:
		return models.PhaseGameOver
	case r.Started:
		return models.PhaseInProgress
	}
	return models.PhaseLobby
}

// Snapshot copies the room into its wire form. Assumes lock is held.
func (r *Room) Snapshot() models.Room {
	snap := models.Room{
		Code:               r.Code,
		Players:            make([]models.Player, len(r.Players)),
		CurrentPlayerIndex: r.CurrentPlayerIndex,
		CurrentLetter:      r.CurrentLetter,
		UsedWords:          append([]string{}, r.usedOrder...),
		GameStarted:        r.Started,
		GameOver:           r.GameOver,
		MaxPlayers:         r.Rules.MaxPlayers,
		GameMode:           r.Rules.GameMode,
		Phase:              r.Phase(),
		TurnID:             r.TurnID,
	}
	for i, p := range r.Players {
		snap.Players[i] = *p
	}
	if r.LastWord != "" {
		w := r.LastWord
		snap.LastWord = &w
	}
	if r.Winner != nil {
		w := *r.Winner
		snap.Winner = &w
	}
	if r.state == turnAwaiting && !r.turnEndsAt.IsZero() {
		t := r.turnEndsAt
		snap.TurnEndsAt = &t
	}
	return snap
}

// playerByID finds a seat by connection id. Assumes lock is held.
func (r *Room) playerByID(id string) (*models.Player, int) {
	for i, p := range r.Players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

// playerByUsername finds a seat by durable identity. Assumes lock is held.
func (r *Room) playerByUsername(name string) *models.Player {
	for _, p := range r.Players {
		if p.Username == name {
			return p
		}
	}
	return nil
}

// currentPlayer returns the seat holding the turn. Assumes lock is held.
func (r *Room) currentPlayer() *models.Player {
	if r.CurrentPlayerIndex < 0 || r.CurrentPlayerIndex >= len(r.Players) {
		return nil
	}
	return r.Players[r.CurrentPlayerIndex]
}

func (r *Room) isUsed(word string) bool {
	_, ok := r.usedWords[word]
	return ok
}

func (r *Room) markUsed(word string) {
	if r.isUsed(word) {
		return
	}
	r.usedWords[word] = struct{}{}
	r.usedOrder = append(r.usedOrder, word)
}

// humanCount counts seats that are not driven by the scripted opponent.
func (r *Room) humanCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.IsAI {
			n++
		}
	}
	return n
}

// removeSeat drops a seat and keeps CurrentPlayerIndex pointing at the same
// player when an earlier seat leaves. It returns the removed index or -1.
// Assumes lock is held.
func (r *Room) removeSeat(id string) (*models.Player, int) {
	p, idx := r.playerByID(id)
	if p == nil {
		return nil, -1
	}
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	if idx < r.CurrentPlayerIndex {
		r.CurrentPlayerIndex--
	}
	if r.CurrentPlayerIndex >= len(r.Players) {
		r.CurrentPlayerIndex = 0
	}
	if p.IsHost && len(r.Players) > 0 {
		p.IsHost = false
		r.transferHost()
	}
	return p, idx
}

// transferHost hands host status to the first human seat, or the first seat
// if only scripted opponents remain.
func (r *Room) transferHost() {
	for _, p := range r.Players {
		if !p.IsAI {
			p.IsHost = true
			return
		}
	}
	r.Players[0].IsHost = true
}
