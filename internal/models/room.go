package models

import "time"

// Phase is the coarse lifecycle state of a room.
type Phase string

const (
	PhaseLobby      Phase = "LOBBY"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseGameOver   Phase = "GAME_OVER"
)

// Room is the snapshot of a room pushed to clients. It is a copy; mutating it
// has no effect on the authoritative state.
type Room struct {
	Code               string     `json:"code"`
	Players            []Player   `json:"players"`
	CurrentPlayerIndex int        `json:"currentPlayerIndex"`
	CurrentLetter      string     `json:"currentLetter"`
	LastWord           *string    `json:"lastWord"`
	UsedWords          []string   `json:"usedWords"`
	GameStarted        bool       `json:"gameStarted"`
	GameOver           bool       `json:"gameOver"`
	Winner             *Player    `json:"winner"`
	MaxPlayers         int        `json:"maxPlayers"`
	GameMode           GameMode   `json:"gameMode"`
	Phase              Phase      `json:"phase"`
	TurnID             int        `json:"turnId"`
	TurnEndsAt         *time.Time `json:"turnEndsAt,omitempty"`
}

// CurrentPlayer returns the seat whose turn it is, or nil outside a game.
func (r Room) CurrentPlayer() *Player {
	if !r.GameStarted || r.CurrentPlayerIndex < 0 || r.CurrentPlayerIndex >= len(r.Players) {
		return nil
	}
	return &r.Players[r.CurrentPlayerIndex]
}

// PlayerByID finds a seat by its current connection id.
func (r Room) PlayerByID(id string) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}
