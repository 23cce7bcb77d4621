package models

// Player is one seat in a room. Seat order in the room's player list defines
// turn rotation.
type Player struct {
	// ID is the current connection identity. It changes every time the
	// player's transport is re-established.
	ID string `json:"id"`

	// Username is the durable identity used to resolve reconnection.
	Username string `json:"username"`

	IsHost    bool `json:"isHost"`
	IsAlive   bool `json:"isAlive"`
	Lives     int  `json:"lives"`
	Score     int  `json:"score"`
	IsAI      bool `json:"isAI"`
	Connected bool `json:"connected"`
}

// StartingLives is the number of lives each seat begins a game with.
const StartingLives = 3
