// internal/game/errors.go
package game

import "errors"

// Input rejections. None of these mutate room state.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrGameStarted      = errors.New("game already started")
	ErrGameNotStarted   = errors.New("game has not started")
	ErrGameOver         = errors.New("game is over")
	ErrNotHost          = errors.New("only the host can do that")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
	ErrNotYourTurn      = errors.New("Not your turn")
	ErrTurnResolving    = errors.New("previous turn is still resolving")
	ErrNameTaken        = errors.New("username already taken in this room")
	ErrInvalidUsername  = errors.New("username is required")
	ErrPlayerNotFound   = errors.New("player not found in room")
	ErrCodeExhausted    = errors.New("could not allocate a unique room code")
	ErrTurnAbandoned    = errors.New("turn ended before the word was checked")
	ErrAlreadySeated    = errors.New("already seated in this room")
	ErrSeatInUse        = errors.New("seat is still connected")
)

// Reasons attached to word-error and player-removed broadcasts.
const (
	ReasonNotYourTurn      = "Not your turn"
	ReasonAlreadyUsed      = "This word has already been used"
	ReasonNotFound         = "Word not found in dictionary"
	ReasonValidationFailed = "Failed to validate word (timeout or network error)"
	ReasonTimeout          = "Time out"
	ReasonNoLives          = "No lives remaining"
	ReasonReconnectFailed  = "Failed to reconnect"
	ReasonLeft             = "Left the room"
	ReasonDisconnected     = "Disconnected"
)

// wrongLetterReason is the rejection text for a word with the wrong initial.
func wrongLetterReason(letter string) string {
	return `Word must start with "` + letter + `"`
}
