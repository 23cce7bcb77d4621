// internal/models/rules.go
package models

import (
	"fmt"
	"strings"
)

// GameMode selects the win condition of a room.
type GameMode string

const (
	// GameModeEndless is won by the last seat left alive.
	GameModeEndless GameMode = "endless"
	// GameModeClassic is won by the first seat to reach the target score.
	GameModeClassic GameMode = "classic"
)

const (
	MinPlayers        = 2
	MaxPlayers        = 8
	DefaultMaxPlayers = MaxPlayers
)

// RoomRules is the creation-time configuration of a room.
type RoomRules struct {
	MaxPlayers int      `json:"maxPlayers"`
	GameMode   GameMode `json:"gameMode"`
}

// DefaultRoomRules returns an endless room with full capacity.
func DefaultRoomRules() RoomRules {
	return RoomRules{MaxPlayers: DefaultMaxPlayers, GameMode: GameModeEndless}
}

// ParseGameMode accepts the wire spelling of a mode. An empty string selects endless.
func ParseGameMode(s string) (GameMode, error) {
	switch GameMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", GameModeEndless:
		return GameModeEndless, nil
	case GameModeClassic:
		return GameModeClassic, nil
	}
	return "", fmt.Errorf("unknown game mode %q", s)
}

// ParseRules overlays the optional request values on the defaults.
// A zero maxPlayers keeps the default capacity.
func ParseRules(maxPlayers int, gameMode string) (RoomRules, error) {
	rules := DefaultRoomRules()
	if maxPlayers != 0 {
		if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
			return rules, fmt.Errorf("max players must be between %d and %d", MinPlayers, MaxPlayers)
		}
		rules.MaxPlayers = maxPlayers
	}
	mode, err := ParseGameMode(gameMode)
	if err != nil {
		return rules, err
	}
	rules.GameMode = mode
	return rules, nil
}
