// internal/game/events.go
package game

import "github.com/jason-s-yu/wordchain/internal/models"

// EventType names an outbound room-scoped message.
type EventType string

const (
	EventRoomCreated        EventType = "room-created"
	EventRoomUpdated        EventType = "room-updated"
	EventGameStarted        EventType = "game-started"
	EventNextTurn           EventType = "next-turn"
	EventGameOver           EventType = "game-over"
	EventWordResult         EventType = "word-result"
	EventWordError          EventType = "word-error"
	EventPlayerEliminated   EventType = "player-eliminated"
	EventPlayerDisconnected EventType = "player-disconnected"
	EventPlayerReconnected  EventType = "player-reconnected"
	EventPlayerRemoved      EventType = "player-removed"
)

// Event is one message pushed to every member of a room.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// RoomPayload carries a full snapshot.
type RoomPayload struct {
	RoomCode string      `json:"roomCode"`
	Room     models.Room `json:"room"`
}

// WordResultPayload is the success case of a submission.
type WordResultPayload struct {
	Success  bool          `json:"success"`
	Word     string        `json:"word"`
	Meaning  string        `json:"meaning"`
	Phonetic string        `json:"phonetic"`
	Player   models.Player `json:"player"`
}

// WordErrorPayload is the failure case of a submission, including timeouts.
type WordErrorPayload struct {
	Player    models.Player `json:"player"`
	Word      string        `json:"word"`
	Reason    string        `json:"reason"`
	LivesLeft int           `json:"livesLeft"`
}

type PlayerEliminatedPayload struct {
	Player models.Player `json:"player"`
	Reason string        `json:"reason"`
}

// PresencePayload is sent on disconnect and reconnect.
type PresencePayload struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

type PlayerRemovedPayload struct {
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

func roomEvent(t EventType, snap models.Room) Event {
	return Event{Type: t, Payload: RoomPayload{RoomCode: snap.Code, Room: snap}}
}
