// internal/handlers/messages.go
package handlers

import (
	"encoding/json"

	"github.com/jason-s-yu/wordchain/internal/models"
)

// Inbound message types.
const (
	MsgCreateRoom        = "create-room"
	MsgJoinRoom          = "join-room"
	MsgGetRoom           = "get-room"
	MsgStartGame         = "start-game"
	MsgSubmitWord        = "submit-word"
	MsgAddAI             = "add-ai"
	MsgLeaveRoom         = "leave-room"
	MsgCheckReconnection = "check-reconnection"
	MsgRejoinRoom        = "rejoin-room"
	MsgPing              = "ping"
)

// Outbound message types that only the gateway produces. Room events come
// from the engine with their own types.
const (
	OutSession               = "session"
	OutRoomCreated           = "room-created"
	OutRoomUpdated           = "room-updated"
	OutLeftRoom              = "left-room"
	OutReconnectionAvailable = "reconnection-available"
	OutRejoinedRoom          = "rejoined-room"
	OutPong                  = "pong"

	OutJoinError   = "join-error"
	OutStartError  = "start-error"
	OutRoomError   = "room-error"
	OutRejoinError = "rejoin-error"
	OutWordError   = "word-error"
	OutError       = "error"
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type createRoomPayload struct {
	Username   string `json:"username"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
	GameMode   string `json:"gameMode,omitempty"`
}

type joinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type roomCodePayload struct {
	RoomCode string `json:"roomCode"`
}

type submitWordPayload struct {
	RoomCode string `json:"roomCode"`
	Word     string `json:"word"`
}

type reconnectPayload struct {
	RoomCode        string `json:"roomCode,omitempty"`
	OldConnectionID string `json:"oldConnectionId"`
	Ticket          string `json:"ticket,omitempty"`
}

type sessionPayload struct {
	ConnectionID string `json:"connectionId"`
	Ticket       string `json:"ticket,omitempty"`
}

type roomPayload struct {
	RoomCode string      `json:"roomCode"`
	Room     models.Room `json:"room"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type wordRejectedPayload struct {
	Word      string `json:"word"`
	Reason    string `json:"reason"`
	LivesLeft int    `json:"livesLeft"`
}

type reconnectionPayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}
