// internal/handlers/game_server.go
package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/jason-s-yu/wordchain/internal/auth"
	"github.com/jason-s-yu/wordchain/internal/game"
	"github.com/jason-s-yu/wordchain/internal/models"
	"github.com/jason-s-yu/wordchain/internal/presence"
	"github.com/sirupsen/logrus"
)

const rejoinFailed = "Unable to rejoin room"

// GameServer connects the WebSocket gateway to the engine and the presence
// manager. It owns no game state of its own.
type GameServer struct {
	Engine   *game.Engine
	Presence *presence.Manager
	Tickets  *auth.Tickets // nil disables reconnect tickets
	Hub      *Hub
	Logger   *logrus.Logger
}

// NewGameServer wires the engine's broadcasts and the presence grace expiry
// into the gateway.
func NewGameServer(engine *game.Engine, pres *presence.Manager, tickets *auth.Tickets, logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.New()
	}
	gs := &GameServer{
		Engine:   engine,
		Presence: pres,
		Tickets:  tickets,
		Hub:      NewHub(logger),
		Logger:   logger,
	}
	engine.BroadcastFn = func(code string, ev game.Event) {
		gs.Hub.BroadcastRoom(code, ev)
	}
	pres.OnGraceExpired = gs.onGraceExpired
	return gs
}

func (gs *GameServer) send(c *Client, typ string, payload interface{}) {
	gs.Hub.Send(c, outMessage{Type: typ, Payload: payload})
}

func (gs *GameServer) sendError(c *Client, typ string, err error) {
	gs.send(c, typ, errorPayload{Message: err.Error()})
}

// sendSession tells the client its connection id and, once seated, a ticket
// proving the seat for a later rejoin.
func (gs *GameServer) sendSession(c *Client, roomCode, username string) {
	payload := sessionPayload{ConnectionID: c.ID}
	if gs.Tickets != nil && roomCode != "" {
		token, err := gs.Tickets.Issue(auth.Ticket{Username: username, RoomCode: roomCode, ConnID: c.ID})
		if err != nil {
			gs.Logger.WithError(err).Warn("failed to issue reconnect ticket")
		} else {
			payload.Ticket = token
		}
	}
	gs.send(c, OutSession, payload)
}

// seat records a freshly seated connection everywhere it needs to be known.
func (gs *GameServer) seat(c *Client, code, username string) {
	gs.Presence.Track(code, username, c.ID)
	gs.sendSession(c, code, username)
}

// leavePrevious gives up the seat c held in prev once it holds one in next.
// Callers run it only after the new seat is secured, so a refused join or
// create leaves the old seat alone.
func (gs *GameServer) leavePrevious(c *Client, prev, next string) {
	if prev == "" || prev == next {
		return
	}
	gs.removeSeat(c, prev, game.ReasonLeft)
}

func (gs *GameServer) removeSeat(c *Client, code, reason string) {
	gs.Hub.Unsubscribe(c, code)
	gs.Presence.Forget(c.ID)
	_, empty, err := gs.Engine.RemovePlayer(code, c.ID, reason)
	if err != nil && !errors.Is(err, game.ErrPlayerNotFound) && !errors.Is(err, game.ErrRoomNotFound) {
		gs.Logger.WithFields(logrus.Fields{"room": code, "conn": c.ID}).WithError(err).Warn("failed to remove seat")
	}
	if empty {
		gs.closeRoom(code)
	}
}

func (gs *GameServer) closeRoom(code string) {
	gs.Presence.ForgetRoom(code)
	gs.Hub.CloseRoom(code)
}

func (gs *GameServer) handleCreateRoom(c *Client, p createRoomPayload) {
	rules, err := models.ParseRules(p.MaxPlayers, p.GameMode)
	if err != nil {
		gs.sendError(c, OutRoomError, err)
		return
	}
	prev := c.Room()
	snap, err := gs.Engine.CreateRoom(c.ID, p.Username, rules)
	if err != nil {
		gs.sendError(c, OutRoomError, err)
		return
	}
	gs.leavePrevious(c, prev, snap.Code)
	gs.Hub.Subscribe(c, snap.Code)
	gs.seat(c, snap.Code, strings.TrimSpace(p.Username))
	gs.send(c, OutRoomCreated, roomPayload{RoomCode: snap.Code, Room: snap})
}

func (gs *GameServer) handleJoinRoom(c *Client, p joinRoomPayload) {
	code := strings.ToUpper(strings.TrimSpace(p.RoomCode))
	prev := c.Room()
	if code == prev {
		gs.sendError(c, OutJoinError, game.ErrAlreadySeated)
		return
	}
	snap, err := gs.Engine.JoinRoom(code, c.ID, p.Username)
	if err != nil {
		gs.sendError(c, OutJoinError, err)
		return
	}
	gs.leavePrevious(c, prev, code)

	// The join broadcast went out before c subscribed.
	gs.Hub.Subscribe(c, code)
	gs.send(c, OutRoomUpdated, roomPayload{RoomCode: snap.Code, Room: snap})
	gs.seat(c, code, strings.TrimSpace(p.Username))
}

func (gs *GameServer) handleGetRoom(c *Client, p roomCodePayload) {
	snap, err := gs.Engine.GetRoom(p.RoomCode)
	if err != nil {
		gs.sendError(c, OutRoomError, err)
		return
	}
	gs.send(c, OutRoomUpdated, roomPayload{RoomCode: snap.Code, Room: snap})
}

func (gs *GameServer) handleStartGame(c *Client, p roomCodePayload) {
	if _, err := gs.Engine.StartGame(p.RoomCode, c.ID); err != nil {
		gs.sendError(c, OutStartError, err)
	}
}

func (gs *GameServer) handleAddAI(c *Client, p roomCodePayload) {
	if _, err := gs.Engine.AddAIPlayer(p.RoomCode, c.ID); err != nil {
		gs.sendError(c, OutRoomError, err)
	}
}

// handleSubmitWord relays input rejections to the actor only. Settled turns
// are broadcast by the engine.
func (gs *GameServer) handleSubmitWord(ctx context.Context, c *Client, p submitWordPayload) {
	_, err := gs.Engine.SubmitWord(ctx, p.RoomCode, c.ID, p.Word)
	switch {
	case err == nil:
	case errors.Is(err, game.ErrRoomNotFound):
		gs.sendError(c, OutRoomError, err)
	case errors.Is(err, game.ErrTurnAbandoned):
		gs.Logger.WithFields(logrus.Fields{"room": p.RoomCode, "conn": c.ID}).Debug("submission dropped, turn moved on")
	default:
		gs.send(c, OutWordError, wordRejectedPayload{Word: p.Word, Reason: err.Error(), LivesLeft: gs.livesOf(p.RoomCode, c.ID)})
	}
}

func (gs *GameServer) livesOf(code, connID string) int {
	snap, err := gs.Engine.GetRoom(code)
	if err != nil {
		return 0
	}
	if p := snap.PlayerByID(connID); p != nil {
		return p.Lives
	}
	return 0
}

func (gs *GameServer) handleLeaveRoom(c *Client, p roomCodePayload) {
	code := strings.ToUpper(strings.TrimSpace(p.RoomCode))
	if code == "" || code != c.Room() {
		gs.sendError(c, OutRoomError, game.ErrPlayerNotFound)
		return
	}
	gs.removeSeat(c, code, game.ReasonLeft)
	gs.send(c, OutLeftRoom, roomCodePayload{RoomCode: code})
}

// authorizeRejoin decides whether a connection may claim session s. With
// tickets enabled a matching ticket is required, and it may take over a seat
// whose old socket has not dropped yet. Without tickets only a seat inside
// its grace period can be claimed.
func (gs *GameServer) authorizeRejoin(token string, s presence.Session) (takeover bool, err error) {
	if gs.Tickets == nil {
		if !s.Disconnected {
			return false, game.ErrSeatInUse
		}
		return false, nil
	}
	if token == "" {
		return false, auth.ErrTicketRequired
	}
	tk, err := gs.Tickets.VerifyFor(token, s.ConnID)
	if err != nil {
		return false, err
	}
	if tk.RoomCode != s.RoomCode || tk.Username != s.Username {
		return false, auth.ErrTicketMismatch
	}
	return true, nil
}

// handleCheckReconnection answers only when there is something to rejoin.
func (gs *GameServer) handleCheckReconnection(c *Client, p reconnectPayload) {
	if p.OldConnectionID == "" || p.OldConnectionID == c.ID {
		return
	}
	s, ok := gs.Presence.Lookup(p.OldConnectionID)
	if !ok {
		return
	}
	if _, err := gs.authorizeRejoin(p.Ticket, s); err != nil {
		gs.Logger.WithField("conn", c.ID).WithError(err).Debug("reconnection not offered")
		return
	}
	gs.send(c, OutReconnectionAvailable, reconnectionPayload{RoomCode: s.RoomCode, Username: s.Username})
}

func (gs *GameServer) handleRejoinRoom(c *Client, p reconnectPayload) {
	code := strings.ToUpper(strings.TrimSpace(p.RoomCode))
	log := gs.Logger.WithFields(logrus.Fields{"room": code, "conn": c.ID, "old": p.OldConnectionID})

	prev := c.Room()
	s, ok := gs.Presence.Lookup(p.OldConnectionID)
	if !ok || s.RoomCode != code || p.OldConnectionID == c.ID || prev == code {
		log.Debug("rejoin refused: no matching session")
		gs.send(c, OutRejoinError, errorPayload{Message: rejoinFailed})
		return
	}
	takeover, err := gs.authorizeRejoin(p.Ticket, s)
	if err != nil {
		log.WithError(err).Info("rejoin refused")
		gs.send(c, OutRejoinError, errorPayload{Message: rejoinFailed})
		return
	}

	snap, err := gs.Engine.RebindPlayer(code, p.OldConnectionID, c.ID, takeover)
	if err != nil {
		log.WithError(err).Info("rejoin refused by engine")
		gs.send(c, OutRejoinError, errorPayload{Message: rejoinFailed})
		return
	}
	gs.leavePrevious(c, prev, code)
	gs.Hub.Subscribe(c, code)
	if _, err := gs.Presence.Rebind(code, p.OldConnectionID, c.ID); err != nil {
		// The grace period fired in between; start tracking afresh.
		gs.Presence.Track(code, s.Username, c.ID)
	}
	// A stale socket for the old id must stop receiving this room's events.
	if old, ok := gs.Hub.Client(p.OldConnectionID); ok {
		gs.Hub.Unsubscribe(old, code)
	}

	gs.sendSession(c, code, s.Username)
	gs.send(c, OutRejoinedRoom, roomPayload{RoomCode: code, Room: snap})
}

// handleDisconnect runs after a socket's read loop ends.
func (gs *GameServer) handleDisconnect(c *Client) {
	code := c.Room()
	if code == "" {
		return
	}
	gs.Hub.Unsubscribe(c, code)

	grace, err := gs.Engine.HandleDisconnect(code, c.ID)
	if err != nil {
		gs.Presence.Forget(c.ID)
		if !errors.Is(err, game.ErrPlayerNotFound) && !errors.Is(err, game.ErrRoomNotFound) {
			gs.Logger.WithFields(logrus.Fields{"room": code, "conn": c.ID}).WithError(err).Warn("disconnect handling failed")
		}
		return
	}
	if grace {
		gs.Presence.Disconnected(c.ID)
		return
	}
	gs.Presence.Forget(c.ID)
	if _, ok := gs.Engine.Rooms.Get(code); !ok {
		gs.closeRoom(code)
	}
}

// onGraceExpired removes a seat whose owner never came back.
func (gs *GameServer) onGraceExpired(s presence.Session) {
	_, empty, err := gs.Engine.RemovePlayer(s.RoomCode, s.ConnID, game.ReasonReconnectFailed)
	if err != nil {
		gs.Logger.WithFields(logrus.Fields{"room": s.RoomCode, "player": s.Username}).WithError(err).
			Debug("grace expiry found no seat to remove")
		return
	}
	if empty {
		gs.closeRoom(s.RoomCode)
	}
}
