// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/wordchain/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the only WebSocket subprotocol the gateway speaks.
const Subprotocol = "wordchain"

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 16 << 10
)

// WSHandler upgrades the connection, assigns it a fresh connection id and
// routes its messages until it closes.
func WSHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			gs.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the wordchain subprotocol")
			return
		}
		c.SetReadLimit(readLimit)

		client := newClient(uuid.NewString(), r.RemoteAddr)
		gs.Hub.Register(client)
		middleware.LogWebSocketConnect(gs.Logger, client.ID, client.Remote)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, c, client, gs.Logger)
		gs.sendSession(client, "", "")

		readErr := readPump(ctx, c, client, gs)

		cancel()
		gs.Hub.Unregister(client)
		gs.handleDisconnect(client)
		middleware.LogWebSocketDisconnect(gs.Logger, client.ID, client.Remote, readErr)
	}
}

// readPump blocks until the connection fails. Normal closure returns nil.
func readPump(ctx context.Context, c *websocket.Conn, client *Client, gs *GameServer) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			gs.Logger.WithField("conn", client.ID).Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			gs.send(client, OutError, errorPayload{Message: "Invalid JSON format"})
			continue
		}
		gs.dispatch(ctx, client, msg)
	}
}

// dispatch routes one message. A panic is contained to the message that caused it.
func (gs *GameServer) dispatch(ctx context.Context, client *Client, msg Message) {
	log := gs.Logger.WithFields(logrus.Fields{"conn": client.ID, "type": msg.Type})
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("stack", string(debug.Stack())).Errorf("panic handling message: %v", rec)
			gs.send(client, OutError, errorPayload{Message: "internal error"})
		}
	}()
	log.Trace("message received")

	switch msg.Type {
	case MsgCreateRoom:
		var p createRoomPayload
		if gs.decode(client, msg, &p) {
			gs.handleCreateRoom(client, p)
		}
	case MsgJoinRoom:
		var p joinRoomPayload
		if gs.decode(client, msg, &p) {
			gs.handleJoinRoom(client, p)
		}
	case MsgGetRoom:
		var p roomCodePayload
		if gs.decode(client, msg, &p) {
			gs.handleGetRoom(client, p)
		}
	case MsgStartGame:
		var p roomCodePayload
		if gs.decode(client, msg, &p) {
			gs.handleStartGame(client, p)
		}
	case MsgSubmitWord:
		var p submitWordPayload
		if gs.decode(client, msg, &p) {
			gs.handleSubmitWord(ctx, client, p)
		}
	case MsgAddAI:
		var p roomCodePayload
		if gs.decode(client, msg, &p) {
			gs.handleAddAI(client, p)
		}
	case MsgLeaveRoom:
		var p roomCodePayload
		if gs.decode(client, msg, &p) {
			gs.handleLeaveRoom(client, p)
		}
	case MsgCheckReconnection:
		var p reconnectPayload
		if gs.decode(client, msg, &p) {
			gs.handleCheckReconnection(client, p)
		}
	case MsgRejoinRoom:
		var p reconnectPayload
		if gs.decode(client, msg, &p) {
			gs.handleRejoinRoom(client, p)
		}
	case MsgPing:
		gs.send(client, OutPong, nil)
	default:
		gs.send(client, OutError, errorPayload{Message: fmt.Sprintf("Unknown message type: %s", msg.Type)})
	}
}

func (gs *GameServer) decode(client *Client, msg Message, dst interface{}) bool {
	if len(msg.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		gs.send(client, OutError, errorPayload{Message: fmt.Sprintf("Invalid payload for %s", msg.Type)})
		return false
	}
	return true
}

// writePump drains the client's queue onto the socket and keeps it alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, client *Client, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-client.OutChan:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.WithField("conn", client.ID).Debugf("write failed: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.WithField("conn", client.ID).Debugf("ping failed: %v", err)
				return
			}
		}
	}
}
