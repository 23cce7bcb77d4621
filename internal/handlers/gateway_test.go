// internal/handlers/gateway_test.go
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/wordchain/internal/auth"
	"github.com/jason-s-yu/wordchain/internal/dictionary"
	"github.com/jason-s-yu/wordchain/internal/game"
	"github.com/jason-s-yu/wordchain/internal/models"
	"github.com/jason-s-yu/wordchain/internal/presence"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var testWords = map[string]bool{"cat": true, "tap": true, "pen": true, "cow": true}

func setupServer(t *testing.T, grace time.Duration, opts ...func(*GameServer)) (*GameServer, *httptest.Server) {
	t.Helper()
	logger := quietLogger()

	settings := game.DefaultSettings()
	settings.TurnTimeout = time.Hour
	settings.WordDisplayDelay = 5 * time.Millisecond
	settings.EliminationDisplayDelay = 5 * time.Millisecond
	settings.DictionaryTimeout = time.Second

	dict := dictionary.ValidatorFunc(func(_ context.Context, w string) (dictionary.Result, error) {
		if testWords[w] {
			return dictionary.Result{Valid: true, Meaning: "a word"}, nil
		}
		return dictionary.Result{}, nil
	})
	engine := game.NewEngine(game.NewRoomStore(), dict, settings, logger)
	engine.DrawLetter = func() string { return "C" }

	pres := presence.NewManager(grace, logger)
	tickets, err := auth.NewTickets(0)
	require.NoError(t, err)

	gs := NewGameServer(engine, pres, tickets, logger)
	for _, opt := range opts {
		opt(gs)
	}
	srv := httptest.NewServer(Routes(gs))
	t.Cleanup(func() {
		srv.Close()
		engine.Shutdown()
		pres.Stop()
	})
	return gs, srv
}

type testConn struct {
	t      *testing.T
	c      *websocket.Conn
	id     string
	ticket string
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server) *testConn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{Subprotocol}})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })

	tc := &testConn{t: t, c: c}
	tc.expect(OutSession)
	require.NotEmpty(t, tc.id)
	return tc
}

func (tc *testConn) send(typ string, payload interface{}) {
	tc.t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(tc.t, err)
	data, err := json.Marshal(Message{Type: typ, Payload: raw})
	require.NoError(tc.t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(tc.t, tc.c.Write(ctx, websocket.MessageText, data))
}

// expect reads frames until one of type typ arrives, tracking session updates on the way.
func (tc *testConn) expect(typ string) json.RawMessage {
	tc.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		_, data, err := tc.c.Read(ctx)
		require.NoError(tc.t, err, "waiting for %s", typ)
		var f frame
		require.NoError(tc.t, json.Unmarshal(data, &f))
		if f.Type == OutSession {
			var s sessionPayload
			require.NoError(tc.t, json.Unmarshal(f.Payload, &s))
			tc.id = s.ConnectionID
			if s.Ticket != "" {
				tc.ticket = s.Ticket
			}
		}
		if f.Type == typ {
			return f.Payload
		}
	}
}

func (tc *testConn) close() {
	tc.c.Close(websocket.StatusNormalClosure, "bye")
}

func decodeInto(t *testing.T, raw json.RawMessage, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dst))
}

// startTwoPlayerGame seats alice (host) and bob and starts the game on letter C.
func startTwoPlayerGame(t *testing.T, srv *httptest.Server) (alice, bob *testConn, code string) {
	t.Helper()
	alice = dial(t, srv)
	alice.send(MsgCreateRoom, createRoomPayload{Username: "alice"})
	var created roomPayload
	decodeInto(t, alice.expect(OutRoomCreated), &created)
	code = created.RoomCode
	require.Len(t, code, 6)

	bob = dial(t, srv)
	bob.send(MsgJoinRoom, joinRoomPayload{RoomCode: strings.ToLower(code), Username: "bob"})
	bob.expect(OutRoomUpdated)
	bob.expect(OutSession)
	alice.expect(OutRoomUpdated)

	alice.send(MsgStartGame, roomCodePayload{RoomCode: code})
	alice.expect(string(game.EventGameStarted))
	bob.expect(string(game.EventGameStarted))
	return alice, bob, code
}

func TestPingHandler(t *testing.T) {
	w := httptest.NewRecorder()
	PingHandler(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRoomHandler(t *testing.T) {
	gs, _ := setupServer(t, time.Minute)

	w := httptest.NewRecorder()
	RoomHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/NOPE00", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	snap, err := gs.Engine.CreateRoom("conn-x", "alice", models.DefaultRoomRules())
	require.NoError(t, err)

	w = httptest.NewRecorder()
	RoomHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/"+snap.Code, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got roomPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, snap.Code, got.RoomCode)
	require.Len(t, got.Room.Players, 1)
	assert.Equal(t, "alice", got.Room.Players[0].Username)
}

func TestRejectsMissingSubprotocol(t *testing.T) {
	_, srv := setupServer(t, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	_, _, err = c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
}

func TestGatewayTurnFlow(t *testing.T) {
	_, srv := setupServer(t, time.Minute)
	alice, bob, code := startTwoPlayerGame(t, srv)

	bob.send(MsgSubmitWord, submitWordPayload{RoomCode: code, Word: "cow"})
	var rejected wordRejectedPayload
	decodeInto(t, bob.expect(OutWordError), &rejected)
	assert.Equal(t, "Not your turn", rejected.Reason)
	assert.Equal(t, 3, rejected.LivesLeft)

	alice.send(MsgSubmitWord, submitWordPayload{RoomCode: code, Word: "Cat"})
	var result game.WordResultPayload
	decodeInto(t, bob.expect(string(game.EventWordResult)), &result)
	assert.True(t, result.Success)
	assert.Equal(t, "cat", result.Word)
	assert.Equal(t, 3, result.Player.Score)

	var next roomPayload
	decodeInto(t, bob.expect(string(game.EventNextTurn)), &next)
	assert.Equal(t, "T", next.Room.CurrentLetter)
	assert.Equal(t, 1, next.Room.CurrentPlayerIndex)

	bob.send(MsgSubmitWord, submitWordPayload{RoomCode: code, Word: "cat"})
	var wordErr game.WordErrorPayload
	decodeInto(t, alice.expect(string(game.EventWordError)), &wordErr)
	assert.Equal(t, "bob", wordErr.Player.Username)
	assert.Equal(t, `Word must start with "T"`, wordErr.Reason)
	assert.Equal(t, 2, wordErr.LivesLeft)
}

func TestGatewayJoinErrors(t *testing.T) {
	_, srv := setupServer(t, time.Minute)

	stray := dial(t, srv)
	stray.send(MsgJoinRoom, joinRoomPayload{RoomCode: "ZZZZZZ", Username: "carol"})
	var e errorPayload
	decodeInto(t, stray.expect(OutJoinError), &e)
	assert.Equal(t, "room not found", e.Message)

	host := dial(t, srv)
	host.send(MsgCreateRoom, createRoomPayload{Username: "alice", MaxPlayers: 2})
	var created roomPayload
	decodeInto(t, host.expect(OutRoomCreated), &created)

	second := dial(t, srv)
	second.send(MsgJoinRoom, joinRoomPayload{RoomCode: created.RoomCode, Username: "bob"})
	second.expect(OutSession)

	stray.send(MsgJoinRoom, joinRoomPayload{RoomCode: created.RoomCode, Username: "carol"})
	decodeInto(t, stray.expect(OutJoinError), &e)
	assert.Equal(t, "room is full", e.Message)

	second.send(MsgStartGame, roomCodePayload{RoomCode: created.RoomCode})
	decodeInto(t, second.expect(OutStartError), &e)
	assert.Equal(t, "only the host can do that", e.Message)
}

func TestGatewayRejoinPreservesSeat(t *testing.T) {
	gs, srv := setupServer(t, time.Minute)
	alice, bob, code := startTwoPlayerGame(t, srv)
	oldID, ticket := bob.id, bob.ticket
	require.NotEmpty(t, ticket)

	bob.close()
	var dropped game.PresencePayload
	decodeInto(t, alice.expect(string(game.EventPlayerDisconnected)), &dropped)
	assert.Equal(t, "bob", dropped.Username)

	fresh := dial(t, srv)
	fresh.send(MsgCheckReconnection, reconnectPayload{OldConnectionID: oldID, Ticket: ticket})
	var avail reconnectionPayload
	decodeInto(t, fresh.expect(OutReconnectionAvailable), &avail)
	assert.Equal(t, code, avail.RoomCode)
	assert.Equal(t, "bob", avail.Username)

	fresh.send(MsgRejoinRoom, reconnectPayload{RoomCode: code, OldConnectionID: oldID, Ticket: ticket})
	var rejoined roomPayload
	decodeInto(t, fresh.expect(OutRejoinedRoom), &rejoined)
	alice.expect(string(game.EventPlayerReconnected))

	p := rejoined.Room.PlayerByID(fresh.id)
	require.NotNil(t, p)
	assert.Equal(t, "bob", p.Username)
	assert.Equal(t, 3, p.Lives)
	assert.True(t, p.Connected)
	assert.Equal(t, 2, gs.Presence.Len())

	// The seat now answers to the new connection.
	alice.send(MsgSubmitWord, submitWordPayload{RoomCode: code, Word: "cat"})
	fresh.expect(string(game.EventNextTurn))
	fresh.send(MsgSubmitWord, submitWordPayload{RoomCode: code, Word: "tap"})
	var result game.WordResultPayload
	decodeInto(t, alice.expect(string(game.EventWordResult)), &result)
	assert.Equal(t, "bob", result.Player.Username)
}

func TestGatewayRejoinRejectsForeignTicket(t *testing.T) {
	_, srv := setupServer(t, time.Minute)
	alice, bob, code := startTwoPlayerGame(t, srv)
	oldID := bob.id

	bob.close()
	alice.expect(string(game.EventPlayerDisconnected))

	fresh := dial(t, srv)
	fresh.send(MsgRejoinRoom, reconnectPayload{RoomCode: code, OldConnectionID: oldID, Ticket: alice.ticket})
	var e errorPayload
	decodeInto(t, fresh.expect(OutRejoinError), &e)
	assert.Equal(t, "Unable to rejoin room", e.Message)

	fresh.send(MsgRejoinRoom, reconnectPayload{RoomCode: "OTHER1", OldConnectionID: oldID})
	decodeInto(t, fresh.expect(OutRejoinError), &e)
	assert.Equal(t, "Unable to rejoin room", e.Message)
}

func TestGatewayGraceExpiryRemovesSeat(t *testing.T) {
	_, srv := setupServer(t, 50*time.Millisecond)
	alice, bob, _ := startTwoPlayerGame(t, srv)

	bob.close()
	alice.expect(string(game.EventPlayerDisconnected))

	var removed game.PlayerRemovedPayload
	decodeInto(t, alice.expect(string(game.EventPlayerRemoved)), &removed)
	assert.Equal(t, "bob", removed.Username)
	assert.Equal(t, "Failed to reconnect", removed.Reason)

	var over roomPayload
	decodeInto(t, alice.expect(string(game.EventGameOver)), &over)
	require.NotNil(t, over.Room.Winner)
	assert.Equal(t, "alice", over.Room.Winner.Username)
}

func TestGatewayLobbyDisconnectRemovesSeat(t *testing.T) {
	gs, srv := setupServer(t, time.Minute)
	alice := dial(t, srv)
	alice.send(MsgCreateRoom, createRoomPayload{Username: "alice"})
	var created roomPayload
	decodeInto(t, alice.expect(OutRoomCreated), &created)

	bob := dial(t, srv)
	bob.send(MsgJoinRoom, joinRoomPayload{RoomCode: created.RoomCode, Username: "bob"})
	bob.expect(OutSession)

	bob.close()
	var removed game.PlayerRemovedPayload
	decodeInto(t, alice.expect(string(game.EventPlayerRemoved)), &removed)
	assert.Equal(t, "Disconnected", removed.Reason)

	alice.send(MsgLeaveRoom, roomCodePayload{RoomCode: created.RoomCode})
	alice.expect(OutLeftRoom)
	_, ok := gs.Engine.Rooms.Get(created.RoomCode)
	assert.False(t, ok)
}

func TestGatewayUnknownAndMalformed(t *testing.T) {
	_, srv := setupServer(t, time.Minute)
	tc := dial(t, srv)

	tc.send("dance", nil)
	var e errorPayload
	decodeInto(t, tc.expect(OutError), &e)
	assert.Contains(t, e.Message, "dance")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tc.c.Write(ctx, websocket.MessageText, []byte("{not json")))
	decodeInto(t, tc.expect(OutError), &e)
	assert.Equal(t, "Invalid JSON format", e.Message)

	tc.send(MsgPing, nil)
	tc.expect(OutPong)
}

func TestGatewayRejoinRefusesLiveSeat(t *testing.T) {
	gs, srv := setupServer(t, time.Minute)
	alice, bob, code := startTwoPlayerGame(t, srv)
	aliceID, bobID := alice.id, bob.id

	var e errorPayload
	bob.send(MsgRejoinRoom, reconnectPayload{RoomCode: code, OldConnectionID: aliceID})
	decodeInto(t, bob.expect(OutRejoinError), &e)
	assert.Equal(t, "Unable to rejoin room", e.Message)

	bob.send(MsgRejoinRoom, reconnectPayload{RoomCode: code, OldConnectionID: aliceID, Ticket: bob.ticket})
	bob.expect(OutRejoinError)

	stranger := dial(t, srv)
	stranger.send(MsgRejoinRoom, reconnectPayload{RoomCode: code, OldConnectionID: aliceID})
	stranger.expect(OutRejoinError)

	room, err := gs.Engine.GetRoom(code)
	require.NoError(t, err)
	require.Len(t, room.Players, 2)
	assert.Equal(t, aliceID, room.Players[0].ID)
	assert.Equal(t, bobID, room.Players[1].ID)

	// alice still owns her seat and her socket still hears the room.
	alice.send(MsgSubmitWord, submitWordPayload{RoomCode: code, Word: "cat"})
	var result game.WordResultPayload
	decodeInto(t, alice.expect(string(game.EventWordResult)), &result)
	assert.Equal(t, "alice", result.Player.Username)
}

func TestGatewayRejoinWithoutTicketsNeedsGrace(t *testing.T) {
	_, srv := setupServer(t, time.Minute, func(gs *GameServer) { gs.Tickets = nil })
	alice, bob, code := startTwoPlayerGame(t, srv)
	oldID := bob.id

	stranger := dial(t, srv)
	stranger.send(MsgRejoinRoom, reconnectPayload{RoomCode: code, OldConnectionID: oldID})
	stranger.expect(OutRejoinError)

	bob.close()
	alice.expect(string(game.EventPlayerDisconnected))

	stranger.send(MsgRejoinRoom, reconnectPayload{RoomCode: code, OldConnectionID: oldID})
	var rejoined roomPayload
	decodeInto(t, stranger.expect(OutRejoinedRoom), &rejoined)
	p := rejoined.Room.PlayerByID(stranger.id)
	require.NotNil(t, p)
	assert.Equal(t, "bob", p.Username)
}

func TestGatewayRefusedJoinKeepsSeat(t *testing.T) {
	gs, srv := setupServer(t, time.Minute)
	alice, bob, code := startTwoPlayerGame(t, srv)
	bobID := bob.id

	other := dial(t, srv)
	other.send(MsgCreateRoom, createRoomPayload{Username: "dave"})
	var created roomPayload
	decodeInto(t, other.expect(OutRoomCreated), &created)

	var e errorPayload
	bob.send(MsgJoinRoom, joinRoomPayload{RoomCode: "NOPE00", Username: "bob"})
	decodeInto(t, bob.expect(OutJoinError), &e)
	assert.Equal(t, "room not found", e.Message)

	bob.send(MsgJoinRoom, joinRoomPayload{RoomCode: created.RoomCode, Username: "dave"})
	decodeInto(t, bob.expect(OutJoinError), &e)
	assert.Equal(t, "username already taken in this room", e.Message)

	bob.send(MsgCreateRoom, createRoomPayload{Username: "  "})
	decodeInto(t, bob.expect(OutRoomError), &e)
	assert.Equal(t, "username is required", e.Message)

	room, err := gs.Engine.GetRoom(code)
	require.NoError(t, err)
	require.Len(t, room.Players, 2)
	assert.Equal(t, bobID, room.Players[1].ID)
	assert.False(t, room.GameOver)

	other.send(MsgGetRoom, roomCodePayload{RoomCode: created.RoomCode})
	var lobby roomPayload
	decodeInto(t, other.expect(OutRoomUpdated), &lobby)
	assert.Len(t, lobby.Room.Players, 1)

	// bob still plays his seat.
	alice.send(MsgSubmitWord, submitWordPayload{RoomCode: code, Word: "cat"})
	bob.expect(string(game.EventNextTurn))
	bob.send(MsgSubmitWord, submitWordPayload{RoomCode: code, Word: "tap"})
	var result game.WordResultPayload
	decodeInto(t, alice.expect(string(game.EventWordResult)), &result)
	assert.Equal(t, "bob", result.Player.Username)
}

func TestGatewayJoinElsewhereLeavesLobbySeat(t *testing.T) {
	gs, srv := setupServer(t, time.Minute)
	host := dial(t, srv)
	host.send(MsgCreateRoom, createRoomPayload{Username: "alice"})
	var first roomPayload
	decodeInto(t, host.expect(OutRoomCreated), &first)

	mover := dial(t, srv)
	mover.send(MsgJoinRoom, joinRoomPayload{RoomCode: first.RoomCode, Username: "bob"})
	mover.expect(OutSession)

	other := dial(t, srv)
	other.send(MsgCreateRoom, createRoomPayload{Username: "carol"})
	var second roomPayload
	decodeInto(t, other.expect(OutRoomCreated), &second)

	mover.send(MsgJoinRoom, joinRoomPayload{RoomCode: second.RoomCode, Username: "bob"})
	var joined roomPayload
	decodeInto(t, mover.expect(OutRoomUpdated), &joined)
	assert.Equal(t, second.RoomCode, joined.RoomCode)
	assert.Len(t, joined.Room.Players, 2)

	var removed game.PlayerRemovedPayload
	decodeInto(t, host.expect(string(game.EventPlayerRemoved)), &removed)
	assert.Equal(t, "bob", removed.Username)
	assert.Equal(t, "Left the room", removed.Reason)

	room, err := gs.Engine.GetRoom(first.RoomCode)
	require.NoError(t, err)
	assert.Len(t, room.Players, 1)
}
