// internal/game/engine.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/wordchain/internal/dictionary"
	"github.com/jason-s-yu/wordchain/internal/models"
	"github.com/sirupsen/logrus"
)

// Engine owns every transition of every room. All mutation of a Room goes
// through its methods, which take the room's lock for the duration of the
// transition and release it only around the dictionary lookup.
type Engine struct {
	Rooms      *RoomStore
	Dictionary dictionary.Validator
	Settings   Settings
	AI         Strategy

	// DrawLetter picks the opening letter and the letter after a word that
	// ends in a non-letter.
	DrawLetter func() string

	// BroadcastFn pushes an event to every member of a room. It is called with
	// the room lock held and must not call back into the engine.
	BroadcastFn func(roomCode string, ev Event)

	// History receives the action log. Nil disables it.
	History ActionPublisher

	Logger *logrus.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Resolution describes how a submission was settled.
type Resolution struct {
	Accepted  bool        `json:"accepted"`
	Word      string      `json:"word"`
	Reason    string      `json:"reason,omitempty"`
	LivesLeft int         `json:"livesLeft"`
	Room      models.Room `json:"room"`
}

// NewEngine wires an engine with the built-in letter drawer and opponent.
func NewEngine(rooms *RoomStore, dict dictionary.Validator, settings Settings, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		Rooms:      rooms,
		Dictionary: dict,
		Settings:   settings,
		AI:         NewWordListStrategy(settings.AIMistakeRate),
		DrawLetter: NewLetterDrawer(settings.VowelProbability, 0).Draw,
		Logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (e *Engine) randInt63n(n int64) int64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Int63n(n)
}

func (e *Engine) log(r *Room) *logrus.Entry {
	return e.Logger.WithFields(logrus.Fields{"room": r.Code, "turn": r.TurnID})
}

// broadcast forwards ev to the room. Assumes lock is held.
func (e *Engine) broadcast(r *Room, ev Event) {
	if e.BroadcastFn != nil {
		e.BroadcastFn(r.Code, ev)
	}
}

// lockRoom fetches a live room and returns it locked.
func (e *Engine) lockRoom(code string) (*Room, error) {
	r, ok := e.Rooms.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	r.Mu.Lock()
	if r.closed {
		r.Mu.Unlock()
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

func newPlayer(id, username string, ai bool) *models.Player {
	return &models.Player{
		ID:        id,
		Username:  username,
		IsAlive:   true,
		Lives:     models.StartingLives,
		IsAI:      ai,
		Connected: true,
	}
}

// CreateRoom registers a new room with the caller seated as host.
func (e *Engine) CreateRoom(connID, username string, rules models.RoomRules) (models.Room, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Room{}, ErrInvalidUsername
	}
	r, err := e.Rooms.Create(newPlayer(connID, username, false), rules)
	if err != nil {
		return models.Room{}, err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	e.logAction(r, username, "room_created", map[string]interface{}{
		"maxPlayers": rules.MaxPlayers,
		"gameMode":   string(rules.GameMode),
	})
	e.log(r).WithField("host", username).Info("room created")
	return r.Snapshot(), nil
}

// JoinRoom seats a new player while the room is still in its lobby.
func (e *Engine) JoinRoom(code, connID, username string) (models.Room, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Room{}, ErrInvalidUsername
	}
	r, err := e.lockRoom(code)
	if err != nil {
		return models.Room{}, err
	}
	defer r.Mu.Unlock()

	if r.Started {
		return models.Room{}, ErrGameStarted
	}
	if len(r.Players) >= r.Rules.MaxPlayers {
		return models.Room{}, ErrRoomFull
	}
	if r.playerByUsername(username) != nil {
		return models.Room{}, ErrNameTaken
	}
	r.Players = append(r.Players, newPlayer(connID, username, false))
	e.logAction(r, username, "player_joined", nil)
	e.log(r).WithField("player", username).Info("player joined")

	snap := r.Snapshot()
	e.broadcast(r, roomEvent(EventRoomUpdated, snap))
	return snap, nil
}

// AddAIPlayer seats a scripted opponent. Only the host may do this, and only
// before the game starts.
func (e *Engine) AddAIPlayer(code, actorID string) (models.Room, error) {
	r, err := e.lockRoom(code)
	if err != nil {
		return models.Room{}, err
	}
	defer r.Mu.Unlock()

	actor, _ := r.playerByID(actorID)
	if actor == nil {
		return models.Room{}, ErrPlayerNotFound
	}
	if !actor.IsHost {
		return models.Room{}, ErrNotHost
	}
	if r.Started {
		return models.Room{}, ErrGameStarted
	}
	if len(r.Players) >= r.Rules.MaxPlayers {
		return models.Room{}, ErrRoomFull
	}

	name := ""
	for n := 1; ; n++ {
		name = fmt.Sprintf("AI Bot %d", n)
		if r.playerByUsername(name) == nil {
			break
		}
	}
	r.Players = append(r.Players, newPlayer("ai-"+uuid.NewString(), name, true))
	e.logAction(r, actor.Username, "ai_added", map[string]interface{}{"username": name})

	snap := r.Snapshot()
	e.broadcast(r, roomEvent(EventRoomUpdated, snap))
	return snap, nil
}

// GetRoom returns the current snapshot. Finished rooms stay queryable.
func (e *Engine) GetRoom(code string) (models.Room, error) {
	r, err := e.lockRoom(code)
	if err != nil {
		return models.Room{}, err
	}
	defer r.Mu.Unlock()
	return r.Snapshot(), nil
}

// StartGame moves the room from its lobby into play.
func (e *Engine) StartGame(code, actorID string) (models.Room, error) {
	r, err := e.lockRoom(code)
	if err != nil {
		return models.Room{}, err
	}
	defer r.Mu.Unlock()

	actor, _ := r.playerByID(actorID)
	if actor == nil {
		return models.Room{}, ErrPlayerNotFound
	}
	if !actor.IsHost {
		return models.Room{}, ErrNotHost
	}
	if r.Started {
		return models.Room{}, ErrGameStarted
	}
	if len(r.Players) < models.MinPlayers {
		return models.Room{}, ErrNotEnoughPlayers
	}

	for _, p := range r.Players {
		p.Lives = models.StartingLives
		p.IsAlive = true
		p.Score = 0
	}
	r.Started = true
	r.CurrentPlayerIndex = 0
	r.CurrentLetter = e.DrawLetter()

	names := make([]string, len(r.Players))
	for i, p := range r.Players {
		names[i] = p.Username
	}
	e.logAction(r, actor.Username, "game_started", map[string]interface{}{
		"players":  names,
		"letter":   r.CurrentLetter,
		"gameMode": string(r.Rules.GameMode),
	})

	e.beginTurn(r, false)
	e.log(r).WithField("letter", r.CurrentLetter).Info("game started")

	snap := r.Snapshot()
	e.broadcast(r, roomEvent(EventGameStarted, snap))
	return snap, nil
}

// SubmitWord runs a submission through the acceptance checks. Input
// rejections (wrong room, wrong turn, turn already resolving) come back as
// errors and change nothing. Every other outcome settles the turn and is
// described by the returned Resolution.
func (e *Engine) SubmitWord(ctx context.Context, code, playerID, raw string) (Resolution, error) {
	r, err := e.lockRoom(code)
	if err != nil {
		return Resolution{}, err
	}

	if !r.Started {
		r.Mu.Unlock()
		return Resolution{}, ErrGameNotStarted
	}
	if r.GameOver {
		r.Mu.Unlock()
		return Resolution{}, ErrGameOver
	}
	cur := r.currentPlayer()
	if cur == nil || cur.ID != playerID {
		r.Mu.Unlock()
		return Resolution{}, ErrNotYourTurn
	}
	if r.state != turnAwaiting {
		r.Mu.Unlock()
		return Resolution{}, ErrTurnResolving
	}

	word := normalizeWord(raw)
	if !strings.HasPrefix(word, strings.ToLower(r.CurrentLetter)) {
		res := e.rejectLocked(r, cur, word, wrongLetterReason(r.CurrentLetter))
		r.Mu.Unlock()
		return res, nil
	}
	if r.isUsed(word) {
		res := e.rejectLocked(r, cur, word, ReasonAlreadyUsed)
		r.Mu.Unlock()
		return res, nil
	}

	// Claim the turn so nothing else resolves it while the lookup runs.
	turnID := r.TurnID
	r.state = turnValidating
	r.stopTurnTimer()
	r.stopAITimer()
	r.Mu.Unlock()

	result, verr := e.validate(ctx, word)

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed || r.TurnID != turnID || r.state != turnValidating || r.GameOver {
		e.log(r).WithField("word", word).Debug("turn moved on during validation, dropping result")
		return Resolution{}, ErrTurnAbandoned
	}
	cur = r.currentPlayer()

	switch {
	case verr != nil:
		e.log(r).WithError(verr).WithField("word", word).Warn("dictionary lookup failed")
		return e.rejectLocked(r, cur, word, ReasonValidationFailed), nil
	case !result.Valid:
		return e.rejectLocked(r, cur, word, ReasonNotFound), nil
	}
	return e.acceptLocked(r, cur, word, result), nil
}

// validate bounds the lookup. The caller's cancellation is detached so a
// dropped connection does not turn into a validation failure.
func (e *Engine) validate(ctx context.Context, word string) (dictionary.Result, error) {
	if e.Dictionary == nil {
		return dictionary.Result{}, fmt.Errorf("no dictionary configured")
	}
	ctx = context.WithoutCancel(ctx)
	if e.Settings.DictionaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Settings.DictionaryTimeout)
		defer cancel()
	}
	return e.Dictionary.Validate(ctx, word)
}

// acceptLocked records a valid word and settles the turn. Assumes lock is held.
func (e *Engine) acceptLocked(r *Room, p *models.Player, word string, result dictionary.Result) Resolution {
	r.markUsed(word)
	r.LastWord = word
	p.Score += utf8.RuneCountInString(word)
	if next, ok := lastLetter(word); ok {
		r.CurrentLetter = next
	} else {
		r.CurrentLetter = e.DrawLetter()
	}

	e.logAction(r, p.Username, "word_accepted", map[string]interface{}{
		"word":  word,
		"score": p.Score,
	})
	e.broadcast(r, Event{Type: EventWordResult, Payload: WordResultPayload{
		Success:  true,
		Word:     word,
		Meaning:  result.Meaning,
		Phonetic: result.Phonetic,
		Player:   *p,
	}})

	e.completeTurn(r, e.Settings.WordDisplayDelay)
	return Resolution{Accepted: true, Word: word, LivesLeft: p.Lives, Room: r.Snapshot()}
}

// rejectLocked costs the current seat a life and settles the turn. The
// current letter is left alone. Assumes lock is held.
func (e *Engine) rejectLocked(r *Room, p *models.Player, word, reason string) Resolution {
	livesLeft, _ := ApplyLifeLoss(r.Players, p.ID)

	e.logAction(r, p.Username, "word_rejected", map[string]interface{}{
		"word":      word,
		"reason":    reason,
		"livesLeft": livesLeft,
	})
	e.broadcast(r, Event{Type: EventWordError, Payload: WordErrorPayload{
		Player:    *p,
		Word:      word,
		Reason:    reason,
		LivesLeft: livesLeft,
	}})
	if livesLeft == 0 {
		e.logAction(r, p.Username, "player_eliminated", nil)
		e.broadcast(r, Event{Type: EventPlayerEliminated, Payload: PlayerEliminatedPayload{
			Player: *p,
			Reason: ReasonNoLives,
		}})
		e.log(r).WithField("player", p.Username).Info("player eliminated")
	}

	e.completeTurn(r, e.Settings.EliminationDisplayDelay)
	return Resolution{Word: word, Reason: reason, LivesLeft: livesLeft, Room: r.Snapshot()}
}

// completeTurn decides the outcome, moves the turn to the next alive seat and
// holds the room in its display state until the delay elapses.
// Assumes lock is held.
func (e *Engine) completeTurn(r *Room, delay time.Duration) {
	r.stopTurnTimer()
	r.stopAITimer()
	if over, winner := e.evaluate(r); over {
		r.GameOver = true
		r.Winner = winner
	} else {
		r.CurrentPlayerIndex = NextAliveIndex(r.Players, r.CurrentPlayerIndex)
	}
	r.state = turnDisplaying
	e.armDisplayTimer(r, delay)
}

func (e *Engine) evaluate(r *Room) (bool, *models.Player) {
	return EvaluateWinner(r.Players, r.Rules.GameMode, e.Settings.ClassicTargetScore)
}

// finishResolution runs when the display delay elapses.
func (e *Engine) finishResolution(code string, turnID int) {
	r, err := e.lockRoom(code)
	if err != nil {
		return
	}
	defer r.Mu.Unlock()
	if r.TurnID != turnID || r.state != turnDisplaying {
		return
	}
	if r.GameOver {
		e.endGameLocked(r)
		return
	}
	e.beginTurn(r, true)
}

// beginTurn arms a fresh turn for the current seat. Assumes lock is held.
func (e *Engine) beginTurn(r *Room, announce bool) {
	r.TurnID++
	r.state = turnAwaiting
	r.stopDisplayTimer()
	r.stopAITimer()
	e.armTurnTimer(r)

	if announce {
		e.broadcast(r, roomEvent(EventNextTurn, r.Snapshot()))
	}
	if cur := r.currentPlayer(); cur != nil && cur.IsAI && e.AI != nil {
		e.armAITimer(r)
	}
}

// endGameLocked announces the final state. Assumes lock is held.
func (e *Engine) endGameLocked(r *Room) {
	r.TurnID++
	r.state = turnIdle
	r.stopTimers()
	winner := ""
	if r.Winner != nil {
		winner = r.Winner.Username
	}
	e.logAction(r, winner, "game_over", resultPayload(r))
	e.log(r).WithField("winner", winner).Info("game over")
	e.broadcast(r, roomEvent(EventGameOver, r.Snapshot()))
}

// handleTurnTimeout fires when the countdown for turnID elapses.
func (e *Engine) handleTurnTimeout(code string, turnID int) {
	r, err := e.lockRoom(code)
	if err != nil {
		return
	}
	defer r.Mu.Unlock()
	if !r.Started || r.GameOver || r.state != turnAwaiting || r.TurnID != turnID {
		e.log(r).WithField("timerTurn", turnID).Debug("stale turn timer ignored")
		return
	}
	cur := r.currentPlayer()
	if cur == nil {
		return
	}
	e.log(r).WithField("player", cur.Username).Info("turn timed out")
	e.rejectLocked(r, cur, "", ReasonTimeout)
}

// playAITurn picks the opponent's word and submits it like any other move.
func (e *Engine) playAITurn(code string, turnID int) {
	r, err := e.lockRoom(code)
	if err != nil {
		return
	}
	cur := r.currentPlayer()
	if r.GameOver || r.state != turnAwaiting || r.TurnID != turnID || cur == nil || !cur.IsAI {
		r.Mu.Unlock()
		return
	}
	word := e.AI.ChooseWord(r.CurrentLetter, r.isUsed, cur.Lives)
	playerID := cur.ID
	r.Mu.Unlock()

	if _, err := e.SubmitWord(context.Background(), code, playerID, word); err != nil {
		e.Logger.WithField("room", code).WithError(err).Debug("AI submission not applied")
	}
}

// RemovePlayer takes a seat out of the room for good. When no human seat is
// left the room is closed and dropped from the store; empty is then true.
func (e *Engine) RemovePlayer(code, playerID, reason string) (snap models.Room, empty bool, err error) {
	r, err := e.lockRoom(code)
	if err != nil {
		return models.Room{}, false, err
	}

	_, idx := r.playerByID(playerID)
	if idx < 0 {
		r.Mu.Unlock()
		return models.Room{}, false, ErrPlayerNotFound
	}
	wasCurrent := idx == r.CurrentPlayerIndex
	inPlay := r.Started && !r.GameOver
	p, _ := r.removeSeat(playerID)
	e.logAction(r, p.Username, "player_removed", map[string]interface{}{"reason": reason})
	e.log(r).WithFields(logrus.Fields{"player": p.Username, "reason": reason}).Info("player removed")

	if r.humanCount() == 0 {
		r.closed = true
		r.state = turnIdle
		r.stopTimers()
		r.Players = nil
		r.Mu.Unlock()
		e.Rooms.Delete(r)
		e.Logger.WithField("room", code).Info("room closed")
		return models.Room{Code: r.Code}, true, nil
	}

	e.broadcast(r, Event{Type: EventPlayerRemoved, Payload: PlayerRemovedPayload{Username: p.Username, Reason: reason}})
	if inPlay {
		e.reconcileAfterRemoval(r, wasCurrent)
	}
	snap = r.Snapshot()
	e.broadcast(r, roomEvent(EventRoomUpdated, snap))
	r.Mu.Unlock()
	return snap, false, nil
}

// reconcileAfterRemoval restores the turn invariants after a seat left a game
// in progress. Assumes lock is held.
func (e *Engine) reconcileAfterRemoval(r *Room, wasCurrent bool) {
	if over, winner := e.evaluate(r); over {
		r.GameOver = true
		r.Winner = winner
		// A pending display delay will announce the end itself.
		if r.state != turnDisplaying {
			e.endGameLocked(r)
		}
		return
	}
	r.CurrentPlayerIndex = aliveAtOrAfter(r.Players, r.CurrentPlayerIndex)
	if wasCurrent && r.state != turnDisplaying {
		// Any lookup still in flight for the departed seat goes stale here.
		e.beginTurn(r, true)
	}
}

// HandleDisconnect marks a seat as dropped. Outside a running game the seat is
// removed straight away and grace is false; otherwise the seat keeps its place
// and the caller should start a reconnection grace period.
func (e *Engine) HandleDisconnect(code, connID string) (grace bool, err error) {
	r, err := e.lockRoom(code)
	if err != nil {
		return false, err
	}
	p, _ := r.playerByID(connID)
	if p == nil {
		r.Mu.Unlock()
		return false, ErrPlayerNotFound
	}
	if !r.Started || r.GameOver {
		r.Mu.Unlock()
		_, _, err := e.RemovePlayer(code, connID, ReasonDisconnected)
		return false, err
	}

	p.Connected = false
	e.logAction(r, p.Username, "player_disconnected", nil)
	e.broadcast(r, Event{Type: EventPlayerDisconnected, Payload: PresencePayload{PlayerID: p.ID, Username: p.Username}})
	e.broadcast(r, roomEvent(EventRoomUpdated, r.Snapshot()))
	r.Mu.Unlock()
	return true, nil
}

// RebindPlayer moves a seat onto a new connection id. Lives, score and seat
// position are untouched. A seat whose connection is still live only moves
// when takeover is set, which callers reserve for a verified ticket.
func (e *Engine) RebindPlayer(code, oldID, newID string, takeover bool) (models.Room, error) {
	r, err := e.lockRoom(code)
	if err != nil {
		return models.Room{}, err
	}
	defer r.Mu.Unlock()

	p, _ := r.playerByID(oldID)
	if p == nil {
		return models.Room{}, ErrPlayerNotFound
	}
	if other, _ := r.playerByID(newID); other != nil {
		return models.Room{}, ErrAlreadySeated
	}
	if p.Connected && !takeover {
		return models.Room{}, ErrSeatInUse
	}
	p.ID = newID
	p.Connected = true
	e.logAction(r, p.Username, "player_reconnected", nil)
	e.log(r).WithField("player", p.Username).Info("player reconnected")

	snap := r.Snapshot()
	e.broadcast(r, Event{Type: EventPlayerReconnected, Payload: PresencePayload{PlayerID: newID, Username: p.Username}})
	e.broadcast(r, roomEvent(EventRoomUpdated, snap))
	return snap, nil
}

// Shutdown stops every room's timers. Rooms stay queryable.
func (e *Engine) Shutdown() {
	for _, r := range e.Rooms.All() {
		r.Mu.Lock()
		r.stopTimers()
		r.state = turnIdle
		r.Mu.Unlock()
	}
}
