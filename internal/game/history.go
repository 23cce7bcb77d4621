// internal/game/history.go
package game

import (
	"context"
	"time"

	"github.com/jason-s-yu/wordchain/internal/cache"
)

// ActionPublisher receives the per-room action log.
type ActionPublisher interface {
	PublishAction(ctx context.Context, record cache.ActionRecord) error
}

// logAction numbers the action and hands it to the publisher in the background.
// Assumes lock is held.
func (e *Engine) logAction(r *Room, actor, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if e.History == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.ActionRecord{
		GameID:      r.GameID,
		RoomCode:    r.Code,
		ActionIndex: r.actionIndex,
		Actor:       actor,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func(rec cache.ActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.History.PublishAction(ctx, rec); err != nil {
			e.Logger.WithField("room", rec.RoomCode).WithError(err).
				Warnf("failed to publish action %d", rec.ActionIndex)
		}
	}(record)
}

// resultPayload summarises a finished game for the historian.
func resultPayload(r *Room) map[string]interface{} {
	standings := make([]map[string]interface{}, 0, len(r.Players))
	for i, p := range r.Players {
		standings = append(standings, map[string]interface{}{
			"seat":     i,
			"username": p.Username,
			"score":    p.Score,
			"lives":    p.Lives,
			"isAlive":  p.IsAlive,
			"isAI":     p.IsAI,
		})
	}
	payload := map[string]interface{}{
		"gameMode":  string(r.Rules.GameMode),
		"usedWords": len(r.usedOrder),
		"standings": standings,
	}
	if r.Winner != nil {
		payload["winner"] = r.Winner.Username
	}
	return payload
}
