// internal/game/timers.go
package game

import "time"

// Three timer roles hang off a room: the turn countdown, the post-resolution
// display delay and the scripted opponent's thinking delay. Each callback
// carries the TurnID it was armed under and re-checks the room on fire.

// armTurnTimer replaces the room's countdown. Assumes lock is held.
func (e *Engine) armTurnTimer(r *Room) {
	r.stopTurnTimer()
	d := e.Settings.TurnTimeout
	if d <= 0 {
		return
	}
	code, turnID := r.Code, r.TurnID
	r.turnEndsAt = time.Now().Add(d)
	r.turnTimer = time.AfterFunc(d, func() {
		e.handleTurnTimeout(code, turnID)
	})
}

// armDisplayTimer schedules the next turn after a resolved one. Assumes lock is held.
func (e *Engine) armDisplayTimer(r *Room, d time.Duration) {
	r.stopDisplayTimer()
	code, turnID := r.Code, r.TurnID
	r.displayTimer = time.AfterFunc(d, func() {
		e.finishResolution(code, turnID)
	})
}

// armAITimer schedules the scripted opponent's move. Assumes lock is held.
func (e *Engine) armAITimer(r *Room) {
	r.stopAITimer()
	code, turnID := r.Code, r.TurnID
	d := thinkDelay(e.randInt63n, e.Settings.AIThinkMin, e.Settings.AIThinkMax)
	r.aiTimer = time.AfterFunc(d, func() {
		e.playAITurn(code, turnID)
	})
}

func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	r.turnEndsAt = time.Time{}
}

func (r *Room) stopDisplayTimer() {
	if r.displayTimer != nil {
		r.displayTimer.Stop()
		r.displayTimer = nil
	}
}

func (r *Room) stopAITimer() {
	if r.aiTimer != nil {
		r.aiTimer.Stop()
		r.aiTimer = nil
	}
}

func (r *Room) stopTimers() {
	r.stopTurnTimer()
	r.stopDisplayTimer()
	r.stopAITimer()
}
