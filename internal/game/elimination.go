// internal/game/elimination.go
package game

import "github.com/jason-s-yu/wordchain/internal/models"

// ApplyLifeLoss takes one life from the seat with the given id. Lives never go
// below zero and a seat at zero is no longer alive. ok is false when no such
// seat exists.
func ApplyLifeLoss(players []*models.Player, playerID string) (livesLeft int, ok bool) {
	for _, p := range players {
		if p.ID != playerID {
			continue
		}
		if p.Lives > 0 {
			p.Lives--
		}
		if p.Lives == 0 {
			p.IsAlive = false
		}
		return p.Lives, true
	}
	return 0, false
}

// AliveCount returns how many seats still have lives.
func AliveCount(players []*models.Player) int {
	n := 0
	for _, p := range players {
		if p.IsAlive {
			n++
		}
	}
	return n
}

// NextAliveIndex returns the first alive seat strictly after from, wrapping.
// It returns -1 when nobody is alive.
func NextAliveIndex(players []*models.Player, from int) int {
	n := len(players)
	for step := 1; step <= n; step++ {
		i := ((from+step)%n + n) % n
		if players[i].IsAlive {
			return i
		}
	}
	return -1
}

// aliveAtOrAfter is NextAliveIndex including from itself.
func aliveAtOrAfter(players []*models.Player, from int) int {
	return NextAliveIndex(players, from-1)
}

// EvaluateWinner decides whether the game has ended.
//
// In classic mode the first seat (in seat order) at or above targetScore wins
// regardless of who is still alive. In both modes the game ends once at most
// one seat is alive: the survivor wins, or with nobody left the highest score
// wins and ties go to the earlier seat.
func EvaluateWinner(players []*models.Player, mode models.GameMode, targetScore int) (over bool, winner *models.Player) {
	if len(players) == 0 {
		return true, nil
	}
	if mode == models.GameModeClassic && targetScore > 0 {
		for _, p := range players {
			if p.Score >= targetScore {
				return true, p
			}
		}
	}
	switch AliveCount(players) {
	case 0:
		best := players[0]
		for _, p := range players[1:] {
			if p.Score > best.Score {
				best = p
			}
		}
		return true, best
	case 1:
		for _, p := range players {
			if p.IsAlive {
				return true, p
			}
		}
	}
	return false, nil
}
