package game

import (
	"testing"

	"github.com/jason-s-yu/wordchain/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seats(n int) []*models.Player {
	out := make([]*models.Player, n)
	for i := range out {
		out[i] = newPlayer(string(rune('a'+i)), playerNames[i], false)
	}
	return out
}

func TestApplyLifeLossFloorsAtZero(t *testing.T) {
	players := seats(2)
	for want := 2; want >= 0; want-- {
		lives, ok := ApplyLifeLoss(players, "a")
		require.True(t, ok)
		assert.Equal(t, want, lives)
	}
	assert.False(t, players[0].IsAlive)

	lives, ok := ApplyLifeLoss(players, "a")
	assert.True(t, ok)
	assert.Equal(t, 0, lives, "lives never go negative")
	assert.True(t, players[1].IsAlive)

	_, ok = ApplyLifeLoss(players, "missing")
	assert.False(t, ok)
}

func TestNextAliveIndexSkipsDead(t *testing.T) {
	players := seats(4)
	players[1].IsAlive = false
	players[2].IsAlive = false

	assert.Equal(t, 3, NextAliveIndex(players, 0))
	assert.Equal(t, 0, NextAliveIndex(players, 3))
	assert.Equal(t, 0, aliveAtOrAfter(players, 0))
	assert.Equal(t, 3, aliveAtOrAfter(players, 1))

	for _, p := range players {
		p.IsAlive = false
	}
	assert.Equal(t, -1, NextAliveIndex(players, 0))
}

func TestEvaluateWinnerEndless(t *testing.T) {
	players := seats(3)
	over, _ := EvaluateWinner(players, models.GameModeEndless, 200)
	assert.False(t, over)

	players[0].IsAlive = false
	players[2].IsAlive = false
	over, winner := EvaluateWinner(players, models.GameModeEndless, 200)
	assert.True(t, over)
	assert.Same(t, players[1], winner)
}

func TestEvaluateWinnerNobodyAlive(t *testing.T) {
	players := seats(3)
	for _, p := range players {
		p.IsAlive = false
	}
	players[1].Score = 12
	players[2].Score = 12
	over, winner := EvaluateWinner(players, models.GameModeEndless, 200)
	assert.True(t, over)
	assert.Same(t, players[1], winner, "ties go to the earlier seat")
}

func TestEvaluateWinnerClassic(t *testing.T) {
	players := seats(3)
	players[2].Score = 200
	players[1].Score = 250
	over, winner := EvaluateWinner(players, models.GameModeClassic, 200)
	assert.True(t, over)
	assert.Same(t, players[1], winner)

	// Endless ignores scores.
	over, _ = EvaluateWinner(players, models.GameModeEndless, 200)
	assert.False(t, over)

	// Classic still ends on the last survivor.
	players[1].Score, players[2].Score = 0, 0
	players[0].IsAlive, players[1].IsAlive = false, false
	over, winner = EvaluateWinner(players, models.GameModeClassic, 200)
	assert.True(t, over)
	assert.Same(t, players[2], winner)
}
