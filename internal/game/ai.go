// internal/game/ai.go
package game

import (
	_ "embed"
	"math/rand"
	"strings"
	"sync"
	"time"
)

//go:embed words.txt
var embeddedWords string

// Strategy picks the scripted opponent's word. An empty return means the
// opponent has nothing to play and will forfeit the turn's life.
type Strategy interface {
	ChooseWord(letter string, isUsed func(string) bool, lives int) string
}

// WordListStrategy draws from a fixed vocabulary indexed by initial letter.
type WordListStrategy struct {
	mu    sync.Mutex
	rng   *rand.Rand
	words map[string][]string

	// MistakeRate is the chance of deliberately playing nothing.
	MistakeRate float64
}

// NewWordListStrategy indexes the built-in vocabulary.
func NewWordListStrategy(mistakeRate float64) *WordListStrategy {
	return NewWordListStrategyFrom(strings.Fields(embeddedWords), mistakeRate)
}

func NewWordListStrategyFrom(words []string, mistakeRate float64) *WordListStrategy {
	s := &WordListStrategy{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		words:       make(map[string][]string),
		MistakeRate: mistakeRate,
	}
	for _, w := range words {
		w = normalizeWord(w)
		if first, ok := firstLetter(w); ok {
			s.words[first] = append(s.words[first], w)
		}
	}
	return s
}

func (s *WordListStrategy) ChooseWord(letter string, isUsed func(string) bool, lives int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MistakeRate > 0 && s.rng.Float64() < s.MistakeRate {
		return ""
	}
	var pool []string
	for _, w := range s.words[strings.ToUpper(letter)] {
		if !isUsed(w) {
			pool = append(pool, w)
		}
	}
	if len(pool) == 0 {
		return ""
	}
	// On the last life stick to mid-length words.
	if lives <= 1 {
		var safe []string
		for _, w := range pool {
			if n := len(w); n >= 4 && n <= 7 {
				safe = append(safe, w)
			}
		}
		if len(safe) > 0 {
			pool = safe
		}
	}
	return pool[s.rng.Intn(len(pool))]
}

func firstLetter(w string) (string, bool) {
	for _, r := range w {
		return strings.ToUpper(string(r)), true
	}
	return "", false
}

// thinkDelay returns a random duration in [min, max].
func thinkDelay(rng func(int64) int64, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng(int64(max-min)+1))
}
