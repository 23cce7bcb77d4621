// internal/game/letters.go
package game

import (
	"math/rand"
	"sync"
	"time"
	"unicode"
)

const (
	vowels     = "AEIOU"
	consonants = "BCDFGHJKLMNPQRSTVWXYZ"

	// DefaultVowelProbability is the share of draws that land on a vowel.
	DefaultVowelProbability = 0.4
)

// LetterDrawer picks starting letters. Vowels come up with a fixed
// probability and the rest of the mass is spread evenly over consonants.
type LetterDrawer struct {
	mu               sync.Mutex
	rng              *rand.Rand
	vowelProbability float64
}

func NewLetterDrawer(vowelProbability float64, seed int64) *LetterDrawer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LetterDrawer{
		rng:              rand.New(rand.NewSource(seed)),
		vowelProbability: vowelProbability,
	}
}

func (d *LetterDrawer) Draw() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rng.Float64() < d.vowelProbability {
		return string(vowels[d.rng.Intn(len(vowels))])
	}
	return string(consonants[d.rng.Intn(len(consonants))])
}

// lastLetter returns the uppercased final rune of word when it is a letter.
func lastLetter(word string) (string, bool) {
	runes := []rune(word)
	if len(runes) == 0 {
		return "", false
	}
	last := runes[len(runes)-1]
	if !unicode.IsLetter(last) {
		return "", false
	}
	return string(unicode.ToUpper(last)), true
}
