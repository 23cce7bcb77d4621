// internal/game/settings.go
package game

import "time"

// Settings are the process-wide timing and scoring knobs of the engine.
type Settings struct {
	TurnTimeout             time.Duration
	WordDisplayDelay        time.Duration
	EliminationDisplayDelay time.Duration
	DictionaryTimeout       time.Duration
	ClassicTargetScore      int
	VowelProbability        float64
	AIThinkMin              time.Duration
	AIThinkMax              time.Duration
	AIMistakeRate           float64
}

func DefaultSettings() Settings {
	return Settings{
		TurnTimeout:             30 * time.Second,
		WordDisplayDelay:        6 * time.Second,
		EliminationDisplayDelay: 3 * time.Second,
		DictionaryTimeout:       3 * time.Second,
		ClassicTargetScore:      200,
		VowelProbability:        DefaultVowelProbability,
		AIThinkMin:              1500 * time.Millisecond,
		AIThinkMax:              3500 * time.Millisecond,
		AIMistakeRate:           0.1,
	}
}
