// Package dictionary answers whether a word exists and what it means.
package dictionary

import "context"

// Result is the outcome of a successful lookup. A lookup that could not
// complete returns an error instead.
type Result struct {
	Valid    bool   `json:"valid"`
	Meaning  string `json:"meaning,omitempty"`
	Phonetic string `json:"phonetic,omitempty"`
}

// Validator checks a normalized (lowercased, trimmed) word.
type Validator interface {
	Validate(ctx context.Context, word string) (Result, error)
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc func(ctx context.Context, word string) (Result, error)

func (f ValidatorFunc) Validate(ctx context.Context, word string) (Result, error) {
	return f(ctx, word)
}
