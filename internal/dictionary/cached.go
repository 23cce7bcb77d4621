// internal/dictionary/cached.go
package dictionary

import (
	"context"
	"time"

	"github.com/jason-s-yu/wordchain/internal/cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const defaultLookupTimeout = 10 * time.Second

// CachedValidator puts a shared cache and request collapsing in front of
// another Validator. Lookup errors are never cached. A nil Cache only
// collapses concurrent lookups.
//
// A collapsed lookup belongs to no single caller: it runs detached under
// LookupTimeout, and each caller gives up on its own deadline.
type CachedValidator struct {
	Next          Validator
	Cache         cache.WordCache
	Logger        *logrus.Logger
	LookupTimeout time.Duration

	group singleflight.Group
}

func NewCachedValidator(next Validator, wc cache.WordCache, logger *logrus.Logger) *CachedValidator {
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedValidator{Next: next, Cache: wc, Logger: logger, LookupTimeout: defaultLookupTimeout}
}

func (v *CachedValidator) Validate(ctx context.Context, word string) (Result, error) {
	if v.Cache != nil {
		entry, err := v.Cache.Get(ctx, word)
		if err != nil {
			v.Logger.WithError(err).WithField("word", word).Warn("dictionary cache read failed")
		} else if entry != nil {
			return Result{Valid: entry.Valid, Meaning: entry.Meaning, Phonetic: entry.Phonetic}, nil
		}
	}

	ch := v.group.DoChan(word, func() (interface{}, error) {
		timeout := v.LookupTimeout
		if timeout <= 0 {
			timeout = defaultLookupTimeout
		}
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		res, err := v.Next.Validate(lookupCtx, word)
		if err != nil {
			return Result{}, err
		}
		if v.Cache != nil {
			entry := cache.WordEntry{Valid: res.Valid, Meaning: res.Meaning, Phonetic: res.Phonetic}
			if err := v.Cache.Set(lookupCtx, word, entry); err != nil {
				v.Logger.WithError(err).WithField("word", word).Warn("dictionary cache write failed")
			}
		}
		return res, nil
	})

	select {
	case out := <-ch:
		if out.Err != nil {
			return Result{}, out.Err
		}
		return out.Val.(Result), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
