// internal/cache/word_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WordEntry is a cached dictionary verdict.
type WordEntry struct {
	Valid    bool   `json:"valid"`
	Meaning  string `json:"meaning,omitempty"`
	Phonetic string `json:"phonetic,omitempty"`
}

// WordCache stores dictionary lookups. Get returns nil on a miss.
type WordCache interface {
	Get(ctx context.Context, word string) (*WordEntry, error)
	Set(ctx context.Context, word string, entry WordEntry) error
}

type wordCache struct {
	client  *redis.Client
	hitTTL  time.Duration
	missTTL time.Duration
}

// NewWordCache keeps known words for hitTTL and unknown ones for missTTL.
func NewWordCache(client *redis.Client, hitTTL, missTTL time.Duration) WordCache {
	return &wordCache{client: client, hitTTL: hitTTL, missTTL: missTTL}
}

func (c *wordCache) key(word string) string {
	return fmt.Sprintf("dict:%s", word)
}

func (c *wordCache) Get(ctx context.Context, word string) (*WordEntry, error) {
	data, err := c.client.Get(ctx, c.key(word)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry WordEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *wordCache) Set(ctx context.Context, word string, entry WordEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ttl := c.hitTTL
	if !entry.Valid {
		ttl = c.missTTL
	}
	return c.client.Set(ctx, c.key(word), data, ttl).Err()
}
