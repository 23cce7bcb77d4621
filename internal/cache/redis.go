// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the historian drains.
const DefaultQueueName = "wordchain_actions"

// ActionRecord is one entry of a room's action log.
type ActionRecord struct {
	GameID      uuid.UUID              `json:"game_id"`
	RoomCode    string                 `json:"room_code"`
	ActionIndex int                    `json:"action_index"`
	Actor       string                 `json:"actor"`
	ActionType  string                 `json:"action_type"`
	Payload     map[string]interface{} `json:"payload"`
	Timestamp   int64                  `json:"timestamp"`
}

// ConnectRedis opens a client and checks it answers PING.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}

// Publisher pushes action records onto the historian queue.
type Publisher struct {
	client *redis.Client
	queue  string
}

func NewPublisher(client *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{client: client, queue: queue}
}

// PublishAction serializes the record and appends it to the queue.
func (p *Publisher) PublishAction(ctx context.Context, record ActionRecord) error {
	if p == nil || p.client == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

func (p *Publisher) Queue() string { return p.queue }
