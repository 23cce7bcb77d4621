// Package historian drains the room action queue from Redis and persists it.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/wordchain/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink is where drained batches end up.
type Sink interface {
	InsertActions(ctx context.Context, records []cache.ActionRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Options tune batching and the abandonment sweep.
type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration
	PopTimeout time.Duration
	SweepEvery time.Duration
}

func DefaultOptions() Options {
	return Options{
		Queue:      cache.DefaultQueueName,
		BatchSize:  20,
		FlushDelay: 500 * time.Millisecond,
		Inactivity: 10 * time.Minute,
		PopTimeout: 3 * time.Second,
		SweepEvery: time.Minute,
	}
}

// Service captures room actions and marks games abandoned once they go quiet.
type Service struct {
	client *redis.Client
	sink   Sink
	opts   Options
	logger *logrus.Logger

	lastActivity sync.Map // uuid.UUID -> time.Time

	batchMu sync.Mutex
	batch   []cache.ActionRecord
}

func NewService(client *redis.Client, sink Sink, opts Options, logger *logrus.Logger) *Service {
	def := DefaultOptions()
	if opts.Queue == "" {
		opts.Queue = def.Queue
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = def.FlushDelay
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = def.Inactivity
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = def.PopTimeout
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = def.SweepEvery
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{client: client, sink: sink, opts: opts, logger: logger}
}

// Run blocks until ctx is cancelled, then flushes whatever is still buffered.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
}

func (s *Service) readLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
			continue
		default:
		}

		res, err := s.client.BLPop(ctx, s.opts.PopTimeout, s.opts.Queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			s.logger.WithError(err).Warn("historian: BLPop failed")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		// res[0] is the list name
		if len(res) < 2 {
			continue
		}

		var record cache.ActionRecord
		if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
			s.logger.WithError(err).Warn("historian: dropping malformed record")
			continue
		}
		s.Append(ctx, record)
	}
}

// Append buffers a record and flushes once the batch is full.
func (s *Service) Append(ctx context.Context, record cache.ActionRecord) {
	if record.ActionType == "game_over" {
		s.lastActivity.Delete(record.GameID)
	} else {
		s.lastActivity.Store(record.GameID, time.Now())
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, record)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the buffered batch. A failed batch is put back in front of newer records.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := s.batch
	s.batch = nil
	s.batchMu.Unlock()

	if err := s.sink.InsertActions(ctx, pending); err != nil {
		s.logger.WithError(err).Errorf("historian: failed to flush %d actions", len(pending))
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.logger.Debugf("historian: flushed %d actions", len(pending))
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

func (s *Service) sweep(ctx context.Context, now time.Time) {
	s.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.opts.Inactivity {
			return true
		}
		if err := s.sink.MarkAbandoned(ctx, gameID); err != nil {
			s.logger.WithError(err).Warnf("historian: failed to mark game %s abandoned", gameID)
			return true
		}
		s.logger.Infof("historian: marked game %s abandoned", gameID)
		s.lastActivity.Delete(gameID)
		return true
	})
}
