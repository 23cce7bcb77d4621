// Command historian pops room actions from the Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/jason-s-yu/wordchain/internal/cache"
	"github.com/jason-s-yu/wordchain/internal/database"
	"github.com/jason-s-yu/wordchain/internal/historian"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, database.DSNFromEnv())
	if err != nil {
		logger.Fatalf("historian: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("historian: %v", err)
	}

	redisDB := getEnvInt("REDIS_DB", 0)
	client, err := cache.ConnectRedis(ctx, getEnv("REDIS_ADDR", "localhost:6379"), redisDB)
	if err != nil {
		logger.Fatalf("historian: %v", err)
	}
	defer client.Close()

	opts := historian.Options{
		Queue:      getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity: time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}
	svc := historian.NewService(client, database.NewHistoryStore(pool), opts, logger)

	logger.Infof("historian draining %q (batch %d, flush %s)", opts.Queue, opts.BatchSize, opts.FlushDelay)
	svc.Run(ctx)
	logger.Info("historian shutdown complete")
}

func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
