// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jason-s-yu/wordchain/internal/auth"
	"github.com/jason-s-yu/wordchain/internal/cache"
	"github.com/jason-s-yu/wordchain/internal/dictionary"
	"github.com/jason-s-yu/wordchain/internal/game"
	"github.com/sirupsen/logrus"
)

// Config is everything the game server needs at startup.
type Config struct {
	Port     string
	LogLevel logrus.Level

	Game        game.Settings
	Reconnect   time.Duration
	TicketTTL   time.Duration
	TicketKey   string
	TicketPub   string
	PrimaryURL  string
	FallbackURL string

	DictCacheHitTTL  time.Duration
	DictCacheMissTTL time.Duration

	RedisAddr string
	RedisDB   int
	QueueName string
	UseRedis  bool
}

// Load builds a Config from the environment, falling back to defaults.
// Unparseable values are reported rather than silently replaced.
func Load() (Config, error) {
	var errs []error
	dur := func(key string, def time.Duration) time.Duration {
		d, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "debug"))
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		level = logrus.DebugLevel
	}

	settings := game.DefaultSettings()
	settings.TurnTimeout = dur("TURN_TIMEOUT", settings.TurnTimeout)
	settings.WordDisplayDelay = dur("WORD_DISPLAY_DELAY", settings.WordDisplayDelay)
	settings.EliminationDisplayDelay = dur("ELIMINATION_DISPLAY_DELAY", settings.EliminationDisplayDelay)
	settings.DictionaryTimeout = dur("DICTIONARY_TIMEOUT", settings.DictionaryTimeout)
	settings.AIThinkMin = dur("AI_THINK_MIN", settings.AIThinkMin)
	settings.AIThinkMax = dur("AI_THINK_MAX", settings.AIThinkMax)
	settings.ClassicTargetScore = getEnvInt("CLASSIC_TARGET_SCORE", settings.ClassicTargetScore)
	if settings.AIThinkMax < settings.AIThinkMin {
		errs = append(errs, fmt.Errorf("AI_THINK_MAX (%s) is below AI_THINK_MIN (%s)", settings.AIThinkMax, settings.AIThinkMin))
	}

	ticketTTL, err := auth.ParseExpireTime(os.Getenv("TOKEN_EXPIRE_TIME"))
	if err != nil {
		errs = append(errs, err)
	}

	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         level,
		Game:             settings,
		Reconnect:        dur("RECONNECT_GRACE", 60*time.Second),
		TicketTTL:        ticketTTL,
		TicketKey:        os.Getenv("TICKET_PRIVATE_KEY_PATH"),
		TicketPub:        os.Getenv("TICKET_PUBLIC_KEY_PATH"),
		PrimaryURL:       getEnv("DICTIONARY_PRIMARY_URL", dictionary.DefaultPrimaryURL),
		FallbackURL:      getEnv("DICTIONARY_FALLBACK_URL", dictionary.DefaultFallbackURL),
		DictCacheHitTTL:  dur("DICTIONARY_CACHE_TTL", 24*time.Hour),
		DictCacheMissTTL: dur("DICTIONARY_CACHE_MISS_TTL", time.Hour),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		QueueName:        getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
		UseRedis:         getEnv("REDIS_DISABLED", "") == "",
	}
	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %v", errs)
	}
	return cfg, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
