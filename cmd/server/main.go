// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/wordchain/internal/auth"
	"github.com/jason-s-yu/wordchain/internal/cache"
	"github.com/jason-s-yu/wordchain/internal/config"
	"github.com/jason-s-yu/wordchain/internal/dictionary"
	"github.com/jason-s-yu/wordchain/internal/game"
	"github.com/jason-s-yu/wordchain/internal/handlers"
	"github.com/jason-s-yu/wordchain/internal/middleware"
	"github.com/jason-s-yu/wordchain/internal/presence"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var validator dictionary.Validator = dictionary.NewHTTPClient(cfg.PrimaryURL, cfg.FallbackURL, cfg.Game.DictionaryTimeout, logger)
	var history game.ActionPublisher

	if cfg.UseRedis {
		client, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Warnf("%v; running without dictionary cache and action history", err)
		} else {
			defer client.Close()
			cached := dictionary.NewCachedValidator(validator,
				cache.NewWordCache(client, cfg.DictCacheHitTTL, cfg.DictCacheMissTTL), logger)
			// room for the primary lookup and the fallback
			cached.LookupTimeout = 2 * cfg.Game.DictionaryTimeout
			validator = cached
			history = cache.NewPublisher(client, cfg.QueueName)
			logger.Infof("Redis connected at %s, publishing actions to %q", cfg.RedisAddr, cfg.QueueName)
		}
	}

	var tickets *auth.Tickets
	if cfg.TicketKey != "" && cfg.TicketPub != "" {
		tickets, err = auth.NewTicketsFromPath(cfg.TicketKey, cfg.TicketPub, cfg.TicketTTL)
	} else {
		tickets, err = auth.NewTickets(cfg.TicketTTL)
	}
	if err != nil {
		logger.Fatalf("reconnect tickets: %v", err)
	}

	engine := game.NewEngine(game.NewRoomStore(), validator, cfg.Game, logger)
	if history != nil {
		engine.History = history
	}
	pres := presence.NewManager(cfg.Reconnect, logger)
	gs := handlers.NewGameServer(engine, pres, tickets, logger)

	// /ping, /rooms/{code} and the /ws upgrade
	mux := handlers.Routes(gs)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.Recoverer(logger)(middleware.LogMiddleware(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	engine.Shutdown()
	pres.Stop()
}
