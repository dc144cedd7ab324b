package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/nightowl-app/nightowl/internal/catalog"
	"github.com/nightowl-app/nightowl/internal/chat"
	"github.com/nightowl-app/nightowl/internal/config"
	"github.com/nightowl-app/nightowl/internal/llm"
	"github.com/nightowl-app/nightowl/internal/logger"
	"github.com/nightowl-app/nightowl/internal/recommend"
	"github.com/nightowl-app/nightowl/internal/server"
	"github.com/nightowl-app/nightowl/internal/telegram"
	"github.com/nightowl-app/nightowl/internal/weather"
	"github.com/nightowl-app/nightowl/internal/whatson"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	// Catalog source and store
	source := whatson.NewClient(cfg.Catalog.SourceURL, cfg.Catalog.Timeout)
	store := catalog.New(source, cfg.Catalog.StaleAfter, cfg.Catalog.Timeout, cfg.Catalog.MaxEvents)

	// Weather provider (optional)
	var weatherProvider chat.WeatherProvider
	if cfg.Weather.Enabled {
		weatherProvider = weather.NewClient(cfg.Weather.APIBaseURL, cfg.Weather.Latitude, cfg.Weather.Longitude, cfg.Weather.Timeout)
	} else {
		logger.Debug("Weather provider disabled")
	}

	// LLM shortlist collaborator (optional)
	var shortlister recommend.Shortlister
	if cfg.OpenAI.Enabled {
		shortlister = llm.NewShortlister(llm.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.OpenAI.Timeout,
		})
		logger.Info("LLM shortlister enabled (model: %s)", cfg.OpenAI.Model)
	} else {
		logger.Debug("LLM shortlister disabled, composing from catalog only")
	}

	composer := recommend.New(shortlister, cfg.Chat.MaxRecommendations, cfg.Chat.City)
	sessions := chat.NewSessionStore(cfg.Chat.SessionTTL)
	engine := chat.NewEngine(sessions, store, weatherProvider, composer)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	// Warm up catalog and weather concurrently; neither failure is fatal,
	// the catalog retries on the cron schedule and weather degrades to
	// neutral scoring.
	warmup, warmupCtx := errgroup.WithContext(ctx)
	warmup.Go(func() error {
		if err := store.Refresh(warmupCtx); err != nil {
			logger.Warn("Initial catalog refresh failed: %v", err)
		}
		return nil
	})
	if weatherProvider != nil {
		warmup.Go(func() error {
			probeCtx, probeCancel := context.WithTimeout(warmupCtx, cfg.Weather.Timeout)
			defer probeCancel()
			if _, err := weatherProvider.Current(probeCtx); err != nil {
				logger.Warn("Weather probe failed: %v", err)
			}
			return nil
		})
	}
	_ = warmup.Wait()

	// Scheduled catalog refresh and session sweep, decoupled from request
	// handling with per-run failure isolation.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every "+cfg.Catalog.RefreshInterval.String(), func() {
		if err := store.Refresh(ctx); err != nil {
			logger.Warn("Scheduled catalog refresh failed, serving previous snapshot: %v", err)
		}
	}); err != nil {
		logger.Fatal("Failed to schedule catalog refresh: %v", err)
	}
	if _, err := scheduler.AddFunc("@every 5m", func() {
		if removed := sessions.PruneExpired(time.Now()); removed > 0 {
			logger.Debug("Pruned %d expired sessions", removed)
		}
	}); err != nil {
		logger.Fatal("Failed to schedule session sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Optional Telegram front-end
	if cfg.Telegram.Enabled {
		tgClient, err := telegram.NewClient(cfg.Telegram.BotToken, engine)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		tgClient.Listen(ctx)
	}

	// HTTP server
	srv := server.New(cfg.Server.Addr, engine, store, weatherProvider, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	go func() {
		logger.Info("HTTP server listening on %s", cfg.Server.Addr)
		if err := srv.Start(); err != nil {
			logger.Info("HTTP server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed: %v", err)
	}
	logger.Info("Service stopped")
}
