package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/haltarr/haltarr/internal/api"
	"github.com/haltarr/haltarr/internal/changelog"
	"github.com/haltarr/haltarr/internal/config"
	"github.com/haltarr/haltarr/internal/history"
	"github.com/haltarr/haltarr/internal/logger"
	"github.com/haltarr/haltarr/internal/poller"
	"github.com/haltarr/haltarr/internal/scheduler"
	"github.com/haltarr/haltarr/internal/settings"
	"github.com/haltarr/haltarr/internal/tracker"
	"github.com/haltarr/haltarr/internal/websocket"
)

const pollTaskID = "poll"

func main() {
	// Optional .env next to the binary, same convention the arr services
	// use in compose setups. Missing file is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().Msg("starting haltarr")

	settingsStore, err := settings.NewStore(cfg.Data.SettingsPath, settings.EnvDefaults{
		RadarrURL:    cfg.Radarr.URL,
		RadarrAPIKey: cfg.Radarr.APIKey,
		SonarrURL:    cfg.Sonarr.URL,
		SonarrAPIKey: cfg.Sonarr.APIKey,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize settings store")
	}

	changeLog, err := changelog.NewStore(cfg.Data.ChangeLogPath, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize change log")
	}

	// Rebuild the already-actioned set from the durable log so restarts
	// keep at-most-once bookkeeping.
	actionTracker, err := tracker.NewFromLog(changeLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to rebuild action tracker")
	}
	log.Info().Int("actioned", actionTracker.Len()).Msg("action tracker rebuilt from change log")

	runHistory := history.New(history.DefaultCapacity)

	hub := websocket.NewHub()
	go hub.Run()

	engine := poller.NewService(
		settingsStore,
		changeLog,
		actionTracker,
		runHistory,
		hub,
		poller.DefaultClientFactory(log.Logger),
		log.Logger,
	)

	// Cycles run under this context so shutdown aborts them between
	// items, never mid-item.
	cycleCtx, cancelCycles := context.WithCancel(context.Background())
	defer cancelCycles()

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}

	if err := sched.RegisterTask(scheduler.TaskConfig{
		ID:          pollTaskID,
		Name:        "Quality cutoff poll",
		Description: "Scans Radarr and Sonarr for items at their stop quality and unmonitors them",
		Interval:    settingsStore.Effective().Interval(),
		RunOnStart:  true,
		Func: func(context.Context) {
			engine.RunOnce(cycleCtx)
		},
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register poll task")
	}

	settingsHandlers := settings.NewHandlers(settingsStore)
	settingsHandlers.SetSaveHook(func(saved settings.Settings) error {
		return sched.UpdateInterval(pollTaskID, saved.Interval())
	})

	// Manual runs go through the scheduler task, so they use cycleCtx and
	// get aborted on shutdown like scheduled ones.
	pollerHandlers := poller.NewHandlers(engine, func() error {
		return sched.RunNow(pollTaskID)
	})

	server := api.NewServer(pollerHandlers, settingsHandlers, hub, sched, log.Logger)

	sched.Start()

	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil {
			log.Info().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancelCycles()

	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("scheduler shutdown failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown failed")
	}
}
