package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/artifact"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/config"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/coordinator"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/database"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/event"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/gateway"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/server"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the JSON configuration file")
	flag.Parse()

	cfg, err := config.ReadConfigFrom(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigCreated) {
			slog.Warn(err.Error(), "path", *configPath)
		} else {
			slog.Error("Error occured while reading config", "error", err)
		}
		os.Exit(1)
	}

	loggerCallback := logger.Init(logger.Options{
		Debug:         cfg.DebugMode,
		Dir:           cfg.Log.Dir,
		RetentionDays: cfg.Log.RetentionDays,
	})
	logger.Debug("Application initializing...")
	cleaner := event.NewCleaner()
	cleaner.Init(loggerCallback)

	temporal, err := gateway.DialTemporal(gateway.TemporalOptions{
		HostPort:       cfg.Engine.HostPort,
		Namespace:      cfg.Engine.Namespace,
		TaskQueue:      cfg.Engine.TaskQueue,
		RPCTimeout:     cfg.Engine.RPCTimeoutDuration(),
		ExecuteTimeout: cfg.Engine.ExecuteTimeoutDuration(),
	})
	if err != nil {
		logger.FatalF("Error occured while connecting to the engine, details: %v", err)
		_ = cleaner.Clean()
		os.Exit(1)
	}
	cleaner.Add("temporal", temporal)

	store, err := artifact.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		logger.FatalF("Error occured while preparing artifacts directory, details: %v", err)
		_ = cleaner.Clean()
		os.Exit(1)
	}

	opts := []coordinator.Option{coordinator.WithArtifacts(store)}
	if cfg.Database.Enabled {
		db, err := database.ConnectDatabase(cfg.Database, cfg.AppName)
		if err != nil {
			logger.FatalF("Error occured while initializing database, details: %v", err)
			_ = cleaner.Clean()
			os.Exit(1)
		}
		cleaner.Add("database", db.CloseCallback())
		opts = append(opts, coordinator.WithArchive(db))
	}

	co := coordinator.New(temporal, session.NewRegistry(), coordinator.ConfigFrom(cfg), opts...)
	srv := server.New(co, store, cfg.HTTP)
	if err := srv.StartServer(); err != nil {
		logger.FatalF("HTTP Server Start error: %v", err)
		_ = cleaner.Clean()
		os.Exit(1)
	}
	cleaner.Add("http", srv)

	<-cleaner.Done()
}
