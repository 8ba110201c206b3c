package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/pressline/pressline/internal/api"
	"github.com/pressline/pressline/internal/auth"
	"github.com/pressline/pressline/internal/config"
	"github.com/pressline/pressline/internal/database"
	"github.com/pressline/pressline/internal/enrichment"
	"github.com/pressline/pressline/internal/logging"
	"github.com/pressline/pressline/internal/media"
	"github.com/pressline/pressline/internal/metrics"
	"github.com/pressline/pressline/internal/orchestrator"
	"github.com/pressline/pressline/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting pressline")

	var db *sql.DB
	if cfg.Database.URL != "" {
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.Database.URL
		db, err = database.Connect(context.Background(), dbCfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.SetupGlobal(context.Background(), db, logger); err != nil {
			logger.Error("failed to set up database schema", "error", err)
			os.Exit(1)
		}
		logger.Info("database connected")
	} else {
		logger.Warn("no DATABASE_URL configured, running on in-memory stores")
	}

	var agentRepo database.AgentRepository
	if db != nil {
		agentRepo = database.NewPostgresAgentRepository(db)
	} else {
		agentRepo = database.NewMemoryAgentRepository()
	}

	// Seed agents from the YAML file into the repository.
	for _, agent := range cfg.Agents {
		if err := agentRepo.Upsert(context.Background(), agent); err != nil {
			logger.Error("failed to seed agent", "agent", agent.ID, "error", err)
			os.Exit(1)
		}
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	composer, err := media.NewComposer(cfg.Media.FontFile, cfg.Media.OverlayFile, logger)
	if err != nil {
		logger.Error("failed to init post composer", "error", err)
		os.Exit(1)
	}

	llm := enrichment.NewOpenAIClient(cfg.OpenAI, logger)
	checker := media.NewChecker(logger)

	manager := orchestrator.NewManager(cfg, db, agentRepo, llm, checker, composer, collector, logger)
	defer manager.StopAll()

	// Bring the seeded active agents online. A failing agent is logged
	// and skipped; the dashboard can retry it later.
	for _, agent := range cfg.Agents {
		if !agent.Active {
			continue
		}
		if err := manager.Start(context.Background(), agent.ID); err != nil {
			logger.Error("failed to start agent", "agent", agent.ID, "error", err)
		}
	}

	authConfig := auth.LoadConfigFromEnv()

	mux := http.NewServeMux()
	api.SetupRoutes(mux, db, manager, agentRepo, authConfig, logger)
	mux.Handle("/metrics", collector.Handler())

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("pressline started", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	manager.StopAll()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
