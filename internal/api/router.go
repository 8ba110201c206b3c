package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/pressline/pressline/internal/auth"
	"github.com/pressline/pressline/internal/database"
	"github.com/pressline/pressline/internal/orchestrator"
)

// SetupRoutes configures all API routes.
func SetupRoutes(
	mux *http.ServeMux,
	db *sql.DB,
	manager *orchestrator.Manager,
	agentRepo database.AgentRepository,
	authConfig auth.Config,
	logger *slog.Logger,
) {
	handler := NewHandler(manager, agentRepo, logger)
	authHandler := NewAuthHandler(authConfig, logger)

	protect := auth.Middleware(authConfig)

	// Authentication routes.
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.Handle("/api/auth/validate", protect(http.HandlerFunc(authHandler.ValidateToken)))

	// Everything else requires a valid token.
	mux.Handle("/api/status", protect(http.HandlerFunc(handler.GetStatusHandler)))
	mux.Handle("/api/agents", protect(http.HandlerFunc(handler.AgentsHandler)))
	mux.Handle("/api/agents/", protect(http.HandlerFunc(handler.AgentActionHandler)))

	// Liveness probe, public.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := database.HealthCheck(r.Context(), db); err != nil {
				logger.Error("health check failed", "error", err)
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}
