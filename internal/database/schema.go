package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// globalDDL creates the shared tables that live in the public schema: one
// configuration row per agent.
var globalDDL = []string{
	`CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT FALSE,
		instagram_user TEXT NOT NULL DEFAULT '',
		instagram_pass TEXT NOT NULL DEFAULT '',
		gnews_api_key TEXT NOT NULL DEFAULT '',
		newsdata_api_key TEXT NOT NULL DEFAULT '',
		providers TEXT[] NOT NULL DEFAULT '{}',
		categories TEXT[] NOT NULL DEFAULT '{}',
		languages TEXT[] NOT NULL DEFAULT '{}',
		target_language TEXT NOT NULL DEFAULT 'pt',
		fetch_interval_minutes INTEGER NOT NULL DEFAULT 15,
		post_interval_minutes INTEGER NOT NULL DEFAULT 30,
		randomized_pacing BOOLEAN NOT NULL DEFAULT TRUE,
		post_interval_min_minutes DOUBLE PRECISION NOT NULL DEFAULT 8,
		post_interval_max_minutes DOUBLE PRECISION NOT NULL DEFAULT 10,
		overlay_opacity DOUBLE PRECISION NOT NULL DEFAULT 0.3,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// tenantDDL creates the per-agent tables inside the agent's own schema. The
// %s placeholder is the schema name. Both the queue and the history enforce
// semantic-hash uniqueness; duplicate inserts are dropped at insert time.
var tenantDDL = []string{
	`CREATE TABLE IF NOT EXISTS %s.publish_queue (
		id TEXT PRIMARY KEY,
		title_original TEXT NOT NULL DEFAULT '',
		title_refined TEXT NOT NULL,
		semantic_hash TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		body_original TEXT NOT NULL DEFAULT '',
		body_rewritten TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		source_name TEXT NOT NULL DEFAULT '',
		source_api TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
		enqueued_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (semantic_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS %s.history (
		id TEXT PRIMARY KEY,
		title_original TEXT NOT NULL DEFAULT '',
		title_refined TEXT NOT NULL DEFAULT '',
		semantic_hash TEXT NOT NULL DEFAULT '',
		body_original TEXT NOT NULL DEFAULT '',
		body_rewritten TEXT NOT NULL DEFAULT '',
		source_api TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (semantic_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS %s.stats (
		key TEXT PRIMARY KEY,
		value DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`INSERT INTO %s.stats (key, value) VALUES ('lifetime_cost_usd', 0) ON CONFLICT (key) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS %s.local_articles (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		source_name TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'pt',
		inserted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// SetupGlobal creates the shared tables. Safe to call on every startup.
func SetupGlobal(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	for _, stmt := range globalDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("global schema setup: %w", err)
		}
	}
	logger.Info("global schema ready")
	return nil
}

// ProvisionTenant creates the isolated storage namespace for one agent.
// Idempotent; existing tables are left untouched.
func ProvisionTenant(ctx context.Context, db *sql.DB, agentID string, logger *slog.Logger) error {
	schema := TenantSchema(agentID)

	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	for _, stmt := range tenantDDL {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(stmt, schema)); err != nil {
			return fmt.Errorf("provision tenant %s: %w", agentID, err)
		}
	}

	logger.Info("tenant storage ready", "agent_id", agentID, "schema", schema)
	return nil
}

// TenantSchema maps an agent id to its Postgres schema name. Only lowercase
// alphanumerics and underscores survive, so agent ids cannot inject SQL into
// the DDL above.
func TenantSchema(agentID string) string {
	var b strings.Builder
	b.WriteString("agent_")
	for _, r := range strings.ToLower(agentID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
