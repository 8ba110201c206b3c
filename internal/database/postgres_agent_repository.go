package database

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/pressline/pressline/internal/models"
)

// PostgresAgentRepository stores agent configuration in the shared schema.
type PostgresAgentRepository struct {
	db *sql.DB
}

var _ AgentRepository = (*PostgresAgentRepository)(nil)

// NewPostgresAgentRepository creates an agent config repository.
func NewPostgresAgentRepository(db *sql.DB) *PostgresAgentRepository {
	return &PostgresAgentRepository{db: db}
}

var agentColumns = []string{
	"id", "name", "active", "instagram_user", "instagram_pass",
	"gnews_api_key", "newsdata_api_key", "providers", "categories",
	"languages", "target_language", "fetch_interval_minutes",
	"post_interval_minutes", "randomized_pacing", "post_interval_min_minutes",
	"post_interval_max_minutes", "overlay_opacity",
}

// Upsert inserts or updates an agent configuration row.
func (r *PostgresAgentRepository) Upsert(ctx context.Context, agent models.AgentConfig) error {
	query, args, err := psql.Insert("agents").
		Columns(agentColumns...).
		Values(
			agent.ID, agent.Name, agent.Active, agent.InstagramUser,
			agent.InstagramPass, agent.GNewsAPIKey, agent.NewsDataAPIKey,
			pq.Array(agent.Providers), pq.Array(agent.Categories),
			pq.Array(agent.Languages), agent.TargetLang(),
			agent.FetchIntervalMinutes, agent.PostIntervalMinutes,
			agent.RandomizedPacing, agent.PostIntervalMinMinutes,
			agent.PostIntervalMaxMinutes, agent.OverlayOpacity,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			instagram_user = EXCLUDED.instagram_user,
			instagram_pass = EXCLUDED.instagram_pass,
			gnews_api_key = EXCLUDED.gnews_api_key,
			newsdata_api_key = EXCLUDED.newsdata_api_key,
			providers = EXCLUDED.providers,
			categories = EXCLUDED.categories,
			languages = EXCLUDED.languages,
			target_language = EXCLUDED.target_language,
			fetch_interval_minutes = EXCLUDED.fetch_interval_minutes,
			post_interval_minutes = EXCLUDED.post_interval_minutes,
			randomized_pacing = EXCLUDED.randomized_pacing,
			post_interval_min_minutes = EXCLUDED.post_interval_min_minutes,
			post_interval_max_minutes = EXCLUDED.post_interval_max_minutes,
			overlay_opacity = EXCLUDED.overlay_opacity,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert agent %s: %w", agent.ID, err)
	}
	return nil
}

// Get returns the agent with the given id, or nil when absent.
func (r *PostgresAgentRepository) Get(ctx context.Context, id string) (*models.AgentConfig, error) {
	query, args, err := psql.Select(agentColumns...).
		From("agents").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	agent, err := scanAgent(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return agent, nil
}

// List returns every configured agent.
func (r *PostgresAgentRepository) List(ctx context.Context) ([]models.AgentConfig, error) {
	query, args, err := psql.Select(agentColumns...).
		From("agents").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []models.AgentConfig
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *agent)
	}
	return agents, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*models.AgentConfig, error) {
	var agent models.AgentConfig
	var providers, categories, languages pq.StringArray

	err := row.Scan(
		&agent.ID, &agent.Name, &agent.Active, &agent.InstagramUser,
		&agent.InstagramPass, &agent.GNewsAPIKey, &agent.NewsDataAPIKey,
		&providers, &categories, &languages, &agent.TargetLanguage,
		&agent.FetchIntervalMinutes, &agent.PostIntervalMinutes,
		&agent.RandomizedPacing, &agent.PostIntervalMinMinutes,
		&agent.PostIntervalMaxMinutes, &agent.OverlayOpacity,
	)
	if err != nil {
		return nil, err
	}

	agent.Providers = providers
	agent.Categories = categories
	agent.Languages = languages
	return &agent, nil
}
