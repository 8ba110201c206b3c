package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/pressline/pressline/internal/models"
)

// PostgresLocalArticleRepository stores operator-submitted articles for the
// internal news provider, scoped to one tenant schema.
type PostgresLocalArticleRepository struct {
	db     *sql.DB
	schema string
}

var _ LocalArticleRepository = (*PostgresLocalArticleRepository)(nil)

// NewPostgresLocalArticleRepository binds the repository to an agent's schema.
func NewPostgresLocalArticleRepository(db *sql.DB, agentID string) *PostgresLocalArticleRepository {
	return &PostgresLocalArticleRepository{db: db, schema: TenantSchema(agentID)}
}

func (r *PostgresLocalArticleRepository) table() string {
	return r.schema + ".local_articles"
}

// Insert stores a submitted article.
func (r *PostgresLocalArticleRepository) Insert(ctx context.Context, article models.Candidate) error {
	query, args, err := psql.Insert(r.table()).
		Columns("id", "title", "description", "content", "image_url", "source_name", "language").
		Values(
			uuid.New().String(), article.Title, article.Description,
			article.Content, article.ImageURL, article.SourceName, article.Language,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert local article: %w", err)
	}
	return nil
}

// RecentWithin returns articles inserted within the trailing window, oldest first.
func (r *PostgresLocalArticleRepository) RecentWithin(ctx context.Context, window time.Duration) ([]models.Candidate, error) {
	cutoff := time.Now().Add(-window)

	query, args, err := psql.Select("title", "description", "content", "image_url", "source_name", "language").
		From(r.table()).
		Where(sq.GtOrEq{"inserted_at": cutoff}).
		OrderBy("inserted_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent local articles: %w", err)
	}
	defer rows.Close()

	var articles []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.Title, &c.Description, &c.Content, &c.ImageURL, &c.SourceName, &c.Language); err != nil {
			return nil, fmt.Errorf("scan local article: %w", err)
		}
		articles = append(articles, c)
	}
	return articles, rows.Err()
}
