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

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresQueueRepository implements QueueRepository against one tenant schema.
type PostgresQueueRepository struct {
	db     *sql.DB
	schema string
}

var _ QueueRepository = (*PostgresQueueRepository)(nil)

// NewPostgresQueueRepository binds a queue repository to an agent's schema.
func NewPostgresQueueRepository(db *sql.DB, agentID string) *PostgresQueueRepository {
	return &PostgresQueueRepository{db: db, schema: TenantSchema(agentID)}
}

func (r *PostgresQueueRepository) table() string {
	return r.schema + ".publish_queue"
}

var queueColumns = []string{
	"id", "title_original", "title_refined", "semantic_hash", "description",
	"body_original", "body_rewritten", "image_url", "source_name", "source_api",
	"language", "category", "cost_usd", "enqueued_at",
}

// Enqueue inserts the item; a semantic-hash conflict is silently dropped.
func (r *PostgresQueueRepository) Enqueue(ctx context.Context, item models.QueueItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}

	query, args, err := psql.Insert(r.table()).
		Columns(queueColumns...).
		Values(
			item.ID, item.TitleOriginal, item.TitleRefined, item.SemanticHash,
			item.Description, item.BodyOriginal, item.BodyRewritten, item.ImageURL,
			item.SourceName, item.SourceAPI, item.Language, item.Category,
			item.CostUSD, item.EnqueuedAt,
		).
		Suffix("ON CONFLICT (semantic_hash) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build enqueue query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("enqueue item: %w", err)
	}
	return nil
}

// PeekOldest returns the earliest-enqueued item without removing it.
func (r *PostgresQueueRepository) PeekOldest(ctx context.Context) (*models.QueueItem, error) {
	query, args, err := psql.Select(queueColumns...).
		From(r.table()).
		OrderBy("enqueued_at ASC", "id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build peek query: %w", err)
	}

	return r.scanOne(r.db.QueryRowContext(ctx, query, args...))
}

// GetByID returns the item with the given id, or nil.
func (r *PostgresQueueRepository) GetByID(ctx context.Context, id string) (*models.QueueItem, error) {
	query, args, err := psql.Select(queueColumns...).
		From(r.table()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	return r.scanOne(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresQueueRepository) scanOne(row *sql.Row) (*models.QueueItem, error) {
	var item models.QueueItem
	err := row.Scan(
		&item.ID, &item.TitleOriginal, &item.TitleRefined, &item.SemanticHash,
		&item.Description, &item.BodyOriginal, &item.BodyRewritten, &item.ImageURL,
		&item.SourceName, &item.SourceAPI, &item.Language, &item.Category,
		&item.CostUSD, &item.EnqueuedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan queue item: %w", err)
	}
	return &item, nil
}

// Remove deletes the item with the given id; absent ids are a no-op.
func (r *PostgresQueueRepository) Remove(ctx context.Context, id string) error {
	query, args, err := psql.Delete(r.table()).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build remove query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// Clear empties the queue.
func (r *PostgresQueueRepository) Clear(ctx context.Context) error {
	query, args, err := psql.Delete(r.table()).ToSql()
	if err != nil {
		return fmt.Errorf("build clear query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

// ListAll returns summaries of all queued items, oldest first.
func (r *PostgresQueueRepository) ListAll(ctx context.Context) ([]models.QueueSummary, error) {
	query, args, err := psql.Select("id", "title_refined", "category", "source_api").
		From(r.table()).
		OrderBy("enqueued_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var summaries []models.QueueSummary
	for rows.Next() {
		var s models.QueueSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Category, &s.SourceAPI); err != nil {
			return nil, fmt.Errorf("scan queue summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// HasTitle reports whether any queued item has this exact original title.
func (r *PostgresQueueRepository) HasTitle(ctx context.Context, title string) (bool, error) {
	return r.exists(ctx, sq.Eq{"title_original": title})
}

// HasSemanticHash reports whether any queued item has this semantic hash.
func (r *PostgresQueueRepository) HasSemanticHash(ctx context.Context, hash string) (bool, error) {
	return r.exists(ctx, sq.Eq{"semantic_hash": hash})
}

func (r *PostgresQueueRepository) exists(ctx context.Context, pred sq.Eq) (bool, error) {
	query, args, err := psql.Select("1").From(r.table()).Where(pred).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("queue lookup: %w", err)
	}
	return true, nil
}

// RecentTitles returns the newest refined titles, up to limit.
func (r *PostgresQueueRepository) RecentTitles(ctx context.Context, limit int) ([]string, error) {
	query, args, err := psql.Select("title_refined").
		From(r.table()).
		OrderBy("enqueued_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build titles query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// Depth returns the number of queued items.
func (r *PostgresQueueRepository) Depth(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(r.table()).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build depth query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return count, nil
}
