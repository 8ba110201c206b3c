package database

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/pressline/pressline/internal/models"
)

// PostgresHistoryRepository implements HistoryRepository against one tenant schema.
type PostgresHistoryRepository struct {
	db     *sql.DB
	schema string
}

var _ HistoryRepository = (*PostgresHistoryRepository)(nil)

// NewPostgresHistoryRepository binds a history ledger to an agent's schema.
func NewPostgresHistoryRepository(db *sql.DB, agentID string) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db, schema: TenantSchema(agentID)}
}

func (r *PostgresHistoryRepository) table() string {
	return r.schema + ".history"
}

func (r *PostgresHistoryRepository) statsTable() string {
	return r.schema + ".stats"
}

// Record appends a ledger entry. The content insert is dropped on a
// semantic-hash conflict, but the lifetime cost counter is incremented by the
// item's cost either way. Both statements run in one transaction so
// concurrent fetch and post cycles cannot interleave partial writes.
func (r *PostgresHistoryRepository) Record(ctx context.Context, item models.QueueItem, status models.HistoryStatus, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer tx.Rollback()

	query, args, err := psql.Insert(r.table()).
		Columns(
			"id", "title_original", "title_refined", "semantic_hash",
			"body_original", "body_rewritten", "source_api", "language",
			"status", "reason", "cost_usd",
		).
		Values(
			uuid.New().String(), item.TitleOriginal, item.TitleRefined,
			item.SemanticHash, item.BodyOriginal, item.BodyRewritten,
			item.SourceAPI, item.Language, string(status), reason, item.CostUSD,
		).
		Suffix("ON CONFLICT (semantic_hash) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build record query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}

	// The counter moves even when the insert was a duplicate no-op: money
	// spent on a duplicate was still spent.
	counter := fmt.Sprintf("UPDATE %s SET value = value + $1 WHERE key = 'lifetime_cost_usd'", r.statsTable())
	if _, err := tx.ExecContext(ctx, counter, item.CostUSD); err != nil {
		return fmt.Errorf("update lifetime cost: %w", err)
	}

	return tx.Commit()
}

// TotalLifetimeCost returns the cumulative cost counter for the tenant.
func (r *PostgresHistoryRepository) TotalLifetimeCost(ctx context.Context) (float64, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = 'lifetime_cost_usd'", r.statsTable())

	var total float64
	err := r.db.QueryRowContext(ctx, query).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lifetime cost: %w", err)
	}
	return total, nil
}

// Recent returns the newest records first, up to limit.
func (r *PostgresHistoryRepository) Recent(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := psql.Select(
		"id", "title_original", "title_refined", "semantic_hash",
		"body_original", "body_rewritten", "source_api", "language",
		"status", "reason", "cost_usd", "processed_at",
	).
		From(r.table()).
		OrderBy("processed_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var status string
		if err := rows.Scan(
			&rec.ID, &rec.TitleOriginal, &rec.TitleRefined, &rec.SemanticHash,
			&rec.BodyOriginal, &rec.BodyRewritten, &rec.SourceAPI, &rec.Language,
			&status, &rec.Reason, &rec.CostUSD, &rec.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		rec.Status = models.HistoryStatus(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// HasTitle reports whether any record has this exact original title.
func (r *PostgresHistoryRepository) HasTitle(ctx context.Context, title string) (bool, error) {
	return r.exists(ctx, sq.Eq{"title_original": title})
}

// HasSemanticHash reports whether any record has this semantic hash.
func (r *PostgresHistoryRepository) HasSemanticHash(ctx context.Context, hash string) (bool, error) {
	return r.exists(ctx, sq.Eq{"semantic_hash": hash})
}

func (r *PostgresHistoryRepository) exists(ctx context.Context, pred sq.Eq) (bool, error) {
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
		return false, fmt.Errorf("history lookup: %w", err)
	}
	return true, nil
}
