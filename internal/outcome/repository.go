package outcome

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"contactrelay/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS contact_deliveries (
	attempt_id   UUID PRIMARY KEY,
	form_id      TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	banner       TEXT NOT NULL,
	error_class  TEXT NOT NULL DEFAULT '',
	relay_status INT NOT NULL DEFAULT 0,
	sender_hash  TEXT NOT NULL,
	duration_ms  BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
)`

// DB is the part of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the delivery table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create contact_deliveries: %w", err)
	}
	return nil
}

// Insert appends rec. Inserting the same attempt twice is a no-op.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("insert", "contact_deliveries", time.Since(start))
	}()

	_, err := r.db.Exec(ctx, `
		INSERT INTO contact_deliveries
			(attempt_id, form_id, outcome, banner, error_class, relay_status, sender_hash, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (attempt_id) DO NOTHING`,
		rec.AttemptID, rec.FormID, rec.Outcome, rec.Banner, rec.ErrorClass,
		rec.RelayStatus, rec.SenderHash, rec.DurationMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery %s: %w", rec.AttemptID, err)
	}
	return nil
}

// CountSince returns how many deliveries with outcome were logged since t.
func (r *Repository) CountSince(ctx context.Context, outcome string, t time.Time) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("count", "contact_deliveries", time.Since(start))
	}()

	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM contact_deliveries WHERE outcome = $1 AND created_at >= $2`,
		outcome, t,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return n, nil
}
