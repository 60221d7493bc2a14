package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/picshare/activity-service/internal/domain/activity"
)

// ActivityRepository is the Postgres-backed ledger. The activity table is
// created by the schema bootstrap tooling (db/migrations); the service
// assumes it exists.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// Append inserts the record in a single statement. The unique index on
// source_event_id makes redelivered events a no-op: RowsAffected of zero
// means a record for that source event is already stored, reported as
// activity.ErrDuplicate so the caller can count it and move on.
func (r *ActivityRepository) Append(ctx context.Context, rec activity.Record) (string, error) {
	const query = `
		INSERT INTO activity (id, user_id, image_id, activity_type, status, occurred_at, source_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_event_id) DO NOTHING
	`

	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}

	tag, err := r.pool.Exec(ctx, query,
		id, rec.UserID, rec.ImageID, string(rec.ActivityType), string(rec.Status), rec.OccurredAt, rec.SourceEventID)
	if err != nil {
		return "", fmt.Errorf("insert activity record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return "", activity.ErrDuplicate
	}

	return id, nil
}

func (r *ActivityRepository) ExistsBySourceEventID(ctx context.Context, sourceEventID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM activity WHERE source_event_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, sourceEventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check source event id: %w", err)
	}

	return exists, nil
}

func (r *ActivityRepository) QueryByKey(ctx context.Context, key activity.Key) ([]activity.Record, error) {
	const query = `
		SELECT id, user_id, image_id, activity_type, status, occurred_at, source_event_id
		FROM activity
		WHERE user_id = $1 AND image_id = $2 AND activity_type = $3
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, key.UserID, key.ImageID, string(key.ActivityType))
	if err != nil {
		return nil, fmt.Errorf("query activity by key: %w", err)
	}
	defer rows.Close()

	var records []activity.Record
	for rows.Next() {
		var rec activity.Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ImageID, &rec.ActivityType, &rec.Status, &rec.OccurredAt, &rec.SourceEventID); err != nil {
			return nil, fmt.Errorf("scan activity record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity records: %w", err)
	}

	return records, nil
}
