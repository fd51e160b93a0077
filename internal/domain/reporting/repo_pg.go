package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lablink/lablink/internal/platform/db"
	"github.com/lablink/lablink/internal/domain/results"
)

type jobRepoPG struct{ pool *pgxpool.Pool }

func NewJobRepoPG(pool *pgxpool.Pool) JobRepository {
	return &jobRepoPG{pool: pool}
}

func (r *jobRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const itemCols = `id, job_id, position, payload, status, details, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	var payload []byte
	err := row.Scan(&it.ID, &it.JobID, &it.Position, &payload, &it.Status,
		&it.Details, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: report item", results.ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal(payload, &it.Payload); err != nil {
		return nil, fmt.Errorf("decode item payload: %w", err)
	}
	return &it, nil
}

func (r *jobRepoPG) CreateJob(ctx context.Context, job *Job, items []*Item) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	return db.WithTx(ctx, r.pool, func(txCtx context.Context) error {
		conn := r.conn(txCtx)
		row := conn.QueryRow(txCtx,
			`INSERT INTO reporting_job (id, created_by) VALUES ($1, $2) RETURNING created_at`,
			job.ID, job.CreatedBy)
		if err := row.Scan(&job.CreatedAt); err != nil {
			return err
		}
		for _, it := range items {
			if it.ID == uuid.Nil {
				it.ID = uuid.New()
			}
			it.JobID = job.ID
			it.Status = StatusRequestReceived
			payload, err := json.Marshal(it.Payload)
			if err != nil {
				return fmt.Errorf("encode item payload: %w", err)
			}
			row := conn.QueryRow(txCtx, `
				INSERT INTO reporting_item (id, job_id, position, payload, status)
				VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
				it.ID, it.JobID, it.Position, payload, it.Status)
			if err := row.Scan(&it.CreatedAt, &it.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *jobRepoPG) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	var job Job
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, created_by, created_at FROM reporting_job WHERE id = $1`, jobID).
		Scan(&job.ID, &job.CreatedBy, &job.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: report job %s", results.ErrNotFound, jobID)
		}
		return nil, err
	}
	return &job, nil
}

func (r *jobRepoPG) ListItems(ctx context.Context, jobID uuid.UUID) ([]*Item, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM reporting_item WHERE job_id = $1 ORDER BY position`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *jobRepoPG) GetItem(ctx context.Context, jobID, itemID uuid.UUID) (*Item, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM reporting_item WHERE job_id = $1 AND id = $2`, jobID, itemID))
}

func (r *jobRepoPG) SetItemStatus(ctx context.Context, itemID uuid.UUID, status string, details *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE reporting_item SET status = $2, details = $3, updated_at = NOW()
		WHERE id = $1`, itemID, status, details)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: report item %s", results.ErrNotFound, itemID)
	}
	return nil
}
