package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lablink/lablink/internal/platform/db"
)

type resultRepoPG struct{ pool *pgxpool.Pool }

func NewResultRepoPG(pool *pgxpool.Pool) ResultRepository {
	return &resultRepoPG{pool: pool}
}

func (r *resultRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const resultCols = `id, appointment_id, bar_code, result, result_analysis, result_metadata,
	run_number, re_sample_number, linked_bar_codes, waiting_result, display_in_result,
	test_run_id, lab_id, deadline, created_at, updated_at`

func (r *resultRepoPG) scanResult(row pgx.Row) (*ResultRecord, error) {
	var rec ResultRecord
	var analysis, metadata []byte
	err := row.Scan(&rec.ID, &rec.AppointmentID, &rec.BarCode, &rec.Result, &analysis, &metadata,
		&rec.RunNumber, &rec.ReSampleNumber, &rec.LinkedBarCodes, &rec.WaitingResult, &rec.DisplayInResult,
		&rec.TestRunID, &rec.LabID, &rec.Deadline, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("result record")
		}
		return nil, err
	}
	if err := json.Unmarshal(analysis, &rec.ResultAnalysis); err != nil {
		return nil, fmt.Errorf("decode result_analysis: %w", err)
	}
	if err := json.Unmarshal(metadata, &rec.ResultMetaData); err != nil {
		return nil, fmt.Errorf("decode result_metadata: %w", err)
	}
	return &rec, nil
}

func (r *resultRepoPG) Create(ctx context.Context, rec *ResultRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	analysis, err := json.Marshal(rec.ResultAnalysis)
	if err != nil {
		return fmt.Errorf("encode result_analysis: %w", err)
	}
	metadata, err := json.Marshal(rec.ResultMetaData)
	if err != nil {
		return fmt.Errorf("encode result_metadata: %w", err)
	}
	linked := rec.LinkedBarCodes
	if linked == nil {
		linked = []string{}
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO result_record (id, appointment_id, bar_code, result, result_analysis,
			result_metadata, run_number, re_sample_number, linked_bar_codes,
			waiting_result, display_in_result, test_run_id, lab_id, deadline)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, rec.AppointmentID, rec.BarCode, rec.Result, analysis,
		metadata, rec.RunNumber, rec.ReSampleNumber, linked,
		rec.WaitingResult, rec.DisplayInResult, rec.TestRunID, rec.LabID, rec.Deadline)
	return err
}

func (r *resultRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ResultRecord, error) {
	return r.scanResult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+resultCols+` FROM result_record WHERE id = $1`, id))
}

func (r *resultRepoPG) Update(ctx context.Context, rec *ResultRecord) error {
	analysis, err := json.Marshal(rec.ResultAnalysis)
	if err != nil {
		return fmt.Errorf("encode result_analysis: %w", err)
	}
	metadata, err := json.Marshal(rec.ResultMetaData)
	if err != nil {
		return fmt.Errorf("encode result_metadata: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE result_record SET result=$2, result_analysis=$3, result_metadata=$4,
			waiting_result=$5, test_run_id=$6, lab_id=$7, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.Result, analysis, metadata,
		rec.WaitingResult, rec.TestRunID, rec.LabID)
	return err
}

func (r *resultRepoPG) Latest(ctx context.Context, barCode string) (*ResultRecord, error) {
	return r.scanResult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+resultCols+` FROM result_record WHERE bar_code = $1 ORDER BY updated_at DESC LIMIT 1`,
		barCode))
}

func (r *resultRepoPG) Waiting(ctx context.Context, barCode string) (*ResultRecord, error) {
	return r.scanResult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+resultCols+` FROM result_record WHERE bar_code = $1 AND waiting_result ORDER BY updated_at DESC LIMIT 1`,
		barCode))
}

func (r *resultRepoPG) Displayed(ctx context.Context, barCode string) (*ResultRecord, error) {
	return r.scanResult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+resultCols+` FROM result_record WHERE bar_code = $1 AND display_in_result LIMIT 1`,
		barCode))
}

func (r *resultRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*ResultRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ResultRecord
	for rows.Next() {
		rec, err := r.scanResult(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *resultRepoPG) ListByBarcode(ctx context.Context, barCode string) ([]*ResultRecord, error) {
	return r.list(ctx,
		`SELECT `+resultCols+` FROM result_record WHERE bar_code = $1 ORDER BY updated_at ASC`,
		barCode)
}

func (r *resultRepoPG) ListByBarcodes(ctx context.Context, barCodes []string) ([]*ResultRecord, error) {
	return r.list(ctx,
		`SELECT `+resultCols+` FROM result_record WHERE bar_code = ANY($1) ORDER BY bar_code, updated_at ASC`,
		barCodes)
}

func (r *resultRepoPG) ListAwaiting(ctx context.Context, limit, offset int) ([]*ResultRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM result_record WHERE waiting_result`).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.list(ctx,
		`SELECT `+resultCols+` FROM result_record WHERE waiting_result ORDER BY created_at ASC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *resultRepoPG) ClearDisplayed(ctx context.Context, barCode string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE result_record SET display_in_result = FALSE, updated_at = NOW()
		WHERE bar_code = $1 AND display_in_result`, barCode)
	return err
}

func (r *resultRepoPG) MarkDisplayed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE result_record SET display_in_result = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT waiting_result`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return conflictf("record %s is awaiting confirmation or missing", id)
	}
	return nil
}

func (r *resultRepoPG) AssignTestRun(ctx context.Context, barCodes []string, testRunID, labID string) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE result_record SET test_run_id = $2, lab_id = $3, updated_at = NOW()
		WHERE bar_code = ANY($1) AND test_run_id IS NULL`,
		barCodes, testRunID, labID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// PGAtomic runs functions inside a pgx transaction shared through the
// context, giving the display-invariant commit its single-transaction
// guarantee.
type PGAtomic struct{ pool *pgxpool.Pool }

func NewPGAtomic(pool *pgxpool.Pool) *PGAtomic { return &PGAtomic{pool: pool} }

func (a *PGAtomic) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, a.pool, fn)
}
