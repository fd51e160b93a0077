package results

import (
	"context"

	"github.com/google/uuid"
)

// ResultRepository stores result records. Implementations must honor the
// append-only contract: records are created and updated, never deleted.
type ResultRepository interface {
	Create(ctx context.Context, r *ResultRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*ResultRecord, error)
	Update(ctx context.Context, r *ResultRecord) error

	// Latest returns the most recently updated record for barCode, or
	// ErrNotFound.
	Latest(ctx context.Context, barCode string) (*ResultRecord, error)
	// Waiting returns the record currently awaiting confirmation for
	// barCode, or ErrNotFound.
	Waiting(ctx context.Context, barCode string) (*ResultRecord, error)
	ListByBarcode(ctx context.Context, barCode string) ([]*ResultRecord, error)
	ListByBarcodes(ctx context.Context, barCodes []string) ([]*ResultRecord, error)
	ListAwaiting(ctx context.Context, limit, offset int) ([]*ResultRecord, int, error)

	// ClearDisplayed unsets the displayed flag on every record sharing
	// barCode. MarkDisplayed sets it on one record. Both must run inside
	// the transaction carried by ctx when the display invariant is being
	// re-applied.
	ClearDisplayed(ctx context.Context, barCode string) error
	MarkDisplayed(ctx context.Context, id uuid.UUID) error
	// Displayed returns the currently displayed record for barCode, or
	// ErrNotFound.
	Displayed(ctx context.Context, barCode string) (*ResultRecord, error)

	// AssignTestRun stamps the test run and lab onto every unassigned
	// record of the given barcodes, returning how many were stamped.
	AssignTestRun(ctx context.Context, barCodes []string, testRunID, labID string) (int, error)
}

// Atomic runs fn inside one storage transaction; repository calls made with
// the context passed to fn share it.
type Atomic interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
