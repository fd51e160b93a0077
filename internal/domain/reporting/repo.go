package reporting

import (
	"context"

	"github.com/google/uuid"
)

// JobRepository stores report jobs and their items.
type JobRepository interface {
	// CreateJob persists the job and all its items in one transaction.
	CreateJob(ctx context.Context, job *Job, items []*Item) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)
	ListItems(ctx context.Context, jobID uuid.UUID) ([]*Item, error)
	GetItem(ctx context.Context, jobID, itemID uuid.UUID) (*Item, error)
	// SetItemStatus advances one item's status, replacing its details.
	SetItemStatus(ctx context.Context, itemID uuid.UUID, status string, details *string) error
}
