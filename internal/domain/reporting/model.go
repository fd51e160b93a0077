// Package reporting runs bulk report jobs: a batch of result submissions is
// accepted as one job whose items are processed and retried independently.
package reporting

import (
	"time"

	"github.com/google/uuid"

	"github.com/lablink/lablink/internal/domain/results"
)

// Item processing states. An item starts in StatusRequestReceived and ends
// in StatusSuccessfullyReported or StatusFailed; transient infrastructure
// errors leave it retryable in its previous state.
const (
	StatusRequestReceived      = "RequestReceived"
	StatusProcessing           = "Processing"
	StatusFailed               = "Failed"
	StatusSuccessfullyReported = "SuccessfullyReported"
)

// Job is one accepted bulk report request.
type Job struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ItemPayload is the per-specimen submission carried by a job item.
type ItemPayload struct {
	BarCode   string                `json:"bar_code"`
	Payload   results.ResultPayload `json:"payload"`
	Confirmed bool                  `json:"confirmed"`
	Notify    bool                  `json:"notify"`
}

// Item is one specimen's slot in a job. Items keep their own status so a
// partially failed job can be retried item by item.
type Item struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	JobID     uuid.UUID   `db:"job_id" json:"job_id"`
	Position  int         `db:"position" json:"position"`
	Payload   ItemPayload `db:"payload" json:"payload"`
	Status    string      `db:"status" json:"status"`
	Details   *string     `db:"details" json:"details,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// Summary tallies a job's items by outcome.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

// JobStatus is the job, its items and the tally, as reported to callers.
type JobStatus struct {
	Job     *Job    `json:"job"`
	Items   []*Item `json:"items"`
	Summary Summary `json:"summary"`
}

// Summarize tallies items by status.
func Summarize(items []*Item) Summary {
	s := Summary{Total: len(items)}
	for _, it := range items {
		switch it.Status {
		case StatusSuccessfullyReported:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	return s
}
