package results

import (
	"time"

	"github.com/google/uuid"
)

// Result classifies one lab-processing attempt for a specimen.
type Result string

const (
	ResultPending             Result = "Pending"
	ResultPositive            Result = "Positive"
	ResultNegative            Result = "Negative"
	ResultInconclusive        Result = "Inconclusive"
	ResultIndeterminate       Result = "Indeterminate"
	ResultPresumptivePositive Result = "PresumptivePositive"
	ResultPreliminaryPositive Result = "PreliminaryPositive"
)

var validResults = map[Result]bool{
	ResultPending: true, ResultPositive: true, ResultNegative: true,
	ResultInconclusive: true, ResultIndeterminate: true,
	ResultPresumptivePositive: true, ResultPreliminaryPositive: true,
}

// Provisional reports whether r requires an explicit confirmation step
// before it may be displayed.
func (r Result) Provisional() bool {
	return r == ResultPresumptivePositive || r == ResultPreliminaryPositive
}

// Valid reports whether r is a known classification.
func (r Result) Valid() bool { return validResults[r] }

// Follow-up actions the lab can attach to a result.
const (
	ActionNone     = ""
	ActionReRun    = "reRun"
	ActionReSample = "reSample"
)

// AnalysisEntry is one raw instrument channel reading.
type AnalysisEntry struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ResultMetaData carries the lab's annotations for a result. SchemaVersion
// distinguishes payload generations; version 0 documents predate the tag and
// are upgraded on read.
type ResultMetaData struct {
	SchemaVersion int       `json:"schema_version"`
	Action        string    `json:"action,omitempty"` // "", reRun, reSample
	AutoResult    bool      `json:"auto_result"`
	Notify        bool      `json:"notify"`
	ResultDate    time.Time `json:"result_date"`
	Comment       *string   `json:"comment,omitempty"`
}

// ResultRecord is one lab-processing attempt's outcome for a specimen
// barcode. Records are append-only: a re-run or re-sample creates a new
// record linked to its predecessor, and nothing is ever physically deleted.
type ResultRecord struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	AppointmentID   string          `db:"appointment_id" json:"appointment_id"`
	BarCode         string          `db:"bar_code" json:"bar_code"`
	Result          Result          `db:"result" json:"result"`
	ResultAnalysis  []AnalysisEntry `db:"result_analysis" json:"result_analysis"`
	ResultMetaData  ResultMetaData  `db:"result_metadata" json:"result_metadata"`
	RunNumber       int             `db:"run_number" json:"run_number"`
	ReSampleNumber  int             `db:"re_sample_number" json:"re_sample_number"`
	LinkedBarCodes  []string        `db:"linked_bar_codes" json:"linked_bar_codes"`
	WaitingResult   bool            `db:"waiting_result" json:"waiting_result"`
	DisplayInResult bool            `db:"display_in_result" json:"display_in_result"`
	TestRunID       *string         `db:"test_run_id" json:"test_run_id,omitempty"`
	LabID           *string         `db:"lab_id" json:"lab_id,omitempty"`
	Deadline        time.Time       `db:"deadline" json:"deadline"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Finalized reports whether the record has left AwaitingConfirmation.
func (r *ResultRecord) Finalized() bool { return !r.WaitingResult }

// ResultPayload is what a caller submits to record a result. SchemaVersion 0
// payloads (from older integrations) are upgraded before validation.
type ResultPayload struct {
	SchemaVersion int             `json:"schema_version"`
	Analysis      []AnalysisEntry `json:"analysis"`
	Action        string          `json:"action,omitempty"`
	ReSample      bool            `json:"re_sample,omitempty"`
	Notify        bool            `json:"notify"`
	Comment       *string         `json:"comment,omitempty"`
	ResultDate    time.Time       `json:"result_date"`
}

// CurrentSchemaVersion is the payload generation this engine writes.
const CurrentSchemaVersion = 1

// Upgrade normalizes older payload generations in place.
func (p *ResultPayload) Upgrade() {
	if p.SchemaVersion == 0 {
		// v0 senders predate the result_date field and the explicit tag
		if p.ResultDate.IsZero() {
			p.ResultDate = time.Now().UTC()
		}
		p.SchemaVersion = CurrentSchemaVersion
	}
	// action and the re_sample flag are two spellings of the same request;
	// senders use either, so keep them in lockstep before anything branches
	if p.Action == ActionReSample {
		p.ReSample = true
	} else if p.ReSample {
		p.Action = ActionReSample
	}
}
