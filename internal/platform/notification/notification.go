// Package notification delivers result notifications to patients and staff.
// Deliveries are fire-and-forget: the result engine calls a Notifier after a
// successful state transition and a failed delivery is logged, never
// propagated back into the transaction.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event carries what happened to a result, for rendering downstream.
type Event struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"` // "result_recorded" or "result_confirmed"
	AppointmentID string    `json:"appointment_id"`
	BarCode       string    `json:"bar_code"`
	Result        string    `json:"result"`
	OccurredAt    time.Time `json:"occurred_at"`
}

const (
	KindResultRecorded  = "result_recorded"
	KindResultConfirmed = "result_confirmed"
)

// Notifier is the outbound notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// NewEvent stamps an Event with an ID and timestamp.
func NewEvent(kind, appointmentID, barCode, result string) Event {
	return Event{
		ID:            uuid.New().String(),
		Kind:          kind,
		AppointmentID: appointmentID,
		BarCode:       barCode,
		Result:        result,
		OccurredAt:    time.Now().UTC(),
	}
}

// LogNotifier writes events to the structured log. It is the default sink
// when no rendering collaborator is wired in.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, evt Event) error {
	n.logger.Info().
		Str("event_id", evt.ID).
		Str("kind", evt.Kind).
		Str("appointment_id", evt.AppointmentID).
		Str("bar_code", evt.BarCode).
		Str("result", evt.Result).
		Msg("result notification")
	return nil
}

// Memory records events in process, for tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
	fail   error
}

func NewMemory() *Memory { return &Memory{} }

// FailWith makes every subsequent Notify return err.
func (n *Memory) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = err
}

func (n *Memory) Notify(_ context.Context, evt Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.events = append(n.events, evt)
	return nil
}

// Events returns a copy of everything recorded so far.
func (n *Memory) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Event, len(n.events))
	copy(out, n.events)
	return out
}
