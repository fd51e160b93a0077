// Package scheduling talks to the external scheduling provider that owns
// appointments. The result engine resolves barcodes to appointments here and
// writes back the denormalized latest-result fields, but never owns the
// appointment record.
package scheduling

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by the scheduling provider.
var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrProviderUnavailable = errors.New("scheduling provider unavailable")
)

// Appointment status values as the provider understands them.
const (
	StatusPending          = "Pending"
	StatusSubmitted        = "Submitted"
	StatusInProgress       = "InProgress"
	StatusReported         = "Reported"
	StatusReRunRequired    = "ReRunRequired"
	StatusReSampleRequired = "ReSampleRequired"
	StatusCanceled         = "Canceled"
)

// Appointment is the provider's view of a booked diagnostic test.
type Appointment struct {
	ID             string    `json:"id"`
	BarCode        string    `json:"bar_code"`
	PatientName    string    `json:"patient_name"`
	CollectionTime time.Time `json:"collection_time"`
	Status         string    `json:"status"`
	LatestResult   string    `json:"latest_result,omitempty"`
}

// Provider is the scheduling collaborator consumed by the result engine.
type Provider interface {
	AppointmentByBarcode(ctx context.Context, barCode string) (*Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID string) error
	// UpdateResult writes the denormalized latest result and status back to
	// the appointment.
	UpdateResult(ctx context.Context, appointmentID, latestResult, status string) error
}

// terminal pre-Reported states cannot be canceled
var cancelableStatuses = map[string]bool{
	StatusPending:          true,
	StatusSubmitted:        true,
	StatusInProgress:       true,
	StatusReRunRequired:    true,
	StatusReSampleRequired: true,
}

// Cancelable reports whether an appointment in the given status may still be
// canceled.
func Cancelable(status string) bool {
	return cancelableStatuses[status]
}
