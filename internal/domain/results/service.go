package results

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lablink/lablink/internal/platform/notification"
	"github.com/lablink/lablink/internal/platform/scheduling"
	"github.com/lablink/lablink/internal/platform/sequence"
)

// barcodeChunkSize mirrors the document-store "in" clause cap the original
// backend imposed; history lookups never query more than this many barcodes
// at once.
const barcodeChunkSize = 10

// Service orchestrates the result lifecycle: recording, confirmation,
// re-run/re-sample chains and the single-displayed-result invariant.
type Service struct {
	repo           ResultRepository
	atomic         Atomic
	seq            sequence.Source
	provider       scheduling.Provider
	notifier       notification.Notifier
	logger         zerolog.Logger
	controlCtLimit float64
}

func NewService(repo ResultRepository, atomic Atomic, seq sequence.Source,
	provider scheduling.Provider, notifier notification.Notifier,
	logger zerolog.Logger, controlCtLimit float64) *Service {
	if controlCtLimit <= 0 {
		controlCtLimit = DefaultControlCtLimit
	}
	return &Service{
		repo:           repo,
		atomic:         atomic,
		seq:            seq,
		provider:       provider,
		notifier:       notifier,
		logger:         logger,
		controlCtLimit: controlCtLimit,
	}
}

// RecordResult records one lab-processing attempt for the specimen
// identified by barCode. When a record already exists for the barcode the
// new one becomes the next link of the re-run/re-sample chain. confirmed
// callers finalize provisional classifications immediately; otherwise
// provisional results are parked awaiting confirmation.
func (s *Service) RecordResult(ctx context.Context, barCode string, payload ResultPayload,
	adminID string, confirmed, notifyOnUpdate bool) (*ResultRecord, error) {

	appt, err := s.provider.AppointmentByBarcode(ctx, barCode)
	if err != nil {
		if errors.Is(err, scheduling.ErrAppointmentNotFound) {
			return nil, notFoundf("appointment for barcode %s", barCode)
		}
		return nil, err
	}

	payload.Upgrade()
	if err := ValidatePayload(payload, s.controlCtLimit); err != nil {
		return nil, err
	}

	result := Classify(payload.Analysis)
	waiting := result.Provisional()
	if waiting && confirmed {
		// an interactive admin vouched for the provisional classification
		result = ResultPositive
		waiting = false
	}

	rec := &ResultRecord{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		BarCode:       barCode,
		Result:        result,
		ResultAnalysis: payload.Analysis,
		ResultMetaData: ResultMetaData{
			SchemaVersion: CurrentSchemaVersion,
			Action:        payload.Action,
			AutoResult:    !confirmed,
			Notify:        payload.Notify,
			ResultDate:    payload.ResultDate,
			Comment:       payload.Comment,
		},
		RunNumber:      1,
		ReSampleNumber: 1,
		LinkedBarCodes: []string{},
		WaitingResult:  waiting,
		Deadline:       PromiseDeadline(appt.CollectionTime),
	}

	pred, err := s.repo.Latest(ctx, barCode)
	switch {
	case err == nil:
		if payload.ReSample {
			rec.ReSampleNumber = pred.ReSampleNumber + 1
		} else {
			rec.RunNumber = pred.RunNumber + 1
			rec.ReSampleNumber = pred.ReSampleNumber
		}
		rec.LinkedBarCodes = append(append([]string{}, pred.LinkedBarCodes...), pred.ID.String())
	case errors.Is(err, ErrNotFound):
		// first record for this specimen
	default:
		return nil, err
	}

	// persist and re-apply the display invariant in one transaction
	err = s.atomic.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, rec); err != nil {
			return err
		}
		if rec.WaitingResult {
			return nil
		}
		if err := s.repo.ClearDisplayed(txCtx, barCode); err != nil {
			return err
		}
		rec.DisplayInResult = true
		return s.repo.MarkDisplayed(txCtx, rec.ID)
	})
	if err != nil {
		return nil, err
	}

	s.writeBack(ctx, appt.ID, rec)
	if payload.Action == ActionReSample {
		// the slot is spent; the patient rebooks for a fresh specimen
		if err := s.provider.CancelAppointment(ctx, appt.ID); err != nil {
			s.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("cancel for re-sample failed")
		}
	}
	if notifyOnUpdate {
		s.notify(ctx, notification.KindResultRecorded, appt.ID, rec)
	}

	s.logger.Info().
		Str("bar_code", barCode).
		Str("result", string(rec.Result)).
		Bool("waiting", rec.WaitingResult).
		Int("run_number", rec.RunNumber).
		Str("admin_id", adminID).
		Msg("result recorded")

	return rec, nil
}

// ConfirmResult finalizes the record currently awaiting confirmation for
// barCode. byPassValidation lets trusted internal callers skip the
// interactive-admin checks.
func (s *Service) ConfirmResult(ctx context.Context, barCode, action, adminID string,
	byPassValidation bool) (uuid.UUID, error) {

	final, ok := Finalize(action)
	if !ok {
		return uuid.Nil, badRequestf("unknown confirmation action %q", action)
	}

	rec, err := s.repo.Waiting(ctx, barCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, conflictf("no result awaiting confirmation for barcode %s", barCode)
		}
		return uuid.Nil, err
	}

	if !byPassValidation && final == ResultNegative && rec.ResultMetaData.Comment == nil {
		return uuid.Nil, badRequestf("downgrading %s to negative requires a comment", rec.Result)
	}

	err = s.atomic.InTx(ctx, func(txCtx context.Context) error {
		rec.Result = final
		rec.WaitingResult = false
		rec.ResultMetaData.ResultDate = time.Now().UTC()
		if err := s.repo.Update(txCtx, rec); err != nil {
			return err
		}
		if err := s.repo.ClearDisplayed(txCtx, barCode); err != nil {
			return err
		}
		rec.DisplayInResult = true
		return s.repo.MarkDisplayed(txCtx, rec.ID)
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.writeBack(ctx, rec.AppointmentID, rec)
	s.notify(ctx, notification.KindResultConfirmed, rec.AppointmentID, rec)

	s.logger.Info().
		Str("bar_code", barCode).
		Str("result", string(rec.Result)).
		Str("admin_id", adminID).
		Bool("bypass", byPassValidation).
		Msg("result confirmed")

	return rec.ID, nil
}

// HistoryByBarcodes returns, per barcode, the full linked chain ordered by
// update time. A record still awaiting confirmation is excluded unless it
// is the only record for its barcode.
func (s *Service) HistoryByBarcodes(ctx context.Context, barCodes []string) (map[string][]*ResultRecord, error) {
	seen := make(map[string]bool, len(barCodes))
	unique := make([]string, 0, len(barCodes))
	for _, bc := range barCodes {
		if !seen[bc] {
			seen[bc] = true
			unique = append(unique, bc)
		}
	}

	out := make(map[string][]*ResultRecord, len(unique))
	for start := 0; start < len(unique); start += barcodeChunkSize {
		end := start + barcodeChunkSize
		if end > len(unique) {
			end = len(unique)
		}
		records, err := s.repo.ListByBarcodes(ctx, unique[start:end])
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			out[rec.BarCode] = append(out[rec.BarCode], rec)
		}
	}
	for barCode, chain := range out {
		sort.Slice(chain, func(i, j int) bool {
			return chain[i].UpdatedAt.Before(chain[j].UpdatedAt)
		})
		if len(chain) > 1 {
			filtered := chain[:0]
			for _, rec := range chain {
				if !rec.WaitingResult {
					filtered = append(filtered, rec)
				}
			}
			out[barCode] = filtered
		}
	}
	return out, nil
}

// ListAwaitingConfirmation pages through records parked for confirmation.
func (s *Service) ListAwaitingConfirmation(ctx context.Context, limit, offset int) ([]*ResultRecord, int, error) {
	return s.repo.ListAwaiting(ctx, limit, offset)
}

// NewBarcode issues an opaque specimen barcode.
func (s *Service) NewBarcode(ctx context.Context) (string, error) {
	return s.seq.UniqueValue(ctx, sequence.NameStatus)
}

// NewTransportRunID issues a short human-referenceable transport run id.
func (s *Service) NewTransportRunID(ctx context.Context) (string, error) {
	id, err := s.seq.UniqueID(ctx, sequence.NameTransportRun)
	if err != nil {
		return "", err
	}
	return "R" + id, nil
}

// CreateTestRun issues a test run id and stamps it, with the lab, onto the
// unassigned records of the given barcodes.
func (s *Service) CreateTestRun(ctx context.Context, barCodes []string, labID string) (string, int, error) {
	if len(barCodes) == 0 {
		return "", 0, badRequestf("at least one barcode is required")
	}
	id, err := s.seq.UniqueID(ctx, sequence.NameTestRun)
	if err != nil {
		return "", 0, err
	}
	testRunID := "T" + id
	count, err := s.repo.AssignTestRun(ctx, barCodes, testRunID, labID)
	if err != nil {
		return "", 0, err
	}
	return testRunID, count, nil
}

// writeBack pushes the denormalized latest result onto the appointment.
// The appointment is owned by the scheduling provider; a failed write-back
// is logged and never unwinds the recorded result.
func (s *Service) writeBack(ctx context.Context, appointmentID string, rec *ResultRecord) {
	status := scheduling.StatusReported
	switch {
	case rec.WaitingResult:
		status = scheduling.StatusInProgress
	case rec.ResultMetaData.Action == ActionReRun:
		status = scheduling.StatusReRunRequired
	case rec.ResultMetaData.Action == ActionReSample:
		status = scheduling.StatusReSampleRequired
	}
	if err := s.provider.UpdateResult(ctx, appointmentID, string(rec.Result), status); err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", appointmentID).
			Str("bar_code", rec.BarCode).
			Msg("appointment write-back failed")
	}
}

func (s *Service) notify(ctx context.Context, kind, appointmentID string, rec *ResultRecord) {
	evt := notification.NewEvent(kind, appointmentID, rec.BarCode, string(rec.Result))
	if err := s.notifier.Notify(ctx, evt); err != nil {
		s.logger.Warn().Err(err).
			Str("bar_code", rec.BarCode).
			Str("kind", kind).
			Msg("notification failed")
	}
}
