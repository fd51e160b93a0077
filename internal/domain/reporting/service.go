package reporting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/lablink/lablink/internal/domain/results"
)

// ResultRecorder is the slice of the result engine the report processor
// drives. Satisfied by results.Service.
type ResultRecorder interface {
	RecordResult(ctx context.Context, barCode string, payload results.ResultPayload,
		adminID string, confirmed, notifyOnUpdate bool) (*results.ResultRecord, error)
}

type Service struct {
	repo     JobRepository
	recorder ResultRecorder
	logger   zerolog.Logger
}

func NewService(repo JobRepository, recorder ResultRecorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, logger: logger}
}

// CreateReport accepts a batch of result submissions as one job. Every item
// starts in RequestReceived; nothing is processed yet.
func (s *Service) CreateReport(ctx context.Context, payloads []ItemPayload, createdBy string) (*JobStatus, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: report needs at least one item", results.ErrBadRequest)
	}
	items := make([]*Item, 0, len(payloads))
	for i, p := range payloads {
		if p.BarCode == "" {
			return nil, fmt.Errorf("%w: item %d missing barcode", results.ErrBadRequest, i)
		}
		items = append(items, &Item{Position: i, Payload: p})
	}

	job := &Job{CreatedBy: createdBy}
	if err := s.repo.CreateJob(ctx, job, items); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job_id", job.ID.String()).
		Int("items", len(items)).
		Str("created_by", createdBy).
		Msg("report job accepted")

	return &JobStatus{Job: job, Items: items, Summary: Summarize(items)}, nil
}

// ProcessItem runs one item through the result engine. Processing is
// idempotent: an already reported item is returned untouched. A validation
// or state error marks the item Failed; an infrastructure error restores
// the item's previous status so it can be retried.
func (s *Service) ProcessItem(ctx context.Context, jobID, itemID uuid.UUID) (*Item, error) {
	item, err := s.repo.GetItem(ctx, jobID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == StatusSuccessfullyReported {
		return item, nil
	}
	prev := item.Status

	if err := s.setStatus(ctx, item, StatusProcessing, nil); err != nil {
		return nil, err
	}

	operator := "report-job:" + jobID.String()
	rec, err := s.recorder.RecordResult(ctx, item.Payload.BarCode, item.Payload.Payload,
		operator, item.Payload.Confirmed, item.Payload.Notify)
	if err != nil {
		if results.Permanent(err) {
			msg := err.Error()
			if err := s.setStatus(ctx, item, StatusFailed, &msg); err != nil {
				return nil, err
			}
			s.logger.Warn().
				Str("job_id", jobID.String()).
				Str("item_id", itemID.String()).
				Str("bar_code", item.Payload.BarCode).
				Str("details", msg).
				Msg("report item failed")
			return item, nil
		}
		// transient: roll the status back so a retry can pick it up
		if rbErr := s.setStatus(ctx, item, prev, item.Details); rbErr != nil {
			err = multierror.Append(err, rbErr)
		}
		return nil, err
	}

	details := "result " + rec.ID.String()
	if err := s.setStatus(ctx, item, StatusSuccessfullyReported, &details); err != nil {
		return nil, err
	}
	return item, nil
}

// ProcessJob drives every unfinished item of a job once. Items that fail
// permanently are recorded on the item itself; transient errors are
// collected and returned alongside the resulting status.
func (s *Service) ProcessJob(ctx context.Context, jobID uuid.UUID) (*JobStatus, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var transient *multierror.Error
	for i, it := range items {
		processed, err := s.ProcessItem(ctx, jobID, it.ID)
		if err != nil {
			transient = multierror.Append(transient, fmt.Errorf("item %d: %w", it.Position, err))
			continue
		}
		items[i] = processed
	}

	status := &JobStatus{Job: job, Items: items, Summary: Summarize(items)}
	return status, transient.ErrorOrNil()
}

// Status reports a job with its items and tally.
func (s *Service) Status(ctx context.Context, jobID uuid.UUID) (*JobStatus, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &JobStatus{Job: job, Items: items, Summary: Summarize(items)}, nil
}

func (s *Service) setStatus(ctx context.Context, item *Item, status string, details *string) error {
	if err := s.repo.SetItemStatus(ctx, item.ID, status, details); err != nil {
		return err
	}
	item.Status = status
	item.Details = details
	return nil
}
