package promote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"curator/internal/catalog"
	"curator/internal/logging"
	"curator/internal/payload"
	"curator/internal/staging"
	"curator/internal/storage"
)

const (
	defaultStartTime = "00:00"
	defaultEndTime   = "23:59"
)

// Service imports validated staging records into the catalog.
type Service struct {
	shared  *storage.Store
	records *staging.Store
	catalog *catalog.Store
	logger  *slog.Logger
}

// New builds the promotion service over the shared database.
func New(shared *storage.Store, records *staging.Store, cat *catalog.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		shared:  shared,
		records: records,
		catalog: cat,
		logger:  logging.NewComponentLogger(logger, "promote"),
	}
}

// Import promotes one validated record. On success the record becomes
// imported and the new event id is returned. On any failure the transaction
// rolls back and the record reverts to pending with the cause set.
func (s *Service) Import(ctx context.Context, recordID int64, actor string) (int64, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, fmt.Errorf("import record %d: %w", recordID, staging.ErrRecordNotFound)
	}
	if record.Status != staging.StatusValidated {
		return 0, fmt.Errorf("import record %d in status %s: %w", recordID, record.Status, staging.ErrInvalidTransition)
	}

	eventID, importErr := s.importTx(ctx, record, actor)
	if importErr != nil {
		if revertErr := s.records.RevertToPending(ctx, record.ID, importErr.Error()); revertErr != nil {
			s.logger.Error("revert after failed import",
				logging.Int64(logging.FieldRecordID, record.ID),
				logging.Error(revertErr))
		}
		s.logger.Warn("import failed",
			logging.Int64(logging.FieldRecordID, record.ID),
			logging.Error(importErr))
		return 0, importErr
	}

	s.logger.Info("record imported",
		logging.Int64(logging.FieldRecordID, record.ID),
		logging.Int64("event_id", eventID))
	return eventID, nil
}

func (s *Service) importTx(ctx context.Context, record *staging.Record, actor string) (int64, error) {
	candidate, err := record.Payload()
	if err != nil {
		return 0, fmt.Errorf("decode payload: %w", err)
	}

	tx, err := s.shared.Handle().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cat := s.catalog.WithTx(tx)

	// Teacher and practice resolution fails closed: promotion never invents
	// reference data.
	teacher, err := cat.FindTeacherByName(ctx, candidate.Teacher.FirstName, candidate.Teacher.LastName)
	if err != nil {
		return 0, err
	}
	if teacher == nil {
		return 0, fmt.Errorf("teacher %q not found in catalog", candidate.Teacher.FullName())
	}

	practice, err := cat.FindPracticeByName(ctx, candidate.Event.Practice)
	if err != nil {
		return 0, err
	}
	if practice == nil {
		return 0, fmt.Errorf("practice %q not found in catalog", strings.TrimSpace(candidate.Event.Practice))
	}

	var venueID *int64
	if !candidate.Event.IsOnline && candidate.HasVenue() {
		venue, err := cat.FindOrCreateVenue(ctx, catalog.Venue{
			Name:         candidate.Venue.Name,
			AddressLine1: candidate.Venue.AddressLine1,
			AddressLine2: candidate.Venue.AddressLine2,
			PostalCode:   candidate.Venue.PostalCode,
			City:         candidate.Venue.City,
			Country:      candidate.Venue.Country,
		})
		if err != nil {
			return 0, err
		}
		venueID = &venue.ID
	}

	startDate, err := payload.ParseDate(candidate.Event.StartDate)
	if err != nil || startDate.IsZero() {
		return 0, fmt.Errorf("start date %q is not a valid date", candidate.Event.StartDate)
	}
	endDate, err := payload.ParseDate(candidate.Event.EndDate)
	if err != nil || endDate.IsZero() {
		endDate = startDate
	}

	startTime, endTime, err := occurrenceTimes(candidate.Event)
	if err != nil {
		return 0, err
	}

	event, err := cat.CreateEvent(ctx, catalog.Event{
		Title:        candidate.Event.Title,
		Description:  candidate.Event.Description,
		TeacherID:    teacher.ID,
		PracticeID:   practice.ID,
		VenueID:      venueID,
		IsOnline:     candidate.Event.IsOnline,
		OnlineURL:    candidate.Event.OnlineURL,
		PriceNormal:  candidate.Event.PriceNormal,
		PriceReduced: candidate.Event.PriceReduced,
		Currency:     strings.ToUpper(strings.TrimSpace(candidate.Event.Currency)),
		SourceURL:    candidate.Event.SourceURL,
	})
	if err != nil {
		return 0, err
	}

	if _, err := cat.CreateOccurrence(ctx, catalog.Occurrence{
		EventID:       event.ID,
		StartDate:     startDate,
		EndDate:       endDate,
		StartTime:     startTime,
		EndTime:       endTime,
		RecurrenceUID: uuid.NewString(),
	}); err != nil {
		return 0, err
	}

	if err := s.records.MarkImportedTx(ctx, tx, record.ID, event.ID, actor, time.Now().UTC()); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return event.ID, nil
}

func occurrenceTimes(event payload.Event) (string, string, error) {
	startTime := strings.TrimSpace(event.StartTime)
	if startTime == "" {
		startTime = defaultStartTime
	} else if _, err := payload.ParseTime(startTime); err != nil {
		return "", "", fmt.Errorf("start time %q is not a valid time", event.StartTime)
	}
	endTime := strings.TrimSpace(event.EndTime)
	if endTime == "" {
		endTime = defaultEndTime
	} else if _, err := payload.ParseTime(endTime); err != nil {
		return "", "", fmt.Errorf("end time %q is not a valid time", event.EndTime)
	}
	return startTime, endTime, nil
}

// Outcome reports one record's result within a batch import.
type Outcome struct {
	RecordID int64
	EventID  int64
	Err      error
}

// ImportAllValidated promotes every validated record, accumulating per-record
// outcomes. One record's failure never aborts the rest of the batch.
func (s *Service) ImportAllValidated(ctx context.Context, actor string) ([]Outcome, error) {
	records, err := s.records.List(ctx, staging.StatusValidated, 0)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(records))
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		eventID, importErr := s.Import(ctx, record.ID, actor)
		outcomes = append(outcomes, Outcome{RecordID: record.ID, EventID: eventID, Err: importErr})
	}
	return outcomes, nil
}

// Reset is the administrative escape hatch: it deletes any production event
// the record produced and returns the record to pending with review state
// cleared, all in one transaction.
func (s *Service) Reset(ctx context.Context, recordID int64) error {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("reset record %d: %w", recordID, staging.ErrRecordNotFound)
	}

	tx, err := s.shared.Handle().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if record.ProducedEventID != nil {
		if err := s.catalog.WithTx(tx).DeleteEvent(ctx, *record.ProducedEventID); err != nil {
			return err
		}
	}
	if err := s.records.ResetToPendingTx(ctx, tx, record.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}

	s.logger.Info("record reset to pending", logging.Int64(logging.FieldRecordID, record.ID))
	return nil
}
