package staging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"curator/internal/storage"
)

var (
	// ErrRecordNotFound marks operations against a missing record.
	ErrRecordNotFound = errors.New("staging record not found")
	// ErrInvalidTransition marks a lifecycle move the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrCriticalFlags refuses validation while blocking flags are present.
	ErrCriticalFlags = errors.New("record has blocking quality flags")
	// ErrNotesRequired refuses a rejection without an explanation.
	ErrNotesRequired = errors.New("rejection requires notes")
)

// Validate moves a pending record to validated. Records carrying
// error-severity flags are refused unless force is set.
func (s *Store) Validate(ctx context.Context, id int64, actor, notes string, force bool) (*Record, error) {
	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("validate record %d: %w", id, ErrRecordNotFound)
	}
	if record.Status != StatusPending {
		return nil, fmt.Errorf("validate record %d in status %s: %w", id, record.Status, ErrInvalidTransition)
	}
	if record.IsBlocked() && !force {
		return nil, fmt.Errorf("validate record %d: %w", id, ErrCriticalFlags)
	}

	now := storage.FormatTime(time.Now().UTC())
	res, err := s.shared.Exec(
		ctx,
		`UPDATE staging_records
         SET status = ?, validated_by = ?, validated_at = ?, validation_notes = ?,
             last_error = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusValidated,
		actor,
		now,
		storage.NullableString(strings.TrimSpace(notes)),
		now,
		id,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("validate record: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return nil, fmt.Errorf("validate record %d: %w", id, ErrInvalidTransition)
	}
	return s.GetByID(ctx, id)
}

// Reject moves a pending record to rejected. Notes are mandatory so the
// decision stays auditable.
func (s *Store) Reject(ctx context.Context, id int64, actor, notes string) (*Record, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("reject record %d: %w", id, ErrNotesRequired)
	}

	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("reject record %d: %w", id, ErrRecordNotFound)
	}
	if record.Status != StatusPending {
		return nil, fmt.Errorf("reject record %d in status %s: %w", id, record.Status, ErrInvalidTransition)
	}

	now := storage.FormatTime(time.Now().UTC())
	res, err := s.shared.Exec(
		ctx,
		`UPDATE staging_records
         SET status = ?, validated_by = ?, validated_at = ?, validation_notes = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusRejected,
		actor,
		now,
		strings.TrimSpace(notes),
		now,
		id,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("reject record: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return nil, fmt.Errorf("reject record %d: %w", id, ErrInvalidTransition)
	}
	return s.GetByID(ctx, id)
}

// MarkImportedTx flips a validated record to imported inside the promotion
// transaction. The status condition is what makes import exactly-once: a
// second attempt finds no validated row and fails cleanly.
func (s *Store) MarkImportedTx(ctx context.Context, tx *sql.Tx, id, eventID int64, actor string, at time.Time) error {
	res, err := tx.ExecContext(
		ctx,
		`UPDATE staging_records
         SET status = ?, produced_event_id = ?, imported_by = ?, imported_at = ?,
             last_error = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusImported,
		eventID,
		actor,
		storage.FormatTime(at),
		storage.FormatTime(at),
		id,
		StatusValidated,
	)
	if err != nil {
		return fmt.Errorf("mark imported: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark record %d imported: %w", id, ErrInvalidTransition)
	}
	return nil
}

// RevertToPending returns a validated record to pending after a failed
// import, recording the cause so the failure is visible and re-attemptable.
func (s *Store) RevertToPending(ctx context.Context, id int64, cause string) error {
	now := storage.FormatTime(time.Now().UTC())
	res, err := s.shared.Exec(
		ctx,
		`UPDATE staging_records
         SET status = ?, last_error = ?, produced_event_id = NULL,
             imported_by = NULL, imported_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		strings.TrimSpace(cause),
		now,
		id,
		StatusValidated,
	)
	if err != nil {
		return fmt.Errorf("revert record to pending: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return fmt.Errorf("revert record %d: %w", id, ErrInvalidTransition)
	}
	return nil
}

// ResetToPendingTx clears validation and import state from any status. Runs
// inside the administrative reset transaction alongside production event
// deletion.
func (s *Store) ResetToPendingTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(
		ctx,
		`UPDATE staging_records
         SET status = ?, validated_by = NULL, validated_at = NULL, validation_notes = NULL,
             produced_event_id = NULL, imported_by = NULL, imported_at = NULL,
             last_error = NULL, updated_at = ?
         WHERE id = ?`,
		StatusPending,
		storage.FormatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("reset record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reset record %d: %w", id, ErrRecordNotFound)
	}
	return nil
}
