package staging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"curator/internal/payload"
	"curator/internal/storage"
)

// Store manages staging record persistence backed by the shared database.
type Store struct {
	shared *storage.Store
	db     *sql.DB
}

// NewStore wraps the shared storage handle.
func NewStore(shared *storage.Store) *Store {
	return &Store{shared: shared, db: shared.Handle()}
}

const recordColumns = "id, source_url, scraped_at, payload_json, status, flags_json, validated_by, validated_at, validation_notes, produced_event_id, imported_by, imported_at, last_error, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id              int64
		sourceURL       string
		scrapedRaw      sql.NullString
		payloadJSON     string
		statusStr       string
		flagsJSON       sql.NullString
		validatedBy     sql.NullString
		validatedRaw    sql.NullString
		validationNotes sql.NullString
		producedEventID sql.NullInt64
		importedBy      sql.NullString
		importedRaw     sql.NullString
		lastError       sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&scrapedRaw,
		&payloadJSON,
		&statusStr,
		&flagsJSON,
		&validatedBy,
		&validatedRaw,
		&validationNotes,
		&producedEventID,
		&importedBy,
		&importedRaw,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:              id,
		SourceURL:       sourceURL,
		PayloadJSON:     payloadJSON,
		Status:          Status(statusStr),
		ValidatedBy:     validatedBy.String,
		ValidationNotes: validationNotes.String,
		ImportedBy:      importedBy.String,
		LastError:       lastError.String,
	}

	flags, err := ParseFlags(flagsJSON.String)
	if err != nil {
		return nil, fmt.Errorf("parse flags for record %d: %w", id, err)
	}
	record.Flags = flags

	if producedEventID.Valid {
		value := producedEventID.Int64
		record.ProducedEventID = &value
	}
	if scraped, err := storage.ParseTime(scrapedRaw.String); err == nil {
		record.ScrapedAt = scraped
	}
	if validated, err := storage.ParseTime(validatedRaw.String); err == nil {
		record.ValidatedAt = &validated
	}
	if imported, err := storage.ParseTime(importedRaw.String); err == nil {
		record.ImportedAt = &imported
	}
	if created, err := storage.ParseTime(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := storage.ParseTime(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

// Create inserts one pending record for an extracted candidate occurrence.
func (s *Store) Create(ctx context.Context, sourceURL string, scrapedAt time.Time, candidate payload.Candidate) (*Record, error) {
	encoded, err := candidate.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode candidate: %w", err)
	}

	timestamp := storage.FormatTime(time.Now().UTC())
	res, err := s.shared.Exec(
		ctx,
		`INSERT INTO staging_records (
            source_url, scraped_at, payload_json, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		sourceURL,
		storage.FormatTime(scrapedAt),
		encoded,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert staging record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a record by identifier, returning nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM staging_records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get staging record: %w", err)
	}
	return record, nil
}

// List returns records in a given status, oldest first. A limit <= 0 returns
// everything.
func (s *Store) List(ctx context.Context, status Status, limit int) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM staging_records WHERE status = ? ORDER BY id`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryRecords(ctx, query, args...)
}

// ListBySource returns every record staged from one source URL.
func (s *Store) ListBySource(ctx context.Context, sourceURL string) ([]*Record, error) {
	return s.queryRecords(
		ctx,
		`SELECT `+recordColumns+` FROM staging_records WHERE source_url = ? ORDER BY id`,
		sourceURL,
	)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query staging records: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staging record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staging records: %w", err)
	}
	return records, nil
}

// Summary counts records per status for operator overviews.
func (s *Store) Summary(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM staging_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("summarize staging records: %w", err)
	}
	defer rows.Close()

	summary := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary[Status(statusStr)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return summary, nil
}

// ReplaceFlags stores a freshly computed flag set, discarding any previous
// one. The gate recomputes everything, so stale flags never merge in.
func (s *Store) ReplaceFlags(ctx context.Context, id int64, flags FlagSet) error {
	encoded, err := flags.Encode()
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}
	res, err := s.shared.Exec(
		ctx,
		`UPDATE staging_records SET flags_json = ?, updated_at = ? WHERE id = ?`,
		storage.NullableString(encoded),
		storage.FormatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("replace flags: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("replace flags: %w", ErrRecordNotFound)
	}
	return nil
}
