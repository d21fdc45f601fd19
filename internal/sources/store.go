package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"curator/internal/classify"
	"curator/internal/storage"
)

// ErrSourceNotFound marks operations against a missing source.
var ErrSourceNotFound = errors.New("source not found")

// ErrInvalidSource marks registrations the store refuses to persist.
var ErrInvalidSource = errors.New("invalid source")

// Store manages the source registry backed by the shared database.
type Store struct {
	shared *storage.Store
	db     *sql.DB
}

// NewStore wraps the shared storage handle.
func NewStore(shared *storage.Store) *Store {
	return &Store{shared: shared, db: shared.Handle()}
}

const sourceColumns = "id, url, name, site_type, frequency, owner_first_name, owner_last_name, active, last_run_started_at, last_run_finished_at, last_run_duration_ms, last_run_status, last_run_error, created_at, updated_at"

func scanSource(scanner interface{ Scan(dest ...any) error }) (*Source, error) {
	var (
		id          int64
		rawURL      string
		name        sql.NullString
		siteType    string
		frequency   string
		ownerFirst  sql.NullString
		ownerLast   sql.NullString
		active      int
		startedRaw  sql.NullString
		finishedRaw sql.NullString
		durationMS  sql.NullInt64
		status      sql.NullString
		lastError   sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&rawURL,
		&name,
		&siteType,
		&frequency,
		&ownerFirst,
		&ownerLast,
		&active,
		&startedRaw,
		&finishedRaw,
		&durationMS,
		&status,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	source := &Source{
		ID:             id,
		URL:            rawURL,
		Name:           name.String,
		SiteType:       SiteType(siteType),
		Frequency:      Frequency(frequency),
		OwnerFirstName: ownerFirst.String,
		OwnerLastName:  ownerLast.String,
		Active:         active != 0,
		LastRunStatus:  classify.StatusCode(status.String),
		LastRunError:   lastError.String,
	}
	if durationMS.Valid {
		source.LastRunDuration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if started, err := storage.ParseTime(startedRaw.String); err == nil {
		source.LastRunStartedAt = &started
	}
	if finished, err := storage.ParseTime(finishedRaw.String); err == nil {
		source.LastRunFinishedAt = &finished
	}
	if created, err := storage.ParseTime(createdRaw.String); err == nil {
		source.CreatedAt = created
	}
	if updated, err := storage.ParseTime(updatedRaw.String); err == nil {
		source.UpdatedAt = updated
	}
	return source, nil
}

// Add registers a new scrape source, active by default.
func (s *Store) Add(ctx context.Context, source Source) (*Source, error) {
	trimmed := strings.TrimSpace(source.URL)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: url %q is not absolute", ErrInvalidSource, source.URL)
	}
	if _, ok := ParseSiteType(string(source.SiteType)); !ok {
		return nil, fmt.Errorf("%w: unknown site type %q", ErrInvalidSource, source.SiteType)
	}
	if _, ok := ParseFrequency(string(source.Frequency)); !ok {
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidSource, source.Frequency)
	}

	timestamp := storage.FormatTime(time.Now().UTC())
	res, err := s.shared.Exec(
		ctx,
		`INSERT INTO sources (
            url, name, site_type, frequency, owner_first_name, owner_last_name,
            active, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trimmed,
		storage.NullableString(strings.TrimSpace(source.Name)),
		source.SiteType,
		source.Frequency,
		storage.NullableString(strings.TrimSpace(source.OwnerFirstName)),
		storage.NullableString(strings.TrimSpace(source.OwnerLastName)),
		1,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a source by identifier, returning nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return source, nil
}

// GetByURL fetches a source by its registered URL.
func (s *Store) GetByURL(ctx context.Context, rawURL string) (*Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE url = ?`, strings.TrimSpace(rawURL))
	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source by url: %w", err)
	}
	return source, nil
}

// List returns every registered source, oldest first.
func (s *Store) List(ctx context.Context) ([]*Source, error) {
	return s.querySources(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
}

// ListDue returns active sources on the given schedule frequency.
func (s *Store) ListDue(ctx context.Context, frequency Frequency) ([]*Source, error) {
	return s.querySources(
		ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE active = 1 AND frequency = ? ORDER BY id`,
		frequency,
	)
}

func (s *Store) querySources(ctx context.Context, query string, args ...any) ([]*Source, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	result := []*Source{}
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		result = append(result, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return result, nil
}

// SetActive enables or disables a source.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.shared.Exec(
		ctx,
		`UPDATE sources SET active = ?, updated_at = ? WHERE id = ?`,
		storage.BoolToInt(active),
		storage.FormatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set source active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set source %d active: %w", id, ErrSourceNotFound)
	}
	return nil
}

// RecordRunStart stamps a run start and clears the previous outcome so an
// interrupted run never masquerades as its predecessor's result.
func (s *Store) RecordRunStart(ctx context.Context, id int64, startedAt time.Time) error {
	res, err := s.shared.Exec(
		ctx,
		`UPDATE sources
         SET last_run_started_at = ?, last_run_finished_at = NULL,
             last_run_duration_ms = NULL, last_run_status = NULL,
             last_run_error = NULL, updated_at = ?
         WHERE id = ?`,
		storage.FormatTime(startedAt),
		storage.FormatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record run start for source %d: %w", id, ErrSourceNotFound)
	}
	return nil
}

// RecordRunResult persists the final outcome of a run. Every run ends here,
// successful or not, so operators can always tell how the last run went.
func (s *Store) RecordRunResult(ctx context.Context, id int64, finishedAt time.Time, duration time.Duration, status classify.StatusCode, detail string) error {
	res, err := s.shared.Exec(
		ctx,
		`UPDATE sources
         SET last_run_finished_at = ?, last_run_duration_ms = ?,
             last_run_status = ?, last_run_error = ?, updated_at = ?
         WHERE id = ?`,
		storage.FormatTime(finishedAt),
		duration.Milliseconds(),
		string(status),
		storage.NullableString(strings.TrimSpace(detail)),
		storage.FormatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("record run result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record run result for source %d: %w", id, ErrSourceNotFound)
	}
	return nil
}
