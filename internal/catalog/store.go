package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"curator/internal/payload"
	"curator/internal/storage"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store reads and writes production entities.
type Store struct {
	q querier
}

// NewStore wraps the shared storage handle.
func NewStore(shared *storage.Store) *Store {
	return &Store{q: shared.Handle()}
}

// WithTx returns a view of the store scoped to an open transaction.
func (s *Store) WithTx(tx *sql.Tx) *Store {
	return &Store{q: tx}
}

// FindTeacherByName resolves a teacher by exact first and last name.
// Returns nil when there is no match.
func (s *Store) FindTeacherByName(ctx context.Context, firstName, lastName string) (*Teacher, error) {
	row := s.q.QueryRowContext(
		ctx,
		`SELECT id, first_name, last_name, created_at FROM teachers WHERE first_name = ? AND last_name = ?`,
		strings.TrimSpace(firstName),
		strings.TrimSpace(lastName),
	)
	teacher, err := scanTeacher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return teacher, nil
}

// CreateTeacher registers a teacher. Promotion never calls this; it exists
// for seeding and administration.
func (s *Store) CreateTeacher(ctx context.Context, firstName, lastName string) (*Teacher, error) {
	res, err := s.q.ExecContext(
		ctx,
		`INSERT INTO teachers (first_name, last_name, created_at) VALUES (?, ?, ?)`,
		strings.TrimSpace(firstName),
		strings.TrimSpace(lastName),
		storage.FormatTime(time.Now().UTC()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert teacher: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Teacher{ID: id, FirstName: strings.TrimSpace(firstName), LastName: strings.TrimSpace(lastName)}, nil
}

// FindPracticeByName resolves a practice case-insensitively. Returns nil
// when there is no match.
func (s *Store) FindPracticeByName(ctx context.Context, name string) (*Practice, error) {
	row := s.q.QueryRowContext(
		ctx,
		`SELECT id, name, created_at FROM practices WHERE name = ? COLLATE NOCASE`,
		strings.TrimSpace(name),
	)
	practice, err := scanPractice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find practice: %w", err)
	}
	return practice, nil
}

// CreatePractice registers a practice for seeding and administration.
func (s *Store) CreatePractice(ctx context.Context, name string) (*Practice, error) {
	res, err := s.q.ExecContext(
		ctx,
		`INSERT INTO practices (name, created_at) VALUES (?, ?)`,
		strings.TrimSpace(name),
		storage.FormatTime(time.Now().UTC()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert practice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Practice{ID: id, Name: strings.TrimSpace(name)}, nil
}

// FindOrCreateVenue resolves a venue by name, city, and postal code,
// creating it when absent.
func (s *Store) FindOrCreateVenue(ctx context.Context, venue Venue) (*Venue, error) {
	row := s.q.QueryRowContext(
		ctx,
		`SELECT id, name, address_line1, address_line2, postal_code, city, country, created_at
         FROM venues WHERE name = ? AND city IS ? AND postal_code IS ?`,
		strings.TrimSpace(venue.Name),
		storage.NullableString(strings.TrimSpace(venue.City)),
		storage.NullableString(strings.TrimSpace(venue.PostalCode)),
	)
	existing, err := scanVenue(row)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find venue: %w", err)
	}

	res, err := s.q.ExecContext(
		ctx,
		`INSERT INTO venues (name, address_line1, address_line2, postal_code, city, country, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(venue.Name),
		storage.NullableString(strings.TrimSpace(venue.AddressLine1)),
		storage.NullableString(strings.TrimSpace(venue.AddressLine2)),
		storage.NullableString(strings.TrimSpace(venue.PostalCode)),
		storage.NullableString(strings.TrimSpace(venue.City)),
		storage.NullableString(strings.TrimSpace(venue.Country)),
		storage.FormatTime(time.Now().UTC()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert venue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	created := venue
	created.ID = id
	return &created, nil
}

// CreateEvent inserts a production event.
func (s *Store) CreateEvent(ctx context.Context, event Event) (*Event, error) {
	timestamp := storage.FormatTime(time.Now().UTC())
	res, err := s.q.ExecContext(
		ctx,
		`INSERT INTO events (
            title, description, teacher_id, practice_id, venue_id, is_online,
            online_url, price_normal, price_reduced, currency, source_url,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(event.Title),
		storage.NullableString(strings.TrimSpace(event.Description)),
		event.TeacherID,
		event.PracticeID,
		storage.NullableInt64(event.VenueID),
		storage.BoolToInt(event.IsOnline),
		storage.NullableString(strings.TrimSpace(event.OnlineURL)),
		storage.NullableFloat(event.PriceNormal),
		storage.NullableFloat(event.PriceReduced),
		storage.NullableString(strings.TrimSpace(event.Currency)),
		storage.NullableString(strings.TrimSpace(event.SourceURL)),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	created := event
	created.ID = id
	return &created, nil
}

// CreateOccurrence inserts one concrete date for an event. A missing
// recurrence UID gets a generated one so every occurrence can be traced to
// its staging origin.
func (s *Store) CreateOccurrence(ctx context.Context, occ Occurrence) (*Occurrence, error) {
	if strings.TrimSpace(occ.RecurrenceUID) == "" {
		occ.RecurrenceUID = uuid.NewString()
	}
	res, err := s.q.ExecContext(
		ctx,
		`INSERT INTO event_occurrences (
            event_id, start_date, end_date, start_time, end_time, recurrence_uid, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		occ.EventID,
		occ.StartDate.Format(payload.DateLayout),
		occ.EndDate.Format(payload.DateLayout),
		occ.StartTime,
		occ.EndTime,
		occ.RecurrenceUID,
		storage.FormatTime(time.Now().UTC()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert occurrence: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	created := occ
	created.ID = id
	return &created, nil
}

// GetEvent fetches an event by identifier, returning nil when absent.
func (s *Store) GetEvent(ctx context.Context, id int64) (*Event, error) {
	row := s.q.QueryRowContext(
		ctx,
		`SELECT id, title, description, teacher_id, practice_id, venue_id, is_online,
                online_url, price_normal, price_reduced, currency, source_url,
                created_at, updated_at
         FROM events WHERE id = ?`,
		id,
	)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ListOccurrences returns the occurrences of one event, earliest first.
func (s *Store) ListOccurrences(ctx context.Context, eventID int64) ([]*Occurrence, error) {
	rows, err := s.q.QueryContext(
		ctx,
		`SELECT id, event_id, start_date, end_date, start_time, end_time, recurrence_uid, created_at
         FROM event_occurrences WHERE event_id = ? ORDER BY start_date, id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("query occurrences: %w", err)
	}
	defer rows.Close()

	result := []*Occurrence{}
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		result = append(result, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrences: %w", err)
	}
	return result, nil
}

// DeleteEvent removes an event and, via cascade, its occurrences. Used by
// the administrative staging reset.
func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ExistsEventWithSourceURL reports whether any event was imported from the
// given source URL.
func (s *Store) ExistsEventWithSourceURL(ctx context.Context, sourceURL string) (bool, error) {
	var count int
	err := s.q.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM events WHERE source_url = ?`,
		strings.TrimSpace(sourceURL),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check event source url: %w", err)
	}
	return count > 0, nil
}

// ExistsEventWithTitleAndDate reports whether an event with the normalized
// title already has an occurrence on the given date.
func (s *Store) ExistsEventWithTitleAndDate(ctx context.Context, title string, date time.Time) (bool, error) {
	var count int
	err := s.q.QueryRowContext(
		ctx,
		`SELECT COUNT(1)
         FROM events e
         JOIN event_occurrences o ON o.event_id = e.id
         WHERE e.title = ? COLLATE NOCASE AND o.start_date = ?`,
		payload.NormalizeTitle(title),
		date.Format(payload.DateLayout),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check event title and date: %w", err)
	}
	return count > 0, nil
}

// TeacherExists reports whether a teacher matches first and last name
// exactly. Satisfies the quality gate's reference lookups.
func (s *Store) TeacherExists(ctx context.Context, firstName, lastName string) (bool, error) {
	teacher, err := s.FindTeacherByName(ctx, firstName, lastName)
	if err != nil {
		return false, err
	}
	return teacher != nil, nil
}

// PracticeExists reports whether a practice matches case-insensitively.
func (s *Store) PracticeExists(ctx context.Context, name string) (bool, error) {
	practice, err := s.FindPracticeByName(ctx, name)
	if err != nil {
		return false, err
	}
	return practice != nil, nil
}

func scanTeacher(scanner interface{ Scan(dest ...any) error }) (*Teacher, error) {
	var (
		teacher    Teacher
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&teacher.ID, &teacher.FirstName, &teacher.LastName, &createdRaw); err != nil {
		return nil, err
	}
	if created, err := storage.ParseTime(createdRaw.String); err == nil {
		teacher.CreatedAt = created
	}
	return &teacher, nil
}

func scanPractice(scanner interface{ Scan(dest ...any) error }) (*Practice, error) {
	var (
		practice   Practice
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&practice.ID, &practice.Name, &createdRaw); err != nil {
		return nil, err
	}
	if created, err := storage.ParseTime(createdRaw.String); err == nil {
		practice.CreatedAt = created
	}
	return &practice, nil
}

func scanVenue(scanner interface{ Scan(dest ...any) error }) (*Venue, error) {
	var (
		venue      Venue
		address1   sql.NullString
		address2   sql.NullString
		postalCode sql.NullString
		city       sql.NullString
		country    sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&venue.ID, &venue.Name, &address1, &address2, &postalCode, &city, &country, &createdRaw); err != nil {
		return nil, err
	}
	venue.AddressLine1 = address1.String
	venue.AddressLine2 = address2.String
	venue.PostalCode = postalCode.String
	venue.City = city.String
	venue.Country = country.String
	if created, err := storage.ParseTime(createdRaw.String); err == nil {
		venue.CreatedAt = created
	}
	return &venue, nil
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*Event, error) {
	var (
		event        Event
		description  sql.NullString
		venueID      sql.NullInt64
		isOnline     int
		onlineURL    sql.NullString
		priceNormal  sql.NullFloat64
		priceReduced sql.NullFloat64
		currency     sql.NullString
		sourceURL    sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&event.ID,
		&event.Title,
		&description,
		&event.TeacherID,
		&event.PracticeID,
		&venueID,
		&isOnline,
		&onlineURL,
		&priceNormal,
		&priceReduced,
		&currency,
		&sourceURL,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	event.Description = description.String
	event.IsOnline = isOnline != 0
	event.OnlineURL = onlineURL.String
	event.Currency = currency.String
	event.SourceURL = sourceURL.String
	if venueID.Valid {
		value := venueID.Int64
		event.VenueID = &value
	}
	if priceNormal.Valid {
		value := priceNormal.Float64
		event.PriceNormal = &value
	}
	if priceReduced.Valid {
		value := priceReduced.Float64
		event.PriceReduced = &value
	}
	if created, err := storage.ParseTime(createdRaw.String); err == nil {
		event.CreatedAt = created
	}
	if updated, err := storage.ParseTime(updatedRaw.String); err == nil {
		event.UpdatedAt = updated
	}
	return &event, nil
}

func scanOccurrence(scanner interface{ Scan(dest ...any) error }) (*Occurrence, error) {
	var (
		occ        Occurrence
		startRaw   string
		endRaw     string
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&occ.ID, &occ.EventID, &startRaw, &endRaw, &occ.StartTime, &occ.EndTime, &occ.RecurrenceUID, &createdRaw); err != nil {
		return nil, err
	}
	if start, err := payload.ParseDate(startRaw); err == nil {
		occ.StartDate = start
	}
	if end, err := payload.ParseDate(endRaw); err == nil {
		occ.EndDate = end
	}
	if created, err := storage.ParseTime(createdRaw.String); err == nil {
		occ.CreatedAt = created
	}
	return &occ, nil
}
