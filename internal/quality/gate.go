package quality

import (
	"context"
	"fmt"
	"strings"
	"time"

	"curator/internal/config"
	"curator/internal/payload"
	"curator/internal/staging"
)

// Flag keys. Each check owns exactly one key.
const (
	KeyTeacherNotFound       = "teacher_not_found"
	KeyPracticeNotFound      = "practice_not_found"
	KeyMissingOnlineURL      = "missing_online_url"
	KeyMissingVenue          = "missing_venue"
	KeyIncompleteVenue       = "incomplete_venue"
	KeyInvalidDateFormat     = "invalid_date_format"
	KeyDateInPast            = "date_in_past"
	KeyDateTooFar            = "date_too_far"
	KeyInvalidDateRange      = "invalid_date_range"
	KeyNegativePrice         = "negative_price"
	KeyPriceAnomaly          = "price_anomaly"
	KeyPriceIncoherence      = "price_incoherence"
	KeyInvalidCurrency       = "invalid_currency"
	KeyDuplicateURL          = "potential_duplicate_url"
	KeyDuplicateTitleDate    = "potential_duplicate_title_date"
	KeyMissingRequiredFields = "missing_required_fields"
)

// Refs provides the read-only production lookups the gate needs.
type Refs interface {
	TeacherExists(ctx context.Context, firstName, lastName string) (bool, error)
	PracticeExists(ctx context.Context, name string) (bool, error)
	ExistsEventWithSourceURL(ctx context.Context, sourceURL string) (bool, error)
	ExistsEventWithTitleAndDate(ctx context.Context, title string, date time.Time) (bool, error)
}

// Gate evaluates candidates against reference data and configured
// thresholds.
type Gate struct {
	refs          Refs
	maxPrice      float64
	maxFutureDays int
	currencies    map[string]struct{}
	now           func() time.Time
}

// New builds a gate from the quality configuration section.
func New(refs Refs, cfg *config.Config) *Gate {
	currencies := make(map[string]struct{}, len(cfg.Quality.Currencies))
	for _, currency := range cfg.Quality.Currencies {
		currencies[strings.ToUpper(strings.TrimSpace(currency))] = struct{}{}
	}
	return &Gate{
		refs:          refs,
		maxPrice:      cfg.Quality.MaxPrice,
		maxFutureDays: cfg.Quality.MaxFutureDays,
		currencies:    currencies,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock fixes the gate's notion of now. Test hook.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Check runs every check against the candidate and returns the full flag
// set. Identical inputs against identical references always yield identical
// flags.
func (g *Gate) Check(ctx context.Context, candidate payload.Candidate) (staging.FlagSet, error) {
	flags := staging.FlagSet{}
	checkedAt := g.now()
	add := func(key, message string, severity staging.Severity) {
		flags[key] = staging.Flag{Key: key, Message: message, Severity: severity, CheckedAt: checkedAt}
	}

	if err := g.checkTeacher(ctx, candidate, add); err != nil {
		return nil, err
	}
	if err := g.checkPractice(ctx, candidate, add); err != nil {
		return nil, err
	}
	g.checkLocation(candidate, add)
	g.checkDates(candidate, add)
	g.checkPrices(candidate, add)
	if err := g.checkDuplicates(ctx, candidate, add); err != nil {
		return nil, err
	}
	g.checkRequiredFields(candidate, add)

	return flags, nil
}

type addFunc func(key, message string, severity staging.Severity)

func (g *Gate) checkTeacher(ctx context.Context, candidate payload.Candidate, add addFunc) error {
	teacher := candidate.Teacher
	if teacher.IsEmpty() {
		return nil
	}
	exists, err := g.refs.TeacherExists(ctx, teacher.FirstName, teacher.LastName)
	if err != nil {
		return fmt.Errorf("teacher lookup: %w", err)
	}
	if !exists {
		add(KeyTeacherNotFound, fmt.Sprintf("teacher %q has no exact match", teacher.FullName()), staging.SeverityError)
	}
	return nil
}

func (g *Gate) checkPractice(ctx context.Context, candidate payload.Candidate, add addFunc) error {
	practice := strings.TrimSpace(candidate.Event.Practice)
	if practice == "" {
		return nil
	}
	exists, err := g.refs.PracticeExists(ctx, practice)
	if err != nil {
		return fmt.Errorf("practice lookup: %w", err)
	}
	if !exists {
		add(KeyPracticeNotFound, fmt.Sprintf("practice %q has no match", practice), staging.SeverityError)
	}
	return nil
}

func (g *Gate) checkLocation(candidate payload.Candidate, add addFunc) {
	event := candidate.Event
	if event.IsOnline {
		if strings.TrimSpace(event.OnlineURL) == "" {
			add(KeyMissingOnlineURL, "online event has no online url", staging.SeverityError)
		}
		return
	}
	if !candidate.HasVenue() {
		add(KeyMissingVenue, "in-person event has no venue data", staging.SeverityError)
		return
	}
	if missing := candidate.Venue.MissingVenueFields(); len(missing) > 0 {
		add(KeyIncompleteVenue, "venue is missing "+strings.Join(missing, ", "), staging.SeverityWarning)
	}
}

func (g *Gate) checkDates(candidate payload.Candidate, add addFunc) {
	event := candidate.Event
	today := g.now().Truncate(24 * time.Hour)

	raw := strings.TrimSpace(event.StartDate)
	start, err := payload.ParseDate(raw)
	if raw != "" && err != nil {
		add(KeyInvalidDateFormat, fmt.Sprintf("start date %q is unparseable", raw), staging.SeverityError)
		return
	}

	rawEnd := strings.TrimSpace(event.EndDate)
	end, endErr := payload.ParseDate(rawEnd)
	if rawEnd != "" && endErr != nil {
		add(KeyInvalidDateFormat, fmt.Sprintf("end date %q is unparseable", rawEnd), staging.SeverityError)
	}

	if start.IsZero() {
		return
	}
	if start.Before(today) {
		add(KeyDateInPast, fmt.Sprintf("start date %s is in the past", raw), staging.SeverityError)
	}
	if g.maxFutureDays > 0 && start.After(today.AddDate(0, 0, g.maxFutureDays)) {
		add(KeyDateTooFar, fmt.Sprintf("start date %s is more than %d days out", raw, g.maxFutureDays), staging.SeverityWarning)
	}
	if endErr == nil && !end.IsZero() && end.Before(start) {
		add(KeyInvalidDateRange, "end date precedes start date", staging.SeverityError)
	}
}

func (g *Gate) checkPrices(candidate payload.Candidate, add addFunc) {
	event := candidate.Event
	for _, price := range []*float64{event.PriceNormal, event.PriceReduced} {
		if price != nil && *price < 0 {
			add(KeyNegativePrice, "price is negative", staging.SeverityError)
			break
		}
	}
	for _, price := range []*float64{event.PriceNormal, event.PriceReduced} {
		if price != nil && *price > g.maxPrice && g.maxPrice > 0 {
			add(KeyPriceAnomaly, fmt.Sprintf("price %.2f exceeds %.0f", *price, g.maxPrice), staging.SeverityWarning)
			break
		}
	}
	if event.PriceNormal != nil && event.PriceReduced != nil &&
		*event.PriceNormal > 0 && *event.PriceReduced > 0 &&
		*event.PriceReduced >= *event.PriceNormal {
		add(KeyPriceIncoherence, "reduced price is not below normal price", staging.SeverityWarning)
	}
	if currency := strings.ToUpper(strings.TrimSpace(event.Currency)); currency != "" {
		if _, ok := g.currencies[currency]; !ok {
			add(KeyInvalidCurrency, fmt.Sprintf("currency %q is not supported", currency), staging.SeverityWarning)
		}
	}
}

func (g *Gate) checkDuplicates(ctx context.Context, candidate payload.Candidate, add addFunc) error {
	event := candidate.Event
	if url := strings.TrimSpace(event.SourceURL); url != "" {
		exists, err := g.refs.ExistsEventWithSourceURL(ctx, url)
		if err != nil {
			return fmt.Errorf("source url lookup: %w", err)
		}
		if exists {
			add(KeyDuplicateURL, "an imported event shares this source url", staging.SeverityWarning)
		}
	}

	title := strings.TrimSpace(event.Title)
	start, err := payload.ParseDate(event.StartDate)
	if title == "" || err != nil || start.IsZero() {
		return nil
	}
	exists, err := g.refs.ExistsEventWithTitleAndDate(ctx, title, start)
	if err != nil {
		return fmt.Errorf("title and date lookup: %w", err)
	}
	if exists {
		add(KeyDuplicateTitleDate, "an imported event shares this title and start date", staging.SeverityWarning)
	}
	return nil
}

func (g *Gate) checkRequiredFields(candidate payload.Candidate, add addFunc) {
	event := candidate.Event
	missing := []string{}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"title", event.Title},
		{"description", event.Description},
		{"practice", event.Practice},
		{"source_url", event.SourceURL},
		{"start_date", event.StartDate},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		add(KeyMissingRequiredFields, "missing "+strings.Join(missing, ", "), staging.SeverityError)
	}
}
