package payload

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DateLayout is the wire format for calendar dates in extraction payloads.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for times of day in extraction payloads.
const TimeLayout = "15:04"

// Candidate captures one extracted event candidate shared between staging,
// the quality gate, and promotion.
type Candidate struct {
	Teacher Teacher `json:"teacher"`
	Venue   *Venue  `json:"venue,omitempty"`
	Event   Event   `json:"event"`
}

// Teacher names the person a candidate event belongs to.
type Teacher struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Venue describes the physical location of an in-person event.
type Venue struct {
	Name         string `json:"name,omitempty"`
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	City         string `json:"city,omitempty"`
	Country      string `json:"country,omitempty"`
}

// Event holds the extracted event fields. Prices are pointers so that an
// absent price is distinguishable from a free event.
type Event struct {
	Title          string          `json:"title,omitempty"`
	Description    string          `json:"description,omitempty"`
	Practice       string          `json:"practice,omitempty"`
	SourceURL      string          `json:"source_url,omitempty"`
	IsOnline       bool            `json:"is_online,omitempty"`
	OnlineURL      string          `json:"online_url,omitempty"`
	PriceNormal    *float64        `json:"price_normal,omitempty"`
	PriceReduced   *float64        `json:"price_reduced,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	StartDate      string          `json:"start_date,omitempty"`
	EndDate        string          `json:"end_date,omitempty"`
	StartTime      string          `json:"start_time,omitempty"`
	EndTime        string          `json:"end_time,omitempty"`
	IsRecurring    bool            `json:"is_recurring,omitempty"`
	RecurrenceRule *RecurrenceSpec `json:"recurrence_rule,omitempty"`
}

// RecurrenceSpec is the wire form of a recurrence rule as the extraction
// service emits it. Range dates use DateLayout; absent means open.
type RecurrenceSpec struct {
	Pattern     string `json:"pattern,omitempty"`
	DayOfWeek   string `json:"day_of_week,omitempty"`
	WeekOfMonth int    `json:"week_of_month,omitempty"`
	RangeStart  string `json:"range_start,omitempty"`
	RangeEnd    string `json:"range_end,omitempty"`
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// ParseList decodes the extraction response, a JSON array of candidates.
// Titles are normalized on the way in so staging and dedup compare like
// against like.
func ParseList(raw []byte) ([]Candidate, error) {
	var items []Candidate
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	for idx := range items {
		items[idx].Event.Title = NormalizeTitle(items[idx].Event.Title)
	}
	return items, nil
}

// Parse decodes a single stored candidate, returning a zero value on blank
// input.
func Parse(raw string) (Candidate, error) {
	var c Candidate
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

// Encode serialises the candidate to JSON for storage.
func (c Candidate) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Clone returns a deep copy; candidates are treated as values, edits never
// reach back into a shared payload.
func (c Candidate) Clone() Candidate {
	out := c
	if c.Venue != nil {
		venue := *c.Venue
		out.Venue = &venue
	}
	if c.Event.PriceNormal != nil {
		v := *c.Event.PriceNormal
		out.Event.PriceNormal = &v
	}
	if c.Event.PriceReduced != nil {
		v := *c.Event.PriceReduced
		out.Event.PriceReduced = &v
	}
	if c.Event.RecurrenceRule != nil {
		rule := *c.Event.RecurrenceRule
		out.Event.RecurrenceRule = &rule
	}
	return out
}

// Occurrence derives a single-date candidate from a recurring one. The
// recurrence marker and rule are stripped so the result is never expanded
// again, and both dates collapse to the supplied occurrence date.
func (c Candidate) Occurrence(date time.Time) Candidate {
	out := c.Clone()
	out.Event.IsRecurring = false
	out.Event.RecurrenceRule = nil
	out.Event.StartDate = date.Format(DateLayout)
	out.Event.EndDate = date.Format(DateLayout)
	return out
}

// NormalizeTitle trims and title-cases a candidate title.
func NormalizeTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return ""
	}
	return titleCaser.String(title)
}

// FullName joins the teacher's first and last name, skipping blank parts.
func (t Teacher) FullName() string {
	parts := make([]string, 0, 2)
	if name := strings.TrimSpace(t.FirstName); name != "" {
		parts = append(parts, name)
	}
	if name := strings.TrimSpace(t.LastName); name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, " ")
}

// IsEmpty reports whether no teacher name was extracted at all.
func (t Teacher) IsEmpty() bool {
	return strings.TrimSpace(t.FirstName) == "" && strings.TrimSpace(t.LastName) == ""
}

// HasVenue reports whether any venue data was extracted.
func (c Candidate) HasVenue() bool {
	return c.Venue != nil && *c.Venue != (Venue{})
}

// MissingVenueFields lists the completeness fields the venue lacks.
func (v Venue) MissingVenueFields() []string {
	missing := []string{}
	if strings.TrimSpace(v.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(v.AddressLine1) == "" {
		missing = append(missing, "address_line1")
	}
	if strings.TrimSpace(v.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if strings.TrimSpace(v.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(v.Country) == "" {
		missing = append(missing, "country")
	}
	return missing
}

// ParseDate parses a payload calendar date. Blank input returns a zero time
// without error; malformed input returns the underlying parse error.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// ParseTime parses a payload time of day against TimeLayout.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(TimeLayout, value, time.UTC)
}

// HasParseableStartDate reports whether the start date is present and valid.
// Used for the per-run date-coverage signal.
func (e Event) HasParseableStartDate() bool {
	date, err := ParseDate(e.StartDate)
	return err == nil && !date.IsZero()
}
