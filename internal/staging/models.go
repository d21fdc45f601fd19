package staging

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"curator/internal/payload"
)

// Status represents the review lifecycle of a staging record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
	StatusImported  Status = "imported"
)

var allStatuses = []Status{
	StatusPending,
	StatusValidated,
	StatusRejected,
	StatusImported,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Severity splits quality flags into blocking and advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Flag records one quality-gate finding. Each check owns a unique key.
type Flag struct {
	Key       string    `json:"key"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CheckedAt time.Time `json:"checked_at"`
}

// FlagSet holds the gate findings for a record, keyed by flag key.
type FlagSet map[string]Flag

// HasCriticalErrors reports whether any blocking flag is present. Derived,
// never stored separately.
func (f FlagSet) HasCriticalErrors() bool {
	for _, flag := range f {
		if flag.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Keys returns the flag keys in stable order.
func (f FlagSet) Keys() []string {
	keys := make([]string, 0, len(f))
	for key := range f {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Encode serialises the flag set for storage. Empty sets encode as blank.
func (f FlagSet) Encode() (string, error) {
	if len(f) == 0 {
		return "", nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseFlags loads a stored flag set, returning an empty set on blank input.
func ParseFlags(raw string) (FlagSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FlagSet{}, nil
	}
	var flags FlagSet
	if err := json.Unmarshal([]byte(raw), &flags); err != nil {
		return nil, err
	}
	return flags, nil
}

// Record is one candidate event occurrence persisted in SQLite. Recurring
// series never reach this table whole; each expanded occurrence is its own
// record.
type Record struct {
	ID              int64
	SourceURL       string
	ScrapedAt       time.Time
	PayloadJSON     string
	Status          Status
	Flags           FlagSet
	ValidatedBy     string
	ValidatedAt     *time.Time
	ValidationNotes string
	ProducedEventID *int64
	ImportedBy      string
	ImportedAt      *time.Time
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Payload decodes the stored candidate.
func (r *Record) Payload() (payload.Candidate, error) {
	return payload.Parse(r.PayloadJSON)
}

// IsBlocked reports whether validation would be refused without force.
func (r *Record) IsBlocked() bool {
	return r.Flags.HasCriticalErrors()
}
