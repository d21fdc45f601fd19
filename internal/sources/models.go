package sources

import (
	"strings"
	"time"

	"curator/internal/classify"
)

// SiteType distinguishes pages owned by one teacher from aggregator pages.
type SiteType string

const (
	SiteSingleTeacher SiteType = "single_teacher"
	SiteMultiTeacher  SiteType = "multi_teacher"
)

// Frequency selects which recurring schedule picks a source up.
type Frequency string

const (
	FrequencyWeekly Frequency = "weekly"
	FrequencyYearly Frequency = "yearly"
)

// ParseSiteType converts a string into a known SiteType.
func ParseSiteType(value string) (SiteType, bool) {
	switch SiteType(strings.ToLower(strings.TrimSpace(value))) {
	case SiteSingleTeacher:
		return SiteSingleTeacher, true
	case SiteMultiTeacher:
		return SiteMultiTeacher, true
	default:
		return "", false
	}
}

// ParseFrequency converts a string into a known Frequency.
func ParseFrequency(value string) (Frequency, bool) {
	switch Frequency(strings.ToLower(strings.TrimSpace(value))) {
	case FrequencyWeekly:
		return FrequencyWeekly, true
	case FrequencyYearly:
		return FrequencyYearly, true
	default:
		return "", false
	}
}

// Source is one registered scrape target. Owner names give the extraction
// service teacher context on single-teacher sites.
type Source struct {
	ID             int64
	URL            string
	Name           string
	SiteType       SiteType
	Frequency      Frequency
	OwnerFirstName string
	OwnerLastName  string
	Active         bool

	LastRunStartedAt  *time.Time
	LastRunFinishedAt *time.Time
	LastRunDuration   time.Duration
	LastRunStatus     classify.StatusCode
	LastRunError      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasOwner reports whether an owner teacher is recorded for the source.
func (s *Source) HasOwner() bool {
	return strings.TrimSpace(s.OwnerFirstName) != "" || strings.TrimSpace(s.OwnerLastName) != ""
}
