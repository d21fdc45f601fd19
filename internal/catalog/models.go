package catalog

import "time"

// Teacher is a person events are attributed to. Never created implicitly
// during promotion.
type Teacher struct {
	ID        int64
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// Practice is a discipline events are categorized under.
type Practice struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Venue is a physical location, deduplicated by name, city, and postal code.
type Venue struct {
	ID           int64
	Name         string
	AddressLine1 string
	AddressLine2 string
	PostalCode   string
	City         string
	Country      string
	CreatedAt    time.Time
}

// Event is one published event.
type Event struct {
	ID           int64
	Title        string
	Description  string
	TeacherID    int64
	PracticeID   int64
	VenueID      *int64
	IsOnline     bool
	OnlineURL    string
	PriceNormal  *float64
	PriceReduced *float64
	Currency     string
	SourceURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Occurrence is one concrete date an event takes place on. Times are stored
// as HH:MM strings; a full-day occurrence spans 00:00 to 23:59.
type Occurrence struct {
	ID            int64
	EventID       int64
	StartDate     time.Time
	EndDate       time.Time
	StartTime     string
	EndTime       string
	RecurrenceUID string
	CreatedAt     time.Time
}
