package payload_test

import (
	"testing"
	"time"

	"curator/internal/payload"
)

func TestParseListNormalizesTitles(t *testing.T) {
	raw := []byte(`[{"teacher":{"first_name":"Jane","last_name":"Doe"},"event":{"title":"  morning   yoga flow ","source_url":"https://x/1"}}]`)

	items, err := payload.ParseList(raw)
	if err != nil {
		t.Fatalf("ParseList failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(items))
	}
	if got := items[0].Event.Title; got != "Morning Yoga Flow" {
		t.Fatalf("expected normalized title, got %q", got)
	}
}

func TestParseListRejectsMalformed(t *testing.T) {
	if _, err := payload.ParseList([]byte(`{"not":"an array"}`)); err == nil {
		t.Fatal("expected error for non-array response")
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	price := 42.5
	in := payload.Candidate{
		Teacher: payload.Teacher{FirstName: "Jane", LastName: "Doe"},
		Venue:   &payload.Venue{Name: "Studio", City: "Paris", PostalCode: "75001", Country: "France"},
		Event: payload.Event{
			Title:       "Yoga Retreat",
			Practice:    "Yoga",
			SourceURL:   "https://x/1",
			PriceNormal: &price,
			StartDate:   "2026-10-01",
		},
	}

	encoded, err := in.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out, err := payload.Parse(encoded)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if out.Teacher.FullName() != "Jane Doe" {
		t.Fatalf("unexpected teacher name %q", out.Teacher.FullName())
	}
	if out.Venue == nil || out.Venue.City != "Paris" {
		t.Fatalf("venue did not survive round trip: %+v", out.Venue)
	}
	if out.Event.PriceNormal == nil || *out.Event.PriceNormal != 42.5 {
		t.Fatalf("price did not survive round trip: %+v", out.Event.PriceNormal)
	}
}

func TestParseBlankReturnsZero(t *testing.T) {
	c, err := payload.Parse("  ")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !c.Teacher.IsEmpty() || c.HasVenue() {
		t.Fatalf("expected zero candidate, got %+v", c)
	}
}

func TestCloneIsDeep(t *testing.T) {
	price := 10.0
	original := payload.Candidate{
		Venue: &payload.Venue{Name: "Studio"},
		Event: payload.Event{
			PriceNormal:    &price,
			RecurrenceRule: &payload.RecurrenceSpec{Pattern: "weekly", DayOfWeek: "friday"},
		},
	}

	clone := original.Clone()
	clone.Venue.Name = "Other"
	*clone.Event.PriceNormal = 99
	clone.Event.RecurrenceRule.Pattern = "monthly"

	if original.Venue.Name != "Studio" {
		t.Fatal("clone shared venue with original")
	}
	if *original.Event.PriceNormal != 10.0 {
		t.Fatal("clone shared price with original")
	}
	if original.Event.RecurrenceRule.Pattern != "weekly" {
		t.Fatal("clone shared recurrence rule with original")
	}
}

func TestOccurrenceStripsRecurrence(t *testing.T) {
	original := payload.Candidate{
		Event: payload.Event{
			Title:          "Weekly Flow",
			IsRecurring:    true,
			RecurrenceRule: &payload.RecurrenceSpec{Pattern: "weekly", DayOfWeek: "friday"},
			StartDate:      "2026-03-01",
			EndDate:        "2026-06-30",
		},
	}

	date := time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC)
	occ := original.Occurrence(date)

	if occ.Event.IsRecurring {
		t.Fatal("occurrence must not be recurring")
	}
	if occ.Event.RecurrenceRule != nil {
		t.Fatal("occurrence must not carry a recurrence rule")
	}
	if occ.Event.StartDate != "2026-03-06" || occ.Event.EndDate != "2026-03-06" {
		t.Fatalf("occurrence dates wrong: %s .. %s", occ.Event.StartDate, occ.Event.EndDate)
	}
	if !original.Event.IsRecurring {
		t.Fatal("original mutated by Occurrence")
	}
}

func TestMissingVenueFields(t *testing.T) {
	venue := payload.Venue{Name: "Studio", City: "Paris"}
	missing := venue.MissingVenueFields()
	want := []string{"address_line1", "postal_code", "country"}
	if len(missing) != len(want) {
		t.Fatalf("expected %v, got %v", want, missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, missing)
		}
	}

	complete := payload.Venue{Name: "Studio", AddressLine1: "1 rue", PostalCode: "75001", City: "Paris", Country: "France"}
	if got := complete.MissingVenueFields(); len(got) != 0 {
		t.Fatalf("expected no missing fields, got %v", got)
	}
}

func TestParseDateAndTime(t *testing.T) {
	date, err := payload.ParseDate("2026-04-01")
	if err != nil || date.IsZero() {
		t.Fatalf("ParseDate failed: %v %v", date, err)
	}
	if _, err := payload.ParseDate("01/04/2026"); err == nil {
		t.Fatal("expected error for malformed date")
	}
	blank, err := payload.ParseDate("")
	if err != nil || !blank.IsZero() {
		t.Fatalf("blank date should be zero without error, got %v %v", blank, err)
	}

	clock, err := payload.ParseTime("18:30")
	if err != nil || clock.Hour() != 18 || clock.Minute() != 30 {
		t.Fatalf("ParseTime failed: %v %v", clock, err)
	}
}

func TestHasParseableStartDate(t *testing.T) {
	if !(payload.Event{StartDate: "2026-04-01"}).HasParseableStartDate() {
		t.Fatal("valid date must be parseable")
	}
	if (payload.Event{StartDate: "soon"}).HasParseableStartDate() {
		t.Fatal("malformed date must not be parseable")
	}
	if (payload.Event{}).HasParseableStartDate() {
		t.Fatal("absent date must not be parseable")
	}
}
