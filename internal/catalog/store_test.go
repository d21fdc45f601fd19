package catalog_test

import (
	"context"
	"testing"
	"time"

	"curator/internal/catalog"
	"curator/internal/testsupport"
)

func newStore(t *testing.T) *catalog.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	shared := testsupport.MustOpenStore(t, cfg)
	return catalog.NewStore(shared)
}

func TestFindTeacherByNameIsExact(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if _, err := store.CreateTeacher(ctx, "Jane", "Doe"); err != nil {
		t.Fatalf("CreateTeacher: %v", err)
	}

	found, err := store.FindTeacherByName(ctx, "Jane", "Doe")
	if err != nil {
		t.Fatalf("FindTeacherByName: %v", err)
	}
	if found == nil {
		t.Fatal("expected match for exact name")
	}

	miss, err := store.FindTeacherByName(ctx, "jane", "doe")
	if err != nil {
		t.Fatalf("FindTeacherByName: %v", err)
	}
	if miss != nil {
		t.Fatal("teacher lookup must be case sensitive")
	}
}

func TestFindPracticeByNameIsCaseInsensitive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if _, err := store.CreatePractice(ctx, "Vinyasa Yoga"); err != nil {
		t.Fatalf("CreatePractice: %v", err)
	}

	found, err := store.FindPracticeByName(ctx, "vinyasa yoga")
	if err != nil {
		t.Fatalf("FindPracticeByName: %v", err)
	}
	if found == nil {
		t.Fatal("expected case-insensitive match")
	}

	miss, err := store.FindPracticeByName(ctx, "Pilates")
	if err != nil {
		t.Fatalf("FindPracticeByName: %v", err)
	}
	if miss != nil {
		t.Fatal("expected no match for unknown practice")
	}
}

func TestFindOrCreateVenueDeduplicates(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	venue := catalog.Venue{Name: "Studio Lumen", City: "Paris", PostalCode: "75001", Country: "France"}
	first, err := store.FindOrCreateVenue(ctx, venue)
	if err != nil {
		t.Fatalf("FindOrCreateVenue: %v", err)
	}
	second, err := store.FindOrCreateVenue(ctx, venue)
	if err != nil {
		t.Fatalf("FindOrCreateVenue: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("same venue created twice: %d vs %d", first.ID, second.ID)
	}

	other, err := store.FindOrCreateVenue(ctx, catalog.Venue{Name: "Studio Lumen", City: "Lyon", PostalCode: "69001"})
	if err != nil {
		t.Fatalf("FindOrCreateVenue: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("different city must yield a different venue")
	}
}

func createEventWithOccurrence(t *testing.T, store *catalog.Store, title, sourceURL string, date time.Time) *catalog.Event {
	t.Helper()
	ctx := context.Background()

	teacher, err := store.CreateTeacher(ctx, "Jane", "Doe")
	if err != nil {
		t.Fatalf("CreateTeacher: %v", err)
	}
	practice, err := store.FindPracticeByName(ctx, "Yoga")
	if err != nil {
		t.Fatalf("FindPracticeByName: %v", err)
	}
	if practice == nil {
		practice, err = store.CreatePractice(ctx, "Yoga")
		if err != nil {
			t.Fatalf("CreatePractice: %v", err)
		}
	}

	event, err := store.CreateEvent(ctx, catalog.Event{
		Title:      title,
		TeacherID:  teacher.ID,
		PracticeID: practice.ID,
		SourceURL:  sourceURL,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if _, err := store.CreateOccurrence(ctx, catalog.Occurrence{
		EventID:   event.ID,
		StartDate: date,
		EndDate:   date,
		StartTime: "00:00",
		EndTime:   "23:59",
	}); err != nil {
		t.Fatalf("CreateOccurrence: %v", err)
	}
	return event
}

func TestDuplicateLookups(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	date := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)

	createEventWithOccurrence(t, store, "Yoga Retreat", "https://x/1", date)

	byURL, err := store.ExistsEventWithSourceURL(ctx, "https://x/1")
	if err != nil {
		t.Fatalf("ExistsEventWithSourceURL: %v", err)
	}
	if !byURL {
		t.Fatal("expected source url match")
	}

	byTitle, err := store.ExistsEventWithTitleAndDate(ctx, "yoga retreat", date)
	if err != nil {
		t.Fatalf("ExistsEventWithTitleAndDate: %v", err)
	}
	if !byTitle {
		t.Fatal("expected title and date match")
	}

	none, err := store.ExistsEventWithTitleAndDate(ctx, "yoga retreat", date.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ExistsEventWithTitleAndDate: %v", err)
	}
	if none {
		t.Fatal("different date must not match")
	}
}

func TestOccurrenceGetsRecurrenceUID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	date := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)

	event := createEventWithOccurrence(t, store, "Yoga Retreat", "https://x/1", date)

	occurrences, err := store.ListOccurrences(ctx, event.ID)
	if err != nil {
		t.Fatalf("ListOccurrences: %v", err)
	}
	if len(occurrences) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occurrences))
	}
	if occurrences[0].RecurrenceUID == "" {
		t.Fatal("occurrence must carry a recurrence uid")
	}
	if !occurrences[0].StartDate.Equal(date) {
		t.Fatalf("start date = %s, want %s", occurrences[0].StartDate, date)
	}
}

func TestDeleteEventCascadesOccurrences(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	date := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)

	event := createEventWithOccurrence(t, store, "Yoga Retreat", "https://x/1", date)
	if err := store.DeleteEvent(ctx, event.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}

	gone, err := store.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if gone != nil {
		t.Fatal("event not deleted")
	}

	occurrences, err := store.ListOccurrences(ctx, event.ID)
	if err != nil {
		t.Fatalf("ListOccurrences: %v", err)
	}
	if len(occurrences) != 0 {
		t.Fatalf("occurrences survived event deletion: %d", len(occurrences))
	}
}
