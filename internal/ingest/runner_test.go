package ingest_test

import (
	"context"
	"errors"
	"testing"

	"curator/internal/catalog"
	"curator/internal/classify"
	"curator/internal/config"
	"curator/internal/ingest"
	"curator/internal/payload"
	"curator/internal/quality"
	"curator/internal/services"
	"curator/internal/services/extract"
	"curator/internal/services/render"
	"curator/internal/sources"
	"curator/internal/staging"
	"curator/internal/testsupport"
)

type stubFetcher struct {
	html string
	err  error
}

func (s stubFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	return s.html, s.err
}

type passthroughCleaner struct{}

func (passthroughCleaner) Clean(htmlContent, pageURL string) (string, error) {
	return htmlContent, nil
}

type stubExtractor struct {
	candidates []payload.Candidate
	err        error
}

func (s stubExtractor) Extract(ctx context.Context, pageText, sourceURL string) ([]payload.Candidate, error) {
	return s.candidates, s.err
}

type fixture struct {
	cfg     *config.Config
	sources *sources.Store
	records *staging.Store
	source  *sources.Source
	gate    *quality.Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	shared := testsupport.MustOpenStore(t, cfg)

	cat := catalog.NewStore(shared)
	if _, err := cat.CreateTeacher(ctx, "Jane", "Doe"); err != nil {
		t.Fatalf("CreateTeacher: %v", err)
	}
	if _, err := cat.CreatePractice(ctx, "Yoga"); err != nil {
		t.Fatalf("CreatePractice: %v", err)
	}

	src := sources.NewStore(shared)
	source, err := src.Add(ctx, sources.Source{
		URL:            "https://studio.example/classes",
		Name:           "Studio",
		SiteType:       sources.SiteSingleTeacher,
		Frequency:      sources.FrequencyWeekly,
		OwnerFirstName: "Jane",
		OwnerLastName:  "Doe",
	})
	if err != nil {
		t.Fatalf("Add source: %v", err)
	}

	return &fixture{
		cfg:     cfg,
		sources: src,
		records: staging.NewStore(shared),
		source:  source,
		gate:    quality.New(cat, cfg),
	}
}

func (f *fixture) runner(fetcher ingest.PageFetcher, extractor ingest.CandidateExtractor) *ingest.Runner {
	return ingest.New(f.cfg, f.sources, f.records, f.gate, fetcher, passthroughCleaner{}, extractor, nil)
}

func testCandidate(title, startDate string) payload.Candidate {
	return payload.Candidate{
		Teacher: payload.Teacher{FirstName: "Jane", LastName: "Doe"},
		Event: payload.Event{
			Title:       title,
			Description: "desc",
			Practice:    "Yoga",
			SourceURL:   "https://studio.example/classes",
			IsOnline:    true,
			OnlineURL:   "https://meet.example/1",
			StartDate:   startDate,
		},
	}
}

func (f *fixture) lastRunStatus(t *testing.T) classify.StatusCode {
	t.Helper()
	source, err := f.sources.GetByID(context.Background(), f.source.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return source.LastRunStatus
}

func TestRunStagesCandidates(t *testing.T) {
	f := newFixture(t)
	runner := f.runner(
		stubFetcher{html: "<html>classes</html>"},
		stubExtractor{candidates: []payload.Candidate{
			testCandidate("Morning Flow", "2027-03-01"),
			testCandidate("Evening Flow", "2027-03-02"),
		}},
	)

	summary, err := runner.Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Status != classify.StatusOK {
		t.Errorf("status = %s, want OK", summary.Status)
	}
	if summary.RecordsCreated != 2 {
		t.Errorf("records created = %d, want 2", summary.RecordsCreated)
	}

	pending, err := f.records.List(context.Background(), staging.StatusPending, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("staged %d records, want 2", len(pending))
	}
	if got := f.lastRunStatus(t); got != classify.StatusOK {
		t.Errorf("source last run status = %s, want OK", got)
	}
}

func TestRunExpandsRecurringCandidate(t *testing.T) {
	f := newFixture(t)
	recurring := testCandidate("Weekly Vinyasa", "")
	recurring.Event.IsRecurring = true
	recurring.Event.RecurrenceRule = &payload.RecurrenceSpec{
		Pattern:    "weekly",
		DayOfWeek:  "monday",
		RangeStart: "2027-01-01",
		RangeEnd:   "2027-01-31",
	}
	runner := f.runner(
		stubFetcher{html: "ok"},
		stubExtractor{candidates: []payload.Candidate{recurring}},
	)

	summary, err := runner.Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RecordsCreated != 4 {
		t.Fatalf("records created = %d, want 4 mondays in january 2027", summary.RecordsCreated)
	}

	records, err := f.records.ListBySource(context.Background(), f.source.URL)
	if err != nil {
		t.Fatalf("ListBySource: %v", err)
	}
	seen := map[string]bool{}
	for _, record := range records {
		cand, err := record.Payload()
		if err != nil {
			t.Fatalf("Payload: %v", err)
		}
		if cand.Event.IsRecurring || cand.Event.RecurrenceRule != nil {
			t.Error("occurrence still marked recurring")
		}
		seen[cand.Event.StartDate] = true
	}
	for _, date := range []string{"2027-01-04", "2027-01-11", "2027-01-18", "2027-01-25"} {
		if !seen[date] {
			t.Errorf("missing occurrence for %s (got %v)", date, seen)
		}
	}
}

func TestRunRecordsHTTPFailure(t *testing.T) {
	f := newFixture(t)
	runner := f.runner(
		stubFetcher{err: &render.StatusError{Code: 503, Status: "Service Unavailable"}},
		stubExtractor{},
	)

	summary, err := runner.Run(context.Background(), f.source)
	if err == nil {
		t.Fatal("expected error for failed fetch")
	}
	if summary.Status != classify.StatusHTTPServerError {
		t.Errorf("status = %s, want HTTP_SERVER_ERROR", summary.Status)
	}
	if got := f.lastRunStatus(t); got != classify.StatusHTTPServerError {
		t.Errorf("source last run status = %s, want HTTP_SERVER_ERROR", got)
	}

	pending, err := f.records.List(context.Background(), staging.StatusPending, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("staged %d records from failed run, want 0", len(pending))
	}
}

func TestRunTimeoutIsRetriable(t *testing.T) {
	f := newFixture(t)
	runner := f.runner(stubFetcher{err: context.DeadlineExceeded}, stubExtractor{})

	summary, err := runner.Run(context.Background(), f.source)
	if err == nil {
		t.Fatal("expected error")
	}
	if summary.Status != classify.StatusTimeoutError {
		t.Errorf("status = %s, want TIMEOUT_ERROR", summary.Status)
	}
	if !services.Retriable(err) {
		t.Errorf("timeout failure not retriable: %v", err)
	}
}

func TestRunNoEventsIsNotAnError(t *testing.T) {
	f := newFixture(t)
	runner := f.runner(stubFetcher{html: "ok"}, stubExtractor{err: extract.ErrNoCandidates})

	summary, err := runner.Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Status != classify.StatusNoEvents {
		t.Errorf("status = %s, want NO_EVENTS", summary.Status)
	}
}

func TestRunMalformedExtraction(t *testing.T) {
	f := newFixture(t)
	runner := f.runner(stubFetcher{html: "ok"}, stubExtractor{
		err: &extract.MalformedError{Excerpt: "oops", Err: errors.New("decode")},
	})

	summary, err := runner.Run(context.Background(), f.source)
	if err == nil {
		t.Fatal("expected error")
	}
	if summary.Status != classify.StatusExtractionError {
		t.Errorf("status = %s, want EXTRACTION_ERROR", summary.Status)
	}
}

func TestRunFlagsLowDateCoverage(t *testing.T) {
	f := newFixture(t)
	runner := f.runner(
		stubFetcher{html: "ok"},
		stubExtractor{candidates: []payload.Candidate{
			testCandidate("Dated", "2027-03-01"),
			testCandidate("Undated", ""),
		}},
	)

	summary, err := runner.Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Status != classify.StatusLowDates {
		t.Errorf("status = %s, want LOW_DATES", summary.Status)
	}
	if summary.RecordsCreated != 2 {
		t.Errorf("records created = %d, want 2 despite low coverage", summary.RecordsCreated)
	}
	if summary.RecordsDated != 1 {
		t.Errorf("records dated = %d, want 1", summary.RecordsDated)
	}
}

func TestRunFillsOwnerTeacher(t *testing.T) {
	f := newFixture(t)
	anonymous := testCandidate("Community Class", "2027-03-01")
	anonymous.Teacher = payload.Teacher{}
	runner := f.runner(stubFetcher{html: "ok"}, stubExtractor{
		candidates: []payload.Candidate{anonymous},
	})

	if _, err := runner.Run(context.Background(), f.source); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records, err := f.records.ListBySource(context.Background(), f.source.URL)
	if err != nil {
		t.Fatalf("ListBySource: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("staged %d records, want 1", len(records))
	}
	cand, err := records[0].Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if cand.Teacher.FirstName != "Jane" || cand.Teacher.LastName != "Doe" {
		t.Errorf("teacher = %+v, want source owner", cand.Teacher)
	}
}
