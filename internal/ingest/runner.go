package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"curator/internal/classify"
	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/payload"
	"curator/internal/quality"
	"curator/internal/recurrence"
	"curator/internal/services"
	"curator/internal/services/extract"
	"curator/internal/services/render"
	"curator/internal/sources"
	"curator/internal/staging"
)

const defaultCoverageThreshold = 0.95

// PageFetcher renders a source page and returns its HTML.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// PageCleaner reduces rendered HTML to extraction-ready text.
type PageCleaner interface {
	Clean(htmlContent, pageURL string) (string, error)
}

// CandidateExtractor produces event candidates from page text.
type CandidateExtractor interface {
	Extract(ctx context.Context, pageText, sourceURL string) ([]payload.Candidate, error)
}

// RunSummary reports the outcome of one ingestion run.
type RunSummary struct {
	SourceID       int64
	SourceURL      string
	Status         classify.StatusCode
	Detail         string
	Candidates     int
	RecordsCreated int
	RecordsDated   int
	Duration       time.Duration
}

// Runner drives the scrape pipeline for registered sources.
type Runner struct {
	sources   *sources.Store
	records   *staging.Store
	gate      *quality.Gate
	fetcher   PageFetcher
	cleaner   PageCleaner
	extractor CandidateExtractor
	threshold float64
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs a runner. The date coverage threshold comes from quality
// configuration.
func New(cfg *config.Config, src *sources.Store, records *staging.Store, gate *quality.Gate,
	fetcher PageFetcher, cleaner PageCleaner, extractor CandidateExtractor, logger *slog.Logger) *Runner {
	threshold := cfg.Quality.DateCoverageThreshold
	if threshold <= 0 {
		threshold = defaultCoverageThreshold
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		sources:   src,
		records:   records,
		gate:      gate,
		fetcher:   fetcher,
		cleaner:   cleaner,
		extractor: extractor,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "ingest"),
		now:       time.Now,
	}
}

// Run executes the pipeline for one source. The classified outcome is always
// recorded on the source, including for failed runs. The returned error is
// non-nil only when the run produced no staged records because of a failure;
// it is tagged for retry classification.
func (r *Runner) Run(ctx context.Context, source *sources.Source) (*RunSummary, error) {
	startedAt := r.now()
	if err := r.sources.RecordRunStart(ctx, source.ID, startedAt); err != nil {
		return nil, err
	}

	ctx = services.WithSourceID(services.WithSourceURL(ctx, source.URL), source.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, r.logger)
	summary := &RunSummary{SourceID: source.ID, SourceURL: source.URL}

	htmlContent, err := r.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		status := classify.Classify(err)
		var statusErr *render.StatusError
		if errors.As(err, &statusErr) {
			status = classify.FromHTTPStatus(statusErr.Code)
		}
		return r.fail(ctx, logger, summary, startedAt, status, err)
	}

	pageText, err := r.cleaner.Clean(htmlContent, source.URL)
	if err != nil {
		return r.fail(ctx, logger, summary, startedAt, classify.StatusExtractionError, err)
	}

	candidates, err := r.extractor.Extract(ctx, pageText, source.URL)
	switch {
	case errors.Is(err, extract.ErrNoCandidates):
		r.finish(ctx, logger, summary, startedAt, classify.StatusNoEvents, "page yielded no events")
		return summary, nil
	case err != nil:
		status := classify.StatusExtractionError
		var malformed *extract.MalformedError
		if !errors.As(err, &malformed) {
			status = classify.Classify(err)
		}
		return r.fail(ctx, logger, summary, startedAt, status, err)
	}
	summary.Candidates = len(candidates)

	for _, candidate := range candidates {
		r.applyOwner(source, &candidate)
		for _, cand := range r.expand(candidate, logger) {
			record, err := r.records.Create(ctx, source.URL, startedAt, cand)
			if err != nil {
				logger.Error("stage candidate", logging.Error(err))
				continue
			}
			summary.RecordsCreated++
			if cand.Event.HasParseableStartDate() {
				summary.RecordsDated++
			}
			flags, err := r.gate.Check(ctx, cand)
			if err != nil {
				logger.Error("quality check",
					logging.Int64(logging.FieldRecordID, record.ID),
					logging.Error(err))
				continue
			}
			if err := r.records.ReplaceFlags(ctx, record.ID, flags); err != nil {
				logger.Error("store flags",
					logging.Int64(logging.FieldRecordID, record.ID),
					logging.Error(err))
			}
		}
	}

	status := classify.StatusOK
	detail := ""
	if classify.LowDates(summary.RecordsDated, summary.RecordsCreated, r.threshold) {
		status = classify.StatusLowDates
		detail = fmt.Sprintf("date coverage %.2f below threshold %.2f",
			classify.DateCoverage(summary.RecordsDated, summary.RecordsCreated), r.threshold)
	}
	r.finish(ctx, logger, summary, startedAt, status, detail)
	return summary, nil
}

// applyOwner fills in the registered owner as the teacher when a
// single-teacher page names nobody.
func (r *Runner) applyOwner(source *sources.Source, candidate *payload.Candidate) {
	if source.SiteType != sources.SiteSingleTeacher || !source.HasOwner() {
		return
	}
	if candidate.Teacher.IsEmpty() {
		candidate.Teacher = payload.Teacher{
			FirstName: source.OwnerFirstName,
			LastName:  source.OwnerLastName,
		}
	}
}

// expand turns a recurring candidate into one dated occurrence per scheduled
// date. Candidates with unusable rules are staged as-is so review can still
// see them.
func (r *Runner) expand(candidate payload.Candidate, logger *slog.Logger) []payload.Candidate {
	spec := candidate.Event.RecurrenceRule
	if !candidate.Event.IsRecurring || spec == nil {
		return []payload.Candidate{candidate}
	}

	rule, err := buildRule(*spec)
	if err != nil {
		logger.Warn("unusable recurrence rule", logging.Error(err))
		return []payload.Candidate{candidate}
	}
	seed, err := payload.ParseDate(candidate.Event.StartDate)
	if err != nil {
		seed = time.Time{}
	}
	dates, err := recurrence.Calculate(rule, seed)
	if err != nil {
		logger.Warn("recurrence calculation", logging.Error(err))
		return []payload.Candidate{candidate}
	}

	occurrences := make([]payload.Candidate, 0, len(dates))
	for _, date := range dates {
		occurrences = append(occurrences, candidate.Occurrence(date))
	}
	return occurrences
}

func buildRule(spec payload.RecurrenceSpec) (recurrence.Rule, error) {
	rangeStart, err := payload.ParseDate(spec.RangeStart)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("range start: %w", err)
	}
	rangeEnd, err := payload.ParseDate(spec.RangeEnd)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("range end: %w", err)
	}
	return recurrence.NewRule(spec.Pattern, spec.DayOfWeek, spec.WeekOfMonth, rangeStart, rangeEnd)
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, summary *RunSummary,
	startedAt time.Time, status classify.StatusCode, detail string) {
	finishedAt := r.now()
	summary.Status = status
	summary.Detail = detail
	summary.Duration = finishedAt.Sub(startedAt)

	if err := r.sources.RecordRunResult(ctx, summary.SourceID, finishedAt, summary.Duration, status, detail); err != nil {
		logger.Error("record run result", logging.Error(err))
	}

	logger.Info("run finished",
		logging.String(logging.FieldRunStatus, string(status)),
		logging.Int("candidates", summary.Candidates),
		logging.Int("records", summary.RecordsCreated),
		logging.Duration("duration", summary.Duration))
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, summary *RunSummary,
	startedAt time.Time, status classify.StatusCode, cause error) (*RunSummary, error) {
	r.finish(ctx, logger, summary, startedAt, status, cause.Error())

	marker := services.ErrExternalService
	if status == classify.StatusTimeoutError {
		marker = services.ErrTimeout
	}
	return summary, services.Wrap(marker, "ingest", "run", string(status), cause)
}
