package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"curator/internal/config"
	"curator/internal/ingest"
	"curator/internal/logging"
	"curator/internal/sources"
)

const jobQueueCapacity = 256

// ErrQueueFull indicates the job queue cannot accept more work right now.
var ErrQueueFull = errors.New("workflow: job queue full")

// SourceRunner executes the ingestion pipeline for one source.
type SourceRunner interface {
	Run(ctx context.Context, source *sources.Source) (*ingest.RunSummary, error)
}

// Status is a point-in-time snapshot of manager state.
type Status struct {
	Running     bool
	Workers     int
	QueueDepth  int
	LastError   string
	LastSummary *ingest.RunSummary
}

// Manager coordinates scheduled and manual ingestion runs.
type Manager struct {
	cfg     *config.Config
	sources *sources.Store
	runner  SourceRunner
	logger  *slog.Logger

	workers      int
	retryMax     int
	retryBackoff time.Duration
	cron         *cron.Cron
	jobs         chan int64

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	queued      map[int64]bool
	lastErr     error
	lastSummary *ingest.RunSummary
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, src *sources.Store, runner SourceRunner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.WorkerCount
	if workers < 1 {
		workers = 1
	}
	retryMax := cfg.Workflow.RetryMaxAttempts
	if retryMax < 1 {
		retryMax = 1
	}
	return &Manager{
		cfg:          cfg,
		sources:      src,
		runner:       runner,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		workers:      workers,
		retryMax:     retryMax,
		retryBackoff: time.Duration(cfg.Workflow.RetryBackoffMinutes) * time.Minute,
		jobs:         make(chan int64, jobQueueCapacity),
		queued:       make(map[int64]bool),
	}
}

// Start begins background processing: the worker pool plus the cron triggers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers)
	m.mu.Unlock()

	for i := 0; i < m.workers; i++ {
		go m.runWorker(runCtx)
	}

	if err := m.startCron(runCtx); err != nil {
		m.Stop()
		return err
	}

	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.String("weekly_cron", m.cfg.Workflow.WeeklyCron),
		logging.String("yearly_cron", m.cfg.Workflow.YearlyCron))
	return nil
}

// Stop terminates background processing and waits for in-flight runs.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	scheduler := m.cron
	m.cron = nil
	m.mu.Unlock()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped")
}

// Enqueue queues one source for an on-demand run. Sources already waiting in
// the queue are not queued twice.
func (m *Manager) Enqueue(sourceID int64) error {
	m.mu.Lock()
	if m.queued[sourceID] {
		m.mu.Unlock()
		return nil
	}
	m.queued[sourceID] = true
	m.mu.Unlock()

	select {
	case m.jobs <- sourceID:
		return nil
	default:
		m.mu.Lock()
		delete(m.queued, sourceID)
		m.mu.Unlock()
		return ErrQueueFull
	}
}

// Status reports current manager state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := Status{
		Running:     m.running,
		Workers:     m.workers,
		QueueDepth:  len(m.jobs),
		LastSummary: m.lastSummary,
	}
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
	}
	return status
}

func (m *Manager) setOutcome(summary *ingest.RunSummary, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if summary != nil {
		m.lastSummary = summary
	}
	m.lastErr = err
}
