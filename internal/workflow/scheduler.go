package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"curator/internal/logging"
	"curator/internal/sources"
)

func (m *Manager) startCron(ctx context.Context) error {
	scheduler := cron.New()

	weeklySpread := time.Duration(m.cfg.Workflow.WeeklySpreadMinutes) * time.Minute
	if _, err := scheduler.AddFunc(m.cfg.Workflow.WeeklyCron, func() {
		m.RunDue(ctx, sources.FrequencyWeekly, weeklySpread)
	}); err != nil {
		return fmt.Errorf("workflow: weekly cron %q: %w", m.cfg.Workflow.WeeklyCron, err)
	}

	yearlySpread := time.Duration(m.cfg.Workflow.YearlySpreadMinutes) * time.Minute
	if _, err := scheduler.AddFunc(m.cfg.Workflow.YearlyCron, func() {
		m.RunDue(ctx, sources.FrequencyYearly, yearlySpread)
	}); err != nil {
		return fmt.Errorf("workflow: yearly cron %q: %w", m.cfg.Workflow.YearlyCron, err)
	}

	scheduler.Start()

	m.mu.Lock()
	m.cron = scheduler
	m.mu.Unlock()
	return nil
}

// RunDue enqueues every active source on the given schedule, spacing
// consecutive sources by spread so scrape targets are not hit in a burst.
// It returns the number of sources that will run.
func (m *Manager) RunDue(ctx context.Context, frequency sources.Frequency, spread time.Duration) int {
	due, err := m.sources.ListDue(ctx, frequency)
	if err != nil {
		m.setOutcome(nil, err)
		m.logger.Error("list due sources",
			logging.String("frequency", string(frequency)),
			logging.Error(err))
		return 0
	}
	if len(due) == 0 {
		m.logger.Info("no sources due", logging.String("frequency", string(frequency)))
		return 0
	}

	m.logger.Info("schedule fired",
		logging.String("frequency", string(frequency)),
		logging.Int("sources", len(due)),
		logging.Duration("spread", spread))

	for i, source := range due {
		delay := time.Duration(i) * spread
		if delay == 0 {
			m.enqueueScheduled(source.ID)
			continue
		}
		go func(id int64, delay time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
				m.enqueueScheduled(id)
			}
		}(source.ID, delay)
	}
	return len(due)
}

func (m *Manager) enqueueScheduled(sourceID int64) {
	if err := m.Enqueue(sourceID); err != nil {
		m.logger.Warn("enqueue scheduled source",
			logging.Int64(logging.FieldSourceID, sourceID),
			logging.Error(err))
	}
}
