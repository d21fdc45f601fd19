package workflow

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"curator/internal/logging"
	"curator/internal/services"
)

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sourceID := <-m.jobs:
			m.mu.Lock()
			delete(m.queued, sourceID)
			m.mu.Unlock()
			m.runSource(ctx, sourceID)
		}
	}
}

func (m *Manager) runSource(ctx context.Context, sourceID int64) {
	source, err := m.sources.GetByID(ctx, sourceID)
	if err != nil {
		m.setOutcome(nil, err)
		m.logger.Error("load source",
			logging.Int64(logging.FieldSourceID, sourceID),
			logging.Error(err))
		return
	}
	if source == nil {
		m.logger.Warn("queued source no longer exists",
			logging.Int64(logging.FieldSourceID, sourceID))
		return
	}
	if !source.Active {
		m.logger.Info("skipping inactive source",
			logging.Int64(logging.FieldSourceID, sourceID))
		return
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(m.newBackoff(), uint64(m.retryMax-1)), ctx)
	operation := func() error {
		summary, runErr := m.runner.Run(ctx, source)
		m.setOutcome(summary, runErr)
		if runErr == nil {
			return nil
		}
		if services.Discardable(runErr) || !services.Retriable(runErr) {
			return backoff.Permanent(runErr)
		}
		m.logger.Warn("run failed, will retry",
			logging.Int64(logging.FieldSourceID, sourceID),
			logging.Error(runErr))
		return runErr
	}

	if err := backoff.Retry(operation, policy); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Error("run failed",
			logging.Int64(logging.FieldSourceID, sourceID),
			logging.String(logging.FieldSourceURL, source.URL),
			logging.Error(err))
	}
}

func (m *Manager) newBackoff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.retryBackoff
	policy.MaxInterval = 4 * m.retryBackoff
	policy.MaxElapsedTime = 0
	return policy
}
