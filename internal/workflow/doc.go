// Package workflow coordinates scheduled and on-demand ingestion runs. A
// manager owns a worker pool fed by an in-memory job queue; cron triggers
// enqueue due sources with a spread delay so scrapes do not land on targets
// all at once. Failed runs are retried with exponential backoff when the
// failure is classified as retriable.
package workflow
