// Package sources keeps the registry of scrape sources and the outcome of
// their most recent ingestion run.
package sources
