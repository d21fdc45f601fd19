// Package ingest runs the scrape pipeline for one source: render the page,
// reduce it to text, extract event candidates, expand recurring schedules
// into dated occurrences, and stage each candidate with its quality flags.
// Every run finishes by recording a classified outcome on the source.
package ingest
