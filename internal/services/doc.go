// Package services holds the shared plumbing for Curator's external service
// clients: sentinel error markers with wrap helpers for classification, the
// retry/discard predicates the scheduler consults, and context annotations
// that thread source identifiers and correlation IDs into structured logs.
package services
