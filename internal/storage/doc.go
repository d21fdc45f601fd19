// Package storage owns the SQLite database shared by the staging queue, the
// source registry, and the production catalog. Keeping everything in one
// database is what lets promotion run as a single real transaction.
package storage
