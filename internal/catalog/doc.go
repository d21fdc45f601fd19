// Package catalog persists the production side of the system: teachers,
// practices, venues, events, and their occurrences. Promotion writes here
// through a transaction-scoped view so a failed import leaves no trace.
package catalog
