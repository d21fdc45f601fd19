// Package recurrence expands human-authored schedule rules ("every Friday",
// "first Monday of the month") into concrete date lists. Expansion is pure
// and deterministic for identical inputs, which keeps re-staging idempotent.
package recurrence
