// Package payload defines the structured candidate shared between staging,
// the quality gate, and promotion. Candidates are decoded once from the
// extraction response and treated as values from then on.
package payload
