// Package quality runs the deterministic checks that flag defective
// candidate records before human review. Error-severity flags block
// validation; warnings are advisory. Re-running the gate recomputes and
// replaces the whole flag set.
package quality
