// Package staging persists candidate event records and guards their review
// lifecycle. A record moves pending -> validated or rejected by a human
// action, and validated -> imported through promotion; failed imports roll
// the record back to pending with the cause recorded.
package staging
