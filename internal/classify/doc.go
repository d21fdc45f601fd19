// Package classify maps failures from external calls onto the canonical run
// status codes persisted on scrape sources. Typed network/TLS errors are
// recognized first, then a message table handles failures that only surface
// as strings. The package also computes the post-hoc date-coverage signal.
package classify
