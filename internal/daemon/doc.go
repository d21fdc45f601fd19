// Package daemon ties the storage layer, the ingestion pipeline, and the
// workflow manager into a single long-running process with flock-based
// locking to prevent multiple instances from sharing one database.
package daemon
