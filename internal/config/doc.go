// Package config loads, normalizes, and validates Curator configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CURATOR_EXTRACTION_API_KEY. The Config type centralizes every knob the
// daemon and CLI need, so data directories, service endpoints, and workflow
// timing are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
