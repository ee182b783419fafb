// Package config loads, normalizes, and validates scribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SCRIBE_STORAGE_DIR and SCRIBE_HF_TOKEN. The Config type centralizes every
// knob the pipeline and CLI need so transcript storage, download retry policy,
// and WhisperX settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
