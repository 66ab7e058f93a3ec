// Package config loads, normalizes, and validates autosub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEY and AUTOSUB_FFMPEG. The Config type centralizes every knob the
// CLI and pipeline need so scratch/output directories, recognizer settings and
// correction credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
