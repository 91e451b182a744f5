// Package config loads, normalizes, and validates driveingest configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// OPENAI_API_KEY, DATABASE_URL, and the DELETE_*_FROM_SRC switches. A .env
// file next to the working directory is loaded first so those variables can
// live outside the shell profile.
//
// The Config type centralizes every knob the pipeline and CLI need: the
// download/processed directories, Drive credentials, transcription engine
// settings, and the database backend. Always obtain settings through this
// package so downstream code receives sanitized paths, lowercase extension
// lists, and clear validation errors.
package config
