// Package store persists ingested artifacts in a relational database.
//
// Two backends share one schema. SQLite (modernc.org/sqlite, no cgo) is the
// default. PostgreSQL goes through a pgx connection pool. Both apply their
// embedded migrations with a goose provider on open.
//
// Every artifact is written in its own transaction: the source_file row,
// the entry row, and for audio the transcription_run and
// transcription_usage rows. A source path is unique, so ingesting the same
// artifact twice returns ErrDuplicate and leaves the database untouched.
package store
