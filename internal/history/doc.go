// Package history records autosub runs in a local SQLite database.
//
// Each run is inserted as "running" by Begin and updated with its outcome
// by Finish: output path, segment count, how correction batches resolved,
// and the error kind for failures. Recent lists runs newest first for the
// history command. The schema is embedded and versioned; a version mismatch
// is reported instead of migrated.
package history
