// Package library is the durable record store behind shellac: one SQLite
// database holding indexed file records, processed-folder history, and resume
// checkpoints for long batch operations. All mutating operations run in
// chunked transactions with per-record fallback on chunk failure.
package library
