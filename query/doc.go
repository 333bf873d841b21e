// Package query orchestrates the query-to-answer path: optional audio
// transcription, scoped retrieval, deterministic prompt assembly, chat model
// invocation and per-session conversation memory. Failures are returned
// synchronously to the caller, in contrast to ingestion where they are
// recorded on the task.
package query
