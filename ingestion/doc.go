// Package ingestion implements the asynchronous document ingestion pipeline.
//
// An upload is spooled to a temporary file and queued on a worker pool; the
// worker extracts the document text, normalizes and chunks it with a sliding
// window, embeds every chunk and commits the whole document atomically to the
// store. Progress is tracked through the task registry: a worker claims the
// queued task, then finishes it as complete, failed (deterministic business
// conditions such as an unsupported format or empty content) or error
// (unexpected faults after retries are exhausted).
//
// Transient failures from the embedding service or the store are retried with
// exponential backoff. Temporary spool files are removed on every exit path,
// and a background janitor reclaims any orphans left by a crashed worker.
package ingestion
