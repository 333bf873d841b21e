// Package tasks provides the in-memory registry tracking ingestion task
// lifecycle.
//
// Task status moves monotonically through queued -> processing -> one of
// {complete, failed, error}. Processing is reached only through a successful
// atomic claim, terminal states are mutually exclusive and immutable, and no
// transition re-enters queued.
package tasks
