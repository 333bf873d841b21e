// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Error taxonomy shared by all packages. Ingestion records these on the task
// instead of propagating them; the query path returns them to the caller.
var (
	// ErrValidation indicates a malformed request.
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedFormat indicates a file type no extractor handles.
	// This is a business failure, not a system fault.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyContent indicates a document with no extractable text.
	ErrEmptyContent = errors.New("document has no content")

	// ErrEmbedding indicates the embedding service call failed.
	ErrEmbedding = errors.New("embedding service failed")

	// ErrDimensionMismatch indicates a vector whose dimensionality does not
	// match the configured embedding dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimensionality mismatch")

	// ErrStore indicates the chunk store is unavailable or rejected a write.
	ErrStore = errors.New("store operation failed")

	// ErrTimeout indicates an external call exceeded its per-call timeout.
	ErrTimeout = errors.New("operation timed out")

	// ErrNotFound indicates an unknown task, document or scope.
	ErrNotFound = errors.New("not found")

	// ErrState indicates an illegal task state transition.
	ErrState = errors.New("illegal state transition")
)

// IsTransient reports whether err may succeed on retry. Only service and
// network style faults qualify; deterministic errors such as a bad format or
// a dimensionality mismatch never do.
func IsTransient(err error) bool {
	if errors.Is(err, ErrDimensionMismatch) {
		return false
	}
	return errors.Is(err, ErrEmbedding) || errors.Is(err, ErrStore) || errors.Is(err, ErrTimeout)
}

// IsBusiness reports whether err is a recoverable business condition. Tasks
// hitting a business condition end as failed; everything else ends as error.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrValidation)
}
