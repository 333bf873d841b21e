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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ScopeId and Name must not be empty
//   - Chunk ordinals must be 0-based, contiguous and unique
//   - Every chunk must carry the same DocumentId as the document
//   - All chunk vectors must share the same dimensionality
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrValidation)
	}
	if doc.ScopeId == "" {
		return fmt.Errorf("%w: document scope id is empty", ErrValidation)
	}
	if doc.Name == "" {
		return fmt.Errorf("%w: document name is empty", ErrValidation)
	}

	dim := -1
	for i := range doc.Chunks {
		chunk := &doc.Chunks[i]
		if chunk.Ordinal != i {
			return fmt.Errorf("%w: chunk ordinal %d at position %d is not contiguous",
				ErrValidation, chunk.Ordinal, i)
		}
		if chunk.DocumentId != doc.Id {
			return fmt.Errorf("%w: chunk %d belongs to document %d, not %d",
				ErrValidation, chunk.Ordinal, chunk.DocumentId, doc.Id)
		}
		if chunk.Text == "" {
			return fmt.Errorf("%w: chunk %d is empty", ErrValidation, chunk.Ordinal)
		}
		if dim == -1 {
			dim = len(chunk.Vector)
		} else if len(chunk.Vector) != dim {
			return fmt.Errorf("%w: chunk %d has dimensionality %d, expected %d",
				ErrDimensionMismatch, chunk.Ordinal, len(chunk.Vector), dim)
		}
	}

	return nil
}

// ValidateVectorDim checks a vector against the configured dimensionality.
func ValidateVectorDim(vector []float32, dim int) error {
	if len(vector) != dim {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vector), dim)
	}
	return nil
}
