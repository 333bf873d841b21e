// Package mock provides deterministic test doubles for the ai capability
// interfaces. Embeddings are derived from a hash of the input text, so the
// same text always maps to the same vector.
package mock
