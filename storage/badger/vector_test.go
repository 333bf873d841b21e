package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0, 0}, []float32{-1, 0, 0}), 1e-6)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0, 0}, []float32{0, 1, 0}), 1e-6)
	})

	t.Run("magnitude invariant", func(t *testing.T) {
		a := cosineSimilarity([]float32{1, 1, 0}, []float32{2, 2, 0})
		assert.InDelta(t, 1.0, a, 1e-6)
	})

	t.Run("mismatched dimensions", func(t *testing.T) {
		assert.Zero(t, cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	})

	t.Run("zero vector", func(t *testing.T) {
		assert.Zero(t, cosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3}))
	})
}
