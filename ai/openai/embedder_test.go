package openai

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
)

// fakeBatcher stands in for the langchaingo embedder behind the adapter.
type fakeBatcher struct {
	vectors [][]float32 // fixed response; nil means one 3-dim vector per text
	err     error
}

var _ embeddings.Embedder = (*fakeBatcher)(nil)

func (f *fakeBatcher) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeBatcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func embedderWith(f *fakeBatcher, dim int) *Embedder {
	return &Embedder{embedder: f, dim: dim, logger: slog.Default()}
}

func TestEmbedTextsMatchingDim(t *testing.T) {
	e := embedderWith(&fakeBatcher{}, 3)

	vectors, err := e.EmbedTexts(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 3)
}

func TestEmbedTextsWrongDim(t *testing.T) {
	// Endpoint serves 3-dim vectors, deployment is configured for 4.
	e := embedderWith(&fakeBatcher{}, 4)

	_, err := e.EmbedTexts(context.Background(), []string{"one"})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestEmbedTextsCountMismatch(t *testing.T) {
	e := embedderWith(&fakeBatcher{vectors: [][]float32{{1, 0, 0}}}, 3)

	_, err := e.EmbedTexts(context.Background(), []string{"one", "two"})
	require.ErrorIs(t, err, core.ErrEmbedding)
	assert.NotErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestEmbedTextsCallFailure(t *testing.T) {
	cause := errors.New("connection refused")
	e := embedderWith(&fakeBatcher{err: cause}, 3)

	_, err := e.EmbedTexts(context.Background(), []string{"one"})
	require.ErrorIs(t, err, core.ErrEmbedding)
	assert.ErrorIs(t, err, cause)
}

func TestEmbedTextSingle(t *testing.T) {
	e := embedderWith(&fakeBatcher{}, 3)

	vector, err := e.EmbedText(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vector)
}

func TestEmbedTextWrongDim(t *testing.T) {
	e := embedderWith(&fakeBatcher{}, 8)

	_, err := e.EmbedText(context.Background(), "one")
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestNewEmbedderConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		e, err := newEmbedder(ai.NewConfig(ai.WithEmbeddingDim(5)))
		require.NoError(t, err)
		assert.Equal(t, 5, e.dim)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := ai.NewConfig()
		cfg.EmbeddingModel = ""
		_, err := NewEmbedder(cfg)
		assert.Error(t, err)
	})
}
