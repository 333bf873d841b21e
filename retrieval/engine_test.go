package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEmbedder implements ai.Embedder for testing
type testEmbedder struct {
	vectors     map[string][]float32
	fallback    []float32
	shouldError bool
}

func (m *testEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if m.shouldError {
		return nil, errors.New("embedder error")
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return m.fallback, nil
}

func (m *testEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func setupTestEngine(t *testing.T, embedder *testEmbedder, opts ...Option) (*Engine, storage.DocumentRepository) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	opts = append([]Option{WithEmbeddingDim(3)}, opts...)
	engine, err := NewEngine(repo, embedder, opts...)
	require.NoError(t, err)
	return engine, repo
}

func storeDocument(t *testing.T, repo storage.DocumentRepository, scopeID, name string, vectors ...[]float32) {
	t.Helper()
	docID := core.DocumentID(scopeID, name)
	doc := &core.Document{Id: docID, ScopeId: scopeID, Name: name}
	for i, vec := range vectors {
		doc.Chunks = append(doc.Chunks, core.Chunk{
			Id:         core.ChunkID(docID, i),
			DocumentId: docID,
			Ordinal:    i,
			Text:       fmt.Sprintf("%s chunk %d", name, i),
			Vector:     vec,
		})
	}
	require.NoError(t, repo.PutDocument(context.Background(), doc))
}

func TestNewEngine(t *testing.T) {
	embedder := &testEmbedder{fallback: []float32{1, 0, 0}}

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewEngine(nil, embedder)
		assert.Equal(t, ErrRepositoryRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		repo, backend, err := badger.NewMemoryRepository()
		require.NoError(t, err)
		defer func() { repo.Close(); backend.Close() }()

		_, err = NewEngine(repo, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("invalid top-n", func(t *testing.T) {
		repo, backend, err := badger.NewMemoryRepository()
		require.NoError(t, err)
		defer func() { repo.Close(); backend.Close() }()

		_, err = NewEngine(repo, embedder, WithTopN(0))
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestRetrieveRanked(t *testing.T) {
	embedder := &testEmbedder{
		vectors: map[string][]float32{"what about foxes?": {1, 0, 0}},
	}
	engine, repo := setupTestEngine(t, embedder)

	storeDocument(t, repo, "agent-1", "notes.txt",
		[]float32{0, 1, 0}, []float32{1, 0, 0}, []float32{0.9, 0.1, 0})

	results, err := engine.Retrieve(context.Background(), "agent-1", "what about foxes?", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 1, results[0].Chunk.Ordinal, "exact match ranks first")
	assert.Equal(t, 2, results[1].Chunk.Ordinal)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestRetrieveDefaultLimit(t *testing.T) {
	embedder := &testEmbedder{fallback: []float32{1, 0, 0}}
	engine, repo := setupTestEngine(t, embedder, WithTopN(2))

	storeDocument(t, repo, "agent-1", "notes.txt",
		[]float32{1, 0, 0}, []float32{0.9, 0.1, 0}, []float32{0.8, 0.2, 0}, []float32{0.7, 0.3, 0})

	results, err := engine.Retrieve(context.Background(), "agent-1", "query", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2, "non-positive limit falls back to the engine default")
}

func TestRetrieveEmptyScope(t *testing.T) {
	embedder := &testEmbedder{fallback: []float32{1, 0, 0}}
	engine, _ := setupTestEngine(t, embedder)

	results, err := engine.Retrieve(context.Background(), "agent-9", "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results, "an empty scope yields an empty result, not an error")
}

func TestRetrieveScopeIsolation(t *testing.T) {
	embedder := &testEmbedder{fallback: []float32{1, 0, 0}}
	engine, repo := setupTestEngine(t, embedder)

	storeDocument(t, repo, "agent-1", "a.txt", []float32{1, 0, 0})
	storeDocument(t, repo, "agent-2", "b.txt", []float32{1, 0, 0})

	results, err := engine.Retrieve(context.Background(), "agent-1", "query", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.DocumentID("agent-1", "a.txt"), results[0].Chunk.DocumentId)
}

func TestRetrieveValidation(t *testing.T) {
	embedder := &testEmbedder{fallback: []float32{1, 0, 0}}
	engine, _ := setupTestEngine(t, embedder)

	_, err := engine.Retrieve(context.Background(), "", "query", 3)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = engine.Retrieve(context.Background(), "agent-1", "", 3)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRetrieveEmbedderFailure(t *testing.T) {
	embedder := &testEmbedder{shouldError: true}
	engine, _ := setupTestEngine(t, embedder)

	_, err := engine.Retrieve(context.Background(), "agent-1", "query", 3)
	assert.ErrorIs(t, err, core.ErrEmbedding)
}

func TestRetrieveDimensionMismatch(t *testing.T) {
	// Query embedding comes back with the wrong dimensionality.
	embedder := &testEmbedder{fallback: []float32{1, 0}}
	engine, _ := setupTestEngine(t, embedder)

	_, err := engine.Retrieve(context.Background(), "agent-1", "query", 3)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}
