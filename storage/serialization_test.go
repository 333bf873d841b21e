package storage

import (
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	id := core.IDFromContent("test content")

	data := MarshalID(id)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalID(data)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	docID := core.DocumentID("agent-1", "notes.txt")
	chunk := &core.Chunk{
		Id:         core.ChunkID(docID, 2),
		DocumentId: docID,
		Ordinal:    2,
		Text:       "some chunk text with unicode: héllo",
		Vector:     []float32{0.1, -0.2, 0.3},
	}

	decoded, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestMarshalUnmarshalDocument(t *testing.T) {
	docID := core.DocumentID("agent-1", "notes.txt")
	doc := &core.Document{
		Id:         docID,
		ScopeId:    "agent-1",
		Name:       "notes.txt",
		SizeBytes:  2048,
		InsertedAt: time.Now().UTC().Truncate(time.Microsecond),
		Chunks: []core.Chunk{
			{Id: core.ChunkID(docID, 0), DocumentId: docID, Ordinal: 0, Text: "first", Vector: []float32{1, 0}},
			{Id: core.ChunkID(docID, 1), DocumentId: docID, Ordinal: 1, Text: "second", Vector: []float32{0, 1}},
		},
	}

	decoded, err := UnmarshalDocument(MarshalDocument(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

func TestUnmarshalInvalidData(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalDocument([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalChunk([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
