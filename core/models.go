package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentID derives the document ID for a named document within a scope.
// Re-uploading the same scope/name pair yields the same ID, which makes an
// upload of an existing document a replacement rather than a duplicate.
func DocumentID(scopeID, name string) ID {
	return IDFromContent(scopeID + "\x00" + name)
}

// ChunkID derives the chunk ID from its document and ordinal position.
func ChunkID(documentID ID, ordinal int) ID {
	return IDFromContent(strconv.FormatUint(uint64(documentID), 16) + "#" + strconv.Itoa(ordinal))
}

// TaskStatus is the lifecycle state of an ingestion task.
type TaskStatus int

const (
	// TaskQueued means the task is accepted and waiting for a worker.
	TaskQueued TaskStatus = iota + 1
	// TaskProcessing means exactly one worker has claimed the task.
	TaskProcessing
	// TaskComplete means ingestion succeeded and a document was committed.
	TaskComplete
	// TaskFailed means ingestion stopped on a business condition
	// (unsupported format, empty document).
	TaskFailed
	// TaskError means ingestion stopped on an unexpected fault
	// (store unavailable, timeout).
	TaskError
)

// Terminal reports whether the status is final. Terminal statuses never change.
func (s TaskStatus) Terminal() bool {
	return s == TaskComplete || s == TaskFailed || s == TaskError
}

func (s TaskStatus) String() string {
	switch s {
	case TaskQueued:
		return "queued"
	case TaskProcessing:
		return "processing"
	case TaskComplete:
		return "complete"
	case TaskFailed:
		return "failed"
	case TaskError:
		return "error"
	default:
		return "unknown"
	}
}

// IngestionTask tracks the lifecycle of a single background ingestion job.
// Records are immutable snapshots: every transition replaces the whole record,
// and a terminal record is never mutated again.
type IngestionTask struct {
	Id          string // opaque unique token
	Filename    string // source reference
	SizeBytes   int64  // source payload size
	ScopeId     string // target agent/context
	Status      TaskStatus
	Message     string // human-readable progress or failure reason
	DocumentId  ID     // 0 until the task completes
	StartedAt   time.Time
	CompletedAt time.Time // zero until the task is terminal
}

// Document is a committed unit of ingested text. A document and all of its
// chunks become visible to readers atomically, or not at all.
type Document struct {
	Id         ID
	ScopeId    string
	Name       string
	SizeBytes  int64
	InsertedAt time.Time
	Chunks     []Chunk
}

// Chunk is a bounded contiguous span of a document's normalized text,
// embedded independently for retrieval. Ordinals are 0-based, contiguous
// and unique within a document.
type Chunk struct {
	Id         ID
	DocumentId ID
	Ordinal    int
	Text       string
	Vector     []float32
}

// ScoredChunk pairs a chunk with its similarity score for a query.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}

// SpeakerType identifies the source of a conversation turn.
type SpeakerType int

const (
	// SpeakerTypeHuman represents a human user.
	SpeakerTypeHuman SpeakerType = iota + 1
	// SpeakerTypeAI represents an AI assistant.
	SpeakerTypeAI
)

func (s SpeakerType) String() string {
	switch s {
	case SpeakerTypeHuman:
		return "Human"
	case SpeakerTypeAI:
		return "AI"
	default:
		return "unknown"
	}
}

// Turn is a single entry in a session's conversation history.
type Turn struct {
	Speaker   SpeakerType
	Contents  string
	Timestamp time.Time
}
