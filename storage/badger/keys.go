package badger

import (
	"fmt"

	"github.com/poiesic/recall/core"
)

// Key prefixes for different data types
const (
	documentPrefix = "docrec"
	chunkPrefix    = "churec"
)

// scopeKey hashes a scope id into a fixed-width segment. Scope ids are
// caller-supplied strings, so hashing keeps keys delimiter-safe and makes
// prefix scans for one scope unable to overlap another.
func scopeKey(scopeID string) string {
	return fmt.Sprintf("%016x", uint64(core.IDFromContent(scopeID)))
}

// makeDocumentKey generates a key for a document by scope and ID.
func makeDocumentKey(scopeID string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%016x", documentPrefix, scopeKey(scopeID), uint64(id)))
}

// makeDocumentScopePrefix generates the key prefix covering all documents in a scope.
func makeDocumentScopePrefix(scopeID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", documentPrefix, scopeKey(scopeID)))
}

// makeChunkKey generates a key for a chunk by scope, document and ordinal.
// The ordinal is fixed-width so iteration yields chunks in ordinal order.
func makeChunkKey(scopeID string, docID core.ID, ordinal int) []byte {
	return []byte(fmt.Sprintf("%s:%s:%016x:%08x", chunkPrefix, scopeKey(scopeID), uint64(docID), ordinal))
}

// makeChunkDocPrefix generates the key prefix covering all chunks of a document.
func makeChunkDocPrefix(scopeID string, docID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%016x:", chunkPrefix, scopeKey(scopeID), uint64(docID)))
}

// makeChunkScopePrefix generates the key prefix covering all chunks in a scope.
func makeChunkScopePrefix(scopeID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkPrefix, scopeKey(scopeID)))
}
