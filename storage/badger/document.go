package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is nil", core.ErrValidation)
	}
	return &DocumentRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *DocumentRepository) Close() error {
	return nil
}

// PutDocument commits a document and all of its chunks in one transaction.
// A prior document with the same ID is replaced, chunks included.
func (r *DocumentRepository) PutDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	if doc.Id == 0 {
		doc.Id = core.DocumentID(doc.ScopeId, doc.Name)
	}
	if doc.InsertedAt.IsZero() {
		doc.InsertedAt = time.Now().UTC()
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Drop the chunks of any prior version of this document.
		if err := deletePrefix(tx, makeChunkDocPrefix(doc.ScopeId, doc.Id)); err != nil {
			return err
		}

		// Metadata record carries no chunk payload.
		meta := *doc
		meta.Chunks = nil
		if err := tx.Set(makeDocumentKey(doc.ScopeId, doc.Id), storage.MarshalDocument(&meta)); err != nil {
			return err
		}

		for i := range doc.Chunks {
			chunk := &doc.Chunks[i]
			key := makeChunkKey(doc.ScopeId, doc.Id, chunk.Ordinal)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStore, err)
	}
	return nil
}

// GetDocument retrieves a document with its chunks in ordinal order.
func (r *DocumentRepository) GetDocument(ctx context.Context, scopeID string, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, makeDocumentKey(scopeID, id))
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: document %d in scope %q", core.ErrNotFound, id, scopeID)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkDocPrefix(scopeID, id)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				doc.Chunks = append(doc.Chunks, *chunk)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return doc, nil
}

// DeleteDocument removes a document and all of its chunks.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, scopeID string, id core.ID) error {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(scopeID, id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: document %d in scope %q", core.ErrNotFound, id, scopeID)
		}
		if err := deletePrefix(tx, makeChunkDocPrefix(scopeID, id)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	return wrapStoreErr(err)
}

// ListDocuments returns document metadata for a scope, ordered by ID.
func (r *DocumentRepository) ListDocuments(ctx context.Context, scopeID string) ([]*core.Document, error) {
	docs := []*core.Document{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocumentScopePrefix(scopeID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				doc, err := storage.UnmarshalDocument(val)
				if err != nil {
					return err
				}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStore, err)
	}
	return docs, nil
}

// FindSimilar ranks every chunk in the scope by cosine similarity to the
// query vector. Results are ordered by descending score; ties break by
// ascending chunk ordinal, then document ID.
func (r *DocumentRepository) FindSimilar(ctx context.Context, scopeID string, vector []float32, limit int) ([]*core.ScoredChunk, error) {
	results := []*core.ScoredChunk{}
	if limit <= 0 {
		return results, nil
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkScopePrefix(scopeID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				results = append(results, &core.ScoredChunk{
					Chunk: chunk,
					Score: cosineSimilarity(vector, chunk.Vector),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStore, err)
	}

	slices.SortFunc(results, func(a, b *core.ScoredChunk) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.Chunk.Ordinal != b.Chunk.Ordinal {
			return a.Chunk.Ordinal - b.Chunk.Ordinal
		}
		if a.Chunk.DocumentId != b.Chunk.DocumentId {
			if a.Chunk.DocumentId < b.Chunk.DocumentId {
				return -1
			}
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// readDocument reads and unmarshals a document by key.
// Returns nil without error if the key doesn't exist.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

// deletePrefix deletes every key matching the prefix within the transaction.
func deletePrefix(tx *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// wrapStoreErr wraps backend failures as core.ErrStore while letting
// taxonomy errors pass through unchanged.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if core.IsBusiness(err) || core.IsTransient(err) {
		return err
	}
	if errors.Is(err, core.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrStore, err)
}
