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


package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Engine retrieves the chunks most relevant to a query text within a scope.
// The query is embedded with the same model that embedded the corpus, then
// ranked against the scope's chunks by cosine similarity.
type Engine struct {
	repository   storage.DocumentRepository
	embedder     ai.Embedder
	embeddingDim int
	topN         int
	callTimeout  time.Duration
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithTopN sets the default number of chunks returned by Retrieve.
// Default is 3.
func WithTopN(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("%w: top-n must be positive", core.ErrValidation)
		}
		e.topN = n
		return nil
	}
}

// WithEmbeddingDim sets the expected query vector dimensionality.
// Default is 768.
func WithEmbeddingDim(dim int) Option {
	return func(e *Engine) error {
		if dim < 1 {
			return fmt.Errorf("%w: embedding dimensionality must be positive", core.ErrValidation)
		}
		e.embeddingDim = dim
		return nil
	}
}

// WithCallTimeout sets the per-call timeout for embedding and store calls.
// Default is 30s.
func WithCallTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: call timeout must be positive", core.ErrValidation)
		}
		e.callTimeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a retrieval engine over the given repository and embedder.
func NewEngine(repository storage.DocumentRepository, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		repository:   repository,
		embedder:     embedder,
		embeddingDim: 768,
		topN:         3,
		callTimeout:  30 * time.Second,
		logger:       slog.Default().With("component", "retrieval"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Retrieve embeds the query and returns up to limit chunks from scopeID
// ranked by descending similarity. A limit <= 0 uses the engine default.
// Ties break on ascending ordinal, then ascending document id, so results
// are deterministic for a fixed corpus. An empty or unknown scope yields an
// empty slice, not an error.
func (e *Engine) Retrieve(ctx context.Context, scopeID, query string, limit int) ([]*core.ScoredChunk, error) {
	if scopeID == "" {
		return nil, fmt.Errorf("%w: scope id required", core.ErrValidation)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query text required", core.ErrValidation)
	}
	if limit <= 0 {
		limit = e.topN
	}

	embedCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	vector, err := e.embedder.EmbedText(embedCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: query embedding: %v", core.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: query embedding: %v", core.ErrEmbedding, err)
	}
	if err := core.ValidateVectorDim(vector, e.embeddingDim); err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}

	findCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	scored, err := e.repository.FindSimilar(findCtx, scopeID, vector, limit)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("retrieved chunks", "scopeID", scopeID, "limit", limit, "found", len(scored))
	return scored, nil
}
