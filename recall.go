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


package recall

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/prompt"
	"github.com/poiesic/recall/query"
	"github.com/poiesic/recall/retrieval"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/tasks"
)

// DefaultBaseInstruction is the system instruction used when none is
// configured.
const DefaultBaseInstruction = "You are a helpful assistant. Answer the query using the provided " +
	"context excerpts. If the context does not contain the answer, say so " +
	"instead of guessing."

// Service composes the whole retrieval-augmented pipeline: a badger-backed
// document store, the task registry, the ingestion pipeline, the retrieval
// engine, the prompt assembler and the query orchestrator.
type Service struct {
	backend      *badger.Backend
	repository   storage.DocumentRepository
	registry     *tasks.Registry
	pipeline     *ingestion.Pipeline
	retriever    *retrieval.Engine
	assembler    *prompt.Assembler
	orchestrator *query.Orchestrator
	provider     ai.Provider
	logger       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig        *ai.Config
	provider        ai.Provider
	transcriber     ai.Transcriber
	inMemory        bool
	baseInstruction string

	chunkSize    int
	chunkOverlap int
	topN         int
	historyK     int
	historyRunes int
	callTimeout  time.Duration
	maxRetries   int
	retryDelay   time.Duration
	poolSize     int
}

// WithAIConfig sets the AI endpoint configuration used to build the default
// provider. Ignored when WithProvider is set.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider supplies an explicit AI provider instead of the default
// OpenAI-compatible one. The service takes ownership and closes it.
func WithProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithTranscriber enables audio queries.
func WithTranscriber(transcriber ai.Transcriber) ServiceOption {
	return func(o *serviceOptions) {
		o.transcriber = transcriber
	}
}

// WithInMemory opens the store in memory, discarding data on Close.
// Intended for tests and experiments.
func WithInMemory() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithBaseInstruction sets the system instruction for assembled prompts.
func WithBaseInstruction(instruction string) ServiceOption {
	return func(o *serviceOptions) {
		o.baseInstruction = instruction
	}
}

// WithChunking sets the sliding-window chunk size and overlap in runes.
func WithChunking(size, overlap int) ServiceOption {
	return func(o *serviceOptions) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithTopN sets how many chunks are retrieved per query.
func WithTopN(n int) ServiceOption {
	return func(o *serviceOptions) {
		o.topN = n
	}
}

// WithHistoryWindow sets the session history policy: at most k recent turns,
// bounded by a total rune budget.
func WithHistoryWindow(k, runes int) ServiceOption {
	return func(o *serviceOptions) {
		o.historyK = k
		o.historyRunes = runes
	}
}

// WithCallTimeout sets the per-call timeout for every external call.
func WithCallTimeout(timeout time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.callTimeout = timeout
	}
}

// WithRetry sets the retry budget for transient ingestion failures.
func WithRetry(maxAttempts int, baseDelay time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.maxRetries = maxAttempts
		o.retryDelay = baseDelay
	}
}

// WithPoolSize sets the ingestion worker pool size.
func WithPoolSize(size int) ServiceOption {
	return func(o *serviceOptions) {
		o.poolSize = size
	}
}

// NewService opens the store at filePath and wires up the full pipeline.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig:        ai.DefaultConfig(),
		baseInstruction: DefaultBaseInstruction,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repository, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			repository.Close()
			backend.Close()
			return nil, err
		}
	}

	registry := tasks.NewRegistry()

	pipeline, err := newPipeline(registry, repository, provider.Embedder(), options)
	if err != nil {
		provider.Close()
		repository.Close()
		backend.Close()
		return nil, err
	}

	cleanup := func() {
		pipeline.Release()
		provider.Close()
		repository.Close()
		backend.Close()
	}

	retriever, err := newRetriever(repository, provider.Embedder(), options)
	if err != nil {
		cleanup()
		return nil, err
	}

	assembler, err := newAssembler(options)
	if err != nil {
		cleanup()
		return nil, err
	}

	orchestrator, err := newOrchestrator(retriever, assembler, provider, options)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &Service{
		backend:      backend,
		repository:   repository,
		registry:     registry,
		pipeline:     pipeline,
		retriever:    retriever,
		assembler:    assembler,
		orchestrator: orchestrator,
		provider:     provider,
		logger:       slog.Default(),
	}, nil
}

func newPipeline(registry *tasks.Registry, repository storage.DocumentRepository, embedder ai.Embedder, options *serviceOptions) (*ingestion.Pipeline, error) {
	var opts []ingestion.Option
	opts = append(opts, ingestion.WithEmbeddingDim(options.aiConfig.EmbeddingDim))
	if options.chunkSize > 0 {
		opts = append(opts, ingestion.WithChunking(options.chunkSize, options.chunkOverlap))
	}
	if options.callTimeout > 0 {
		opts = append(opts, ingestion.WithCallTimeout(options.callTimeout))
	}
	if options.maxRetries > 0 {
		opts = append(opts, ingestion.WithRetry(options.maxRetries, options.retryDelay))
	}
	if options.poolSize > 0 {
		opts = append(opts, ingestion.WithPoolSize(options.poolSize))
	}
	return ingestion.NewPipeline(registry, repository, embedder, opts...)
}

func newRetriever(repository storage.DocumentRepository, embedder ai.Embedder, options *serviceOptions) (*retrieval.Engine, error) {
	var opts []retrieval.Option
	opts = append(opts, retrieval.WithEmbeddingDim(options.aiConfig.EmbeddingDim))
	if options.topN > 0 {
		opts = append(opts, retrieval.WithTopN(options.topN))
	}
	if options.callTimeout > 0 {
		opts = append(opts, retrieval.WithCallTimeout(options.callTimeout))
	}
	return retrieval.NewEngine(repository, embedder, opts...)
}

func newAssembler(options *serviceOptions) (*prompt.Assembler, error) {
	var opts []prompt.Option
	if options.historyK > 0 {
		opts = append(opts, prompt.WithHistoryWindow(options.historyK))
	}
	if options.historyRunes > 0 {
		opts = append(opts, prompt.WithHistoryBudget(options.historyRunes))
	}
	return prompt.NewAssembler(options.baseInstruction, opts...)
}

func newOrchestrator(retriever *retrieval.Engine, assembler *prompt.Assembler, provider ai.Provider, options *serviceOptions) (*query.Orchestrator, error) {
	var opts []query.Option
	if options.transcriber != nil {
		opts = append(opts, query.WithTranscriber(options.transcriber))
	}
	if options.topN > 0 {
		opts = append(opts, query.WithTopN(options.topN))
	}
	if options.callTimeout > 0 {
		opts = append(opts, query.WithCallTimeout(options.callTimeout))
	}
	return query.NewOrchestrator(retriever, assembler, provider.ChatModel(), opts...)
}

// Submit queues a document for background ingestion and returns the created
// task record.
func (s *Service) Submit(ctx context.Context, upload *ingestion.Upload) (*core.IngestionTask, error) {
	return s.pipeline.Submit(ctx, upload)
}

// Task returns a snapshot of an ingestion task. Terminal tasks always return
// the same record.
func (s *Service) Task(taskID string) (*core.IngestionTask, error) {
	return s.registry.Get(taskID)
}

// Answer resolves a query against the scope's documents.
func (s *Service) Answer(ctx context.Context, req *query.Request) (*query.Answer, error) {
	return s.orchestrator.Answer(ctx, req)
}

// Documents lists the document metadata stored for a scope.
func (s *Service) Documents(ctx context.Context, scopeID string) ([]*core.Document, error) {
	return s.repository.ListDocuments(ctx, scopeID)
}

// DeleteDocument removes a document and its chunks from a scope.
func (s *Service) DeleteDocument(ctx context.Context, scopeID string, id core.ID) error {
	return s.repository.DeleteDocument(ctx, scopeID, id)
}

// Repository exposes the underlying document repository.
func (s *Service) Repository() storage.DocumentRepository {
	return s.repository
}

// Sessions exposes the orchestrator's session store.
func (s *Service) Sessions() *query.SessionMemory {
	return s.orchestrator.Sessions()
}

// Close stops the ingestion pipeline and releases every resource. Queued
// tasks that have not started are abandoned.
func (s *Service) Close() error {
	s.pipeline.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.repository.Close(); err != nil {
		s.logger.Error("error closing document repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
