package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/extract"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/tasks"
)

const tempFilePrefix = "recall-upload-"

// Pipeline orchestrates asynchronous document ingestion: spool the upload to
// a temporary file, extract its text, chunk it with a sliding window, embed
// every chunk and commit the document to the store as a single atomic
// publish, driving the task registry through its lifecycle along the way.
type Pipeline struct {
	registry   *tasks.Registry
	repository storage.DocumentRepository
	extractors *extract.Registry
	embedder   ai.Embedder
	pool       *ants.Pool
	janitor    *janitor

	chunkSize    int
	chunkOverlap int
	embeddingDim int
	callTimeout  time.Duration
	maxRetries   int
	retryDelay   time.Duration
	tempDir      string
	tempFileTTL  time.Duration
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunking sets the sliding-window chunk size and overlap in runes.
// Defaults are 1000 and 100. Overlap must be smaller than size.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if size <= 0 || overlap < 0 || overlap >= size {
			return ErrInvalidChunking
		}
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithEmbeddingDim sets the expected embedding dimensionality.
// Default is 768.
func WithEmbeddingDim(dim int) Option {
	return func(p *Pipeline) error {
		if dim < 1 {
			return fmt.Errorf("%w: embedding dimensionality must be positive", core.ErrValidation)
		}
		p.embeddingDim = dim
		return nil
	}
}

// WithCallTimeout sets the per-call timeout for external calls (embedding,
// store). Default is 30s.
func WithCallTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: call timeout must be positive", core.ErrValidation)
		}
		p.callTimeout = timeout
		return nil
	}
}

// WithRetry sets the retry budget for transient failures.
// Defaults are 3 attempts with a 500ms base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.maxRetries = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithTempDir sets the spool directory for uploaded payloads.
// Default is os.TempDir().
func WithTempDir(dir string) Option {
	return func(p *Pipeline) error {
		p.tempDir = dir
		return nil
	}
}

// WithTempFileTTL sets how long an orphaned spool file may live before the
// janitor reclaims it. Default is 15 minutes.
func WithTempFileTTL(ttl time.Duration) Option {
	return func(p *Pipeline) error {
		if ttl <= 0 {
			return fmt.Errorf("%w: temp file TTL must be positive", core.ErrValidation)
		}
		p.tempFileTTL = ttl
		return nil
	}
}

// WithExtractors sets a custom extraction registry.
// Default is extract.NewRegistry().
func WithExtractors(registry *extract.Registry) Option {
	return func(p *Pipeline) error {
		if registry != nil {
			p.extractors = registry
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	registry *tasks.Registry,
	repository storage.DocumentRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		registry:     registry,
		repository:   repository,
		extractors:   extract.NewRegistry(),
		embedder:     embedder,
		pool:         pool,
		chunkSize:    1000,
		chunkOverlap: 100,
		embeddingDim: 768,
		callTimeout:  30 * time.Second,
		maxRetries:   3,
		retryDelay:   500 * time.Millisecond,
		tempDir:      os.TempDir(),
		tempFileTTL:  15 * time.Minute,
		logger:       slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.pool.Release()
			return nil, optErr
		}
	}

	p.janitor = newJanitor(p.tempDir, p.tempFileTTL, p.tempFileTTL/3, p.logger)
	p.janitor.start()

	return p, nil
}

// Upload is a document submission for background ingestion.
type Upload struct {
	Filename string
	ScopeId  string
	Data     io.Reader
}

// Submit accepts an upload, spools its payload and schedules background
// ingestion, returning the queued task record. The returned record is a
// snapshot; poll the registry for progress. Cancelling the submission
// context does not cancel the scheduled ingestion.
func (p *Pipeline) Submit(ctx context.Context, upload *Upload) (*core.IngestionTask, error) {
	if upload == nil || upload.Filename == "" || upload.ScopeId == "" || upload.Data == nil {
		return nil, fmt.Errorf("%w: upload requires filename, scope id and payload", core.ErrValidation)
	}

	path, size, err := p.spool(upload)
	if err != nil {
		return nil, err
	}

	task := p.registry.Create(filepath.Base(upload.Filename), size, upload.ScopeId)

	submitErr := p.pool.Submit(func() {
		p.run(task.Id, path, upload.ScopeId, filepath.Base(upload.Filename), size)
	})
	if submitErr != nil {
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			p.logger.Warn("failed to remove spool file", "path", path, "err", removeErr)
		}
		if p.registry.Claim(task.Id) {
			if err := p.registry.Error(task.Id, "worker pool rejected task: "+submitErr.Error()); err != nil {
				p.logger.Error("failed to record pool rejection", "taskID", task.Id, "err", err)
			}
		}
		return nil, fmt.Errorf("submit ingestion task: %w", submitErr)
	}

	return task, nil
}

// Release stops the janitor and the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.janitor != nil {
		p.janitor.release()
	}
	if p.pool != nil {
		p.pool.Release()
	}
}

// spool copies the upload payload to a temporary file, preserving the
// extension so the extractor registry can dispatch on it.
func (p *Pipeline) spool(upload *Upload) (string, int64, error) {
	file, err := os.CreateTemp(p.tempDir, tempFilePrefix+"*"+filepath.Ext(upload.Filename))
	if err != nil {
		return "", 0, fmt.Errorf("create spool file: %w", err)
	}

	size, err := io.Copy(file, upload.Data)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if removeErr := os.Remove(file.Name()); removeErr != nil && !os.IsNotExist(removeErr) {
			p.logger.Warn("failed to remove spool file", "path", file.Name(), "err", removeErr)
		}
		return "", 0, fmt.Errorf("spool upload payload: %w", err)
	}

	return file.Name(), size, nil
}

// run executes one ingestion job on a pool worker. Errors are recorded on the
// task, never propagated: business conditions end as failed, unexpected
// faults as error. The spool file is removed on every exit path.
func (p *Pipeline) run(taskID, path, scopeID, filename string, size int64) {
	ctx := context.Background()

	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("failed to remove spool file", "path", path, "err", err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("ingestion worker panicked", "taskID", taskID, "panic", r)
			if err := p.registry.Error(taskID, fmt.Sprintf("internal fault: %v", r)); err != nil {
				p.logger.Error("failed to record panic", "taskID", taskID, "err", err)
			}
		}
	}()

	if !p.registry.Claim(taskID) {
		p.logger.Warn("task not claimable, skipping", "taskID", taskID)
		return
	}

	docID, err := p.ingest(ctx, path, scopeID, filename, size)
	if err != nil {
		if core.IsBusiness(err) {
			p.logger.Info("ingestion failed", "taskID", taskID, "reason", err)
			if ferr := p.registry.Fail(taskID, err.Error()); ferr != nil {
				p.logger.Error("failed to record failure", "taskID", taskID, "err", ferr)
			}
		} else {
			p.logger.Error("ingestion errored", "taskID", taskID, "err", err)
			if ferr := p.registry.Error(taskID, err.Error()); ferr != nil {
				p.logger.Error("failed to record error", "taskID", taskID, "err", ferr)
			}
		}
		return
	}

	if err := p.registry.Complete(taskID, docID); err != nil {
		p.logger.Error("failed to record completion", "taskID", taskID, "err", err)
		return
	}
	p.logger.Info("ingestion complete", "taskID", taskID, "documentID", docID, "scopeID", scopeID)
}

// ingest performs the extract -> chunk -> embed -> commit sequence and
// returns the committed document id.
func (p *Pipeline) ingest(ctx context.Context, path, scopeID, filename string, size int64) (core.ID, error) {
	text, err := p.extractors.ExtractFile(ctx, path)
	if err != nil {
		return 0, err
	}

	normalized := Normalize(text)
	if normalized == "" {
		return 0, fmt.Errorf("%w: %q", core.ErrEmptyContent, filename)
	}

	chunkTexts := Chunks(normalized, p.chunkSize, p.chunkOverlap)

	vectors, err := p.embedChunks(ctx, chunkTexts)
	if err != nil {
		return 0, err
	}

	docID := core.DocumentID(scopeID, filename)
	doc := &core.Document{
		Id:        docID,
		ScopeId:   scopeID,
		Name:      filename,
		SizeBytes: size,
		Chunks:    make([]core.Chunk, len(chunkTexts)),
	}
	for i := range chunkTexts {
		if err := core.ValidateVectorDim(vectors[i], p.embeddingDim); err != nil {
			return 0, fmt.Errorf("chunk %d: %w", i, err)
		}
		doc.Chunks[i] = core.Chunk{
			Id:         core.ChunkID(docID, i),
			DocumentId: docID,
			Ordinal:    i,
			Text:       chunkTexts[i],
			Vector:     vectors[i],
		}
	}

	err = retryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
		return p.repository.PutDocument(callCtx, doc)
	}, p.maxRetries, p.retryDelay)
	if err != nil {
		return 0, err
	}

	return docID, nil
}

// embedChunks embeds every chunk in one batch call, with a per-call timeout
// and bounded retries for transient failures.
func (p *Pipeline) embedChunks(ctx context.Context, chunkTexts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		defer cancel()

		vs, err := p.embedder.EmbedTexts(callCtx, chunkTexts)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: embedding call: %v", core.ErrTimeout, err)
			}
			return fmt.Errorf("%w: %v", core.ErrEmbedding, err)
		}
		if len(vs) != len(chunkTexts) {
			return fmt.Errorf("%w: got %d vectors for %d chunks", core.ErrEmbedding, len(vs), len(chunkTexts))
		}
		vectors = vs
		return nil
	}, p.maxRetries, p.retryDelay)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
