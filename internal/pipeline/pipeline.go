// Package pipeline implements the background indexing pipeline: a
// scanner task that discovers tagged documents and a processor worker
// pool that extracts text, computes embeddings, and upserts them into a
// vector store, coordinated with bounded back-pressure and the HTTP
// server's lifecycle.
package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/stacklok/nc-bridge/internal/bridgeerrors"
	logger "github.com/stacklok/nc-bridge/internal/logging"
)

// defaultCallTimeout bounds every network call a pipeline step makes.
const defaultCallTimeout = 10 * time.Second

// DocumentRef identifies a single candidate document flowing through the
// pipeline. Identity is (UserID, FileID).
type DocumentRef struct {
	UserID       string
	FileID       string
	Path         string
	ContentType  string
	Size         int64
	LastModified time.Time
	ETag         string
	Tags         []string
}

//go:generate mockgen -destination=mocks/mock_pipeline.go -package=mocks github.com/stacklok/nc-bridge/internal/pipeline Scanner,ContentFetcher,DocumentProcessor,EmbeddingService,VectorStore,IndexState

// Scanner discovers files carrying the indexing tag for a user.
type Scanner interface {
	ListTaggedFiles(ctx context.Context, userID string) ([]DocumentRef, error)
}

// ContentFetcher retrieves a document's bytes via WebDAV through the
// Upstream Client Context.
type ContentFetcher interface {
	FetchContent(ctx context.Context, ref DocumentRef) ([]byte, error)
}

// DocumentProcessor extracts plain-text chunks from raw content based on
// MIME type. An external collaborator, dispatched to by content type.
type DocumentProcessor interface {
	ExtractChunks(ctx context.Context, contentType string, content []byte) ([]string, error)
}

// EmbeddingService computes vector embeddings for text chunks. An
// external collaborator.
type EmbeddingService interface {
	Embed(ctx context.Context, chunks []string) ([][]float32, error)
}

// VectorStore upserts one chunk's embedding, keyed by (file_id,
// chunk_index). An external collaborator.
type VectorStore interface {
	Upsert(ctx context.Context, fileID string, chunkIndex int, embedding []float32, text string) error
}

// IndexState tracks the last-observed (file_id, etag) pair so the
// scanner can diff discovered files against what's already indexed.
type IndexState interface {
	Seen(ctx context.Context, userID, fileID, etag string) (bool, error)
	MarkSeen(ctx context.Context, userID, fileID, etag string) error
}

// Config tunes the pipeline's queue and worker pool sizes.
type Config struct {
	QueueMaxSize     int
	ProcessorWorkers int
	ScanInterval     time.Duration
	UserID           string

	// EmbeddingRateLimit caps sustained calls per second into the
	// embedding service across the whole worker pool; zero disables
	// throttling. EmbeddingBurst sets the token bucket's burst size,
	// defaulting to EmbeddingRateLimit when unset.
	EmbeddingRateLimit float64
	EmbeddingBurst     int
}

// Pipeline owns the shared state: a bounded document channel, a
// shutdown event, and a scanner-wake event.
type Pipeline struct {
	cfg Config

	scanner   Scanner
	fetcher   ContentFetcher
	processor DocumentProcessor
	embedder  EmbeddingService
	store     VectorStore
	index     IndexState

	documents   chan DocumentRef
	shutdown    chan struct{}
	shutdownSet sync.Once
	scannerWake chan struct{}

	embedLimiter *rate.Limiter

	wg sync.WaitGroup
}

// New builds a Pipeline. It does not start any goroutines until Start is
// called.
func New(cfg Config, scanner Scanner, fetcher ContentFetcher, processor DocumentProcessor, embedder EmbeddingService, store VectorStore, index IndexState) *Pipeline {
	if cfg.QueueMaxSize <= 0 {
		cfg.QueueMaxSize = 100
	}
	if cfg.ProcessorWorkers <= 0 {
		cfg.ProcessorWorkers = 4
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Minute
	}

	var limiter *rate.Limiter
	if cfg.EmbeddingRateLimit > 0 {
		burst := cfg.EmbeddingBurst
		if burst <= 0 {
			burst = int(cfg.EmbeddingRateLimit)
			if burst <= 0 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), burst)
	}

	return &Pipeline{
		cfg:          cfg,
		scanner:      scanner,
		fetcher:      fetcher,
		processor:    processor,
		embedder:     embedder,
		store:        store,
		index:        index,
		documents:    make(chan DocumentRef, cfg.QueueMaxSize),
		shutdown:     make(chan struct{}),
		scannerWake:  make(chan struct{}, 1),
		embedLimiter: limiter,
	}
}

// Start launches the single scanner task and the processor worker pool.
// Both run until Shutdown is called or ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.runScanner(ctx)

	for i := 0; i < p.cfg.ProcessorWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx)
	}
}

// WakeScanner requests an immediate scan instead of waiting for the next
// periodic interval. Used by the webhook-driven scanner wake receiver.
func (p *Pipeline) WakeScanner() {
	select {
	case p.scannerWake <- struct{}{}:
	default:
		// a wake is already pending; coalescing is fine
	}
}

// Shutdown signals the shutdown event and blocks until the scanner and
// every processor worker have exited.
func (p *Pipeline) Shutdown() {
	p.shutdownSet.Do(func() { close(p.shutdown) })
	p.wg.Wait()
}

func (p *Pipeline) runScanner(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.documents)

	ticker := time.NewTicker(p.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.shutdown:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scanOnce(ctx)
		case <-p.scannerWake:
			p.scanOnce(ctx)
		}
	}
}

func (p *Pipeline) scanOnce(ctx context.Context) {
	scanCtx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	refs, err := p.scanner.ListTaggedFiles(scanCtx, p.cfg.UserID)
	if err != nil {
		logger.Warnf("scanner failed to list tagged files: %v", err)
		return
	}

	for _, ref := range refs {
		seen, err := p.index.Seen(scanCtx, ref.UserID, ref.FileID, ref.ETag)
		if err != nil {
			logger.Warnf("index state lookup failed for %s/%s: %v", ref.UserID, ref.FileID, err)
			continue
		}
		if seen {
			continue
		}
		select {
		case p.documents <- ref:
		case <-p.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) runWorker(ctx context.Context) {
	defer p.wg.Done()
	for ref := range p.documents {
		p.processDocument(ctx, ref)
	}
}

func (p *Pipeline) processDocument(ctx context.Context, ref DocumentRef) {
	callCtx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	content, err := p.fetcher.FetchContent(callCtx, ref)
	if err != nil {
		logger.Warnf("failed to fetch content for %s: %v", ref.FileID, err)
		return
	}

	chunks, err := p.processor.ExtractChunks(callCtx, ref.ContentType, content)
	if err != nil {
		logger.Warnf("failed to extract text for %s: %v", ref.FileID, err)
		return
	}
	if len(chunks) == 0 {
		return
	}

	if p.embedLimiter != nil {
		if err := p.embedLimiter.Wait(callCtx); err != nil {
			logger.Warnf("embedding rate limiter wait aborted for %s: %v", ref.FileID, err)
			return
		}
	}

	embeddings, err := p.embedder.Embed(callCtx, chunks)
	if err != nil {
		logger.Warnf("failed to compute embeddings for %s: %v", ref.FileID, err)
		return
	}

	// Partial failures do not roll back earlier chunk upserts; a failed
	// chunk is simply re-processed on the next observed change.
	for i, embedding := range embeddings {
		if i >= len(chunks) {
			break
		}
		if err := p.store.Upsert(callCtx, ref.FileID, i, embedding, chunks[i]); err != nil {
			logger.Warnf("failed to upsert chunk %d of %s: %v", i, ref.FileID, err)
		}
	}

	if err := p.index.MarkSeen(callCtx, ref.UserID, ref.FileID, ref.ETag); err != nil {
		logger.Warnf("failed to record indexed state for %s: %v", ref.FileID, err)
	}
}

// ErrPipelineDisabled is returned by callers that attempt to build a
// pipeline when indexing has been turned off in configuration.
var ErrPipelineDisabled = bridgeerrors.NewPipelineError("background indexing pipeline is disabled", nil)
