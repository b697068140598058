package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jandamek/jervis/pkg/config"
	"github.com/jandamek/jervis/pkg/indexing/ledger"
	"github.com/jandamek/jervis/pkg/llmgateway"
	"github.com/jandamek/jervis/pkg/vectorstore"
)

// ContentMasker redacts secrets/credentials out of a chunk of ingested text
// before it reaches the vector store. *masking.MaskingService satisfies
// this via MaskAlertData, fail-open on a masking error (the chunk is
// indexed unmasked rather than dropped).
type ContentMasker interface {
	MaskAlertData(data string) string
}

const (
	laneCode  = "code"
	laneText  = "text"
	laneClass = "class"
)

// classChunksSchema is the response shape the class-analysis-summary
// promptType must satisfy: an array of short, independent summary chunks.
var classChunksSchema = []byte(`{"type":"array","items":{"type":"string"},"minItems":1}`)

// VectorStore is the subset of *vectorstore.Gateway stage P4 and the
// splitter need, narrowed the same way pkg/mcp's ToolExecutorInterface
// narrows the tool registry for C10.
type VectorStore interface {
	Upsert(ctx context.Context, modelName string, dimension int, doc vectorstore.RagDocument, vector []float32) (string, error)
	DeleteByFilter(ctx context.Context, modelName string, dimension int, filter map[string]string) (int, error)
}

// StatusLedger is the subset of *ledger.Ledger the pipeline needs.
type StatusLedger interface {
	ShouldIndex(ctx context.Context, projectID, path, commitHash, contentHash string) (bool, error)
	CompleteIndexing(ctx context.Context, projectID, path, commitHash string, contents []ledger.ContentEntry) error
	LastDimensions(ctx context.Context, projectID, path string) (map[string]int, error)
}

// Pipeline is C6. One Pipeline serves many sequential Run calls; it caches
// each embedding model's vector dimension after the first call so later
// runs can pre-delete a file's prior vectors before the dimension is
// otherwise known.
type Pipeline struct {
	ledger   StatusLedger
	store    VectorStore
	gateway  *llmgateway.Gateway
	embedder Embedder
	cfg      *config.PipelineConfig
	masker   ContentMasker

	dimMu sync.Mutex
	dim   map[string]int
}

// SetMasker wires a ContentMasker (*masking.MaskingService in production)
// that redacts secrets out of each chunk before it is upserted. Optional:
// a nil masker (the default) stores chunks unmasked, exactly as before
// this was wired.
func (p *Pipeline) SetMasker(masker ContentMasker) {
	p.masker = masker
}

// New builds the indexing pipeline from its already-constructed
// dependencies (C7 ledger, C8 vector store, C9 LLM gateway, the embedder
// backing stage P3's code/text lanes).
func New(l StatusLedger, store VectorStore, gateway *llmgateway.Gateway, embedder Embedder, cfg *config.PipelineConfig) *Pipeline {
	return &Pipeline{ledger: l, store: store, gateway: gateway, embedder: embedder, cfg: cfg, dim: map[string]int{}}
}

// fileTracker accounts for a single file's in-flight vectors: how many
// embedding items were dispatched for it, how many have been stored so far,
// and whether discovery has moved on to another file (so no more items for
// this one are coming). completeIndexing fires exactly once, when both
// conditions hold.
type fileTracker struct {
	mu           sync.Mutex
	commitHash   string
	dispatched   int
	stored       int
	discoveryEnd bool
	contents     []ledger.ContentEntry
}

// Run drains source for projectID, routing each symbol to its embedding
// lane(s), storing the resulting vectors in C8, and marking each file
// INDEXED in C7 once all its vectors have landed. Cancelling ctx stops the
// pipeline at the next channel operation in every stage.
func (p *Pipeline) Run(ctx context.Context, projectID, commitHash string, source Source) error {
	itemsCh, discoverErrCh := source.Discover(ctx, projectID)

	codeCh := make(chan AnalysisItem, p.cfg.ChannelBufferSize)
	textCh := make(chan AnalysisItem, p.cfg.ChannelBufferSize)
	classCh := make(chan AnalysisItem, p.cfg.ChannelBufferSize)
	embeddingsCh := make(chan EmbeddingItem, p.cfg.ChannelBufferSize)

	trackers := &sync.Map{} // filePath -> *fileTracker

	var wg sync.WaitGroup
	errs := make(chan error, 8)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(codeCh)
		defer close(textCh)
		defer close(classCh)
		if err := p.runSplitter(ctx, projectID, commitHash, itemsCh, trackers, codeCh, textCh, classCh); err != nil {
			errs <- fmt.Errorf("splitter: %w", err)
		}
	}()

	var laneWG sync.WaitGroup
	laneWG.Add(3)
	go func() { defer laneWG.Done(); p.runCodeLane(ctx, codeCh, embeddingsCh, errs) }()
	go func() { defer laneWG.Done(); p.runTextLane(ctx, textCh, embeddingsCh, errs) }()
	go func() { defer laneWG.Done(); p.runClassLane(ctx, classCh, embeddingsCh, errs) }()
	go func() {
		laneWG.Wait()
		close(embeddingsCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.runStorageWorkers(ctx, projectID, embeddingsCh, trackers, errs)
	}()

	wg.Wait()

	select {
	case err := <-discoverErrCh:
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}
	default:
	}

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

// runSplitter consumes discovered symbols, pre-deletes a file's prior
// vectors the first time it sees that file in this run, skips symbols C7
// already has current content for, and routes the rest to their lane(s).
func (p *Pipeline) runSplitter(ctx context.Context, projectID, commitHash string, items <-chan AnalysisItem, trackers *sync.Map, codeCh, textCh, classCh chan<- AnalysisItem) error {
	var currentFile string
	var currentTracker *fileTracker

	finishFile := func() {
		if currentTracker == nil {
			return
		}
		currentTracker.mu.Lock()
		currentTracker.discoveryEnd = true
		// A file with nothing dispatched means every symbol was unchanged
		// (ShouldIndex said skip for all of them): its existing ledger
		// record is still accurate, so there is nothing to complete.
		done := currentTracker.dispatched > 0 && currentTracker.stored == currentTracker.dispatched
		currentTracker.mu.Unlock()
		if done {
			p.finishIndexing(ctx, projectID, currentFile, currentTracker)
		}
	}

	for {
		select {
		case <-ctx.Done():
			finishFile()
			return ctx.Err()
		case item, ok := <-items:
			if !ok {
				finishFile()
				return nil
			}

			if item.FilePath != currentFile {
				finishFile()
				currentFile = item.FilePath
				if err := p.deletePriorVectors(ctx, projectID, currentFile); err != nil {
					slog.Warn("indexing: delete prior vectors failed", "project_id", projectID, "file_path", currentFile, "error", err)
				}
				currentTracker = &fileTracker{commitHash: commitHash}
				trackers.Store(currentFile, currentTracker)
			}

			should, err := p.ledger.ShouldIndex(ctx, projectID, item.FilePath, commitHash, item.Symbol.ContentHash())
			if err != nil {
				return fmt.Errorf("ledger.ShouldIndex %s: %w", item.FilePath, err)
			}
			if !should {
				continue
			}

			lanes := lanesFor(item.Symbol)
			if len(lanes) == 0 {
				continue
			}

			currentTracker.mu.Lock()
			currentTracker.dispatched += len(lanes)
			currentTracker.mu.Unlock()

			for _, lane := range lanes {
				var dst chan<- AnalysisItem
				switch lane {
				case laneCode:
					dst = codeCh
				case laneText:
					dst = textCh
				case laneClass:
					dst = classCh
				}
				select {
				case dst <- item:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// lanesFor implements the symbol-type routing table: which of the three
// embedding lanes a symbol's content is sent to.
func lanesFor(s Symbol) []string {
	switch s.Type {
	case SymbolMethod, SymbolFunction:
		if s.Code == "" {
			return nil
		}
		return []string{laneCode, laneText}
	case SymbolClass:
		return []string{laneClass}
	case SymbolField, SymbolVariable, SymbolParameter:
		if s.Code == "" {
			return nil
		}
		return []string{laneCode}
	default:
		return nil
	}
}

// deletePriorVectors removes filePath's previously-stored vectors before
// re-indexing it. The in-memory dimension cache only reflects embeddings
// done by this process; on a fresh process (cache empty) it falls back to
// the ledger's last-recorded dimension per model, so a file re-indexed
// after a restart still has its stale vectors removed (Invariant: no stale
// vector id survives a re-index).
func (p *Pipeline) deletePriorVectors(ctx context.Context, projectID, filePath string) error {
	filter := map[string]string{"project_id": projectID, "file_path": filePath}

	var fallback map[string]int
	for _, model := range []string{p.cfg.CodeEmbeddingModel, p.cfg.TextEmbeddingModel} {
		if model == "" {
			continue
		}
		dim, ok := p.dimension(model)
		if !ok {
			if fallback == nil {
				var err error
				fallback, err = p.ledger.LastDimensions(ctx, projectID, filePath)
				if err != nil {
					return fmt.Errorf("look up last known dimensions for %s: %w", filePath, err)
				}
			}
			dim, ok = fallback[model]
		}
		if !ok {
			continue // no vectors have ever been written under this model; nothing to delete
		}
		if _, err := p.store.DeleteByFilter(ctx, model, dim, filter); err != nil {
			return err
		}
		p.setDimension(model, dim)
	}
	return nil
}

func (p *Pipeline) dimension(model string) (int, bool) {
	p.dimMu.Lock()
	defer p.dimMu.Unlock()
	d, ok := p.dim[model]
	return d, ok
}

func (p *Pipeline) setDimension(model string, dim int) {
	p.dimMu.Lock()
	defer p.dimMu.Unlock()
	p.dim[model] = dim
}

func (p *Pipeline) runCodeLane(ctx context.Context, in <-chan AnalysisItem, out chan<- EmbeddingItem, errs chan<- error) {
	p.runEmbedLane(ctx, p.cfg.CodeEmbeddingModel, in, out, errs)
}

func (p *Pipeline) runTextLane(ctx context.Context, in <-chan AnalysisItem, out chan<- EmbeddingItem, errs chan<- error) {
	p.runEmbedLane(ctx, p.cfg.TextEmbeddingModel, in, out, errs)
}

// runEmbedLane embeds each item's raw content directly under model: shared
// by the code lane and the text lane, which differ only in which model
// they embed under.
func (p *Pipeline) runEmbedLane(ctx context.Context, model string, in <-chan AnalysisItem, out chan<- EmbeddingItem, errs chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-in:
			if !ok {
				return
			}
			start := time.Now()
			vectors, err := p.embedder.Embed(ctx, model, []string{item.Symbol.Code})
			if err != nil {
				errs <- fmt.Errorf("embed %s (%s): %w", item.FilePath, model, err)
				continue
			}
			if len(vectors) != 1 {
				errs <- fmt.Errorf("embed %s (%s): expected 1 vector, got %d", item.FilePath, model, len(vectors))
				continue
			}
			p.setDimension(model, len(vectors[0]))

			select {
			case out <- EmbeddingItem{
				Item:         item,
				Content:      item.Symbol.Code,
				Vector:       vectors[0],
				ModelName:    model,
				ChunkIndex:   0,
				TotalChunks:  1,
				ProcessingMs: time.Since(start).Milliseconds(),
			}:
			case <-ctx.Done():
				return
			}
		}
	}
}

type classSummaryValue []string

// runClassLane calls the LLM gateway to produce summary chunks for a class
// symbol, then embeds each chunk under the text embedding model.
func (p *Pipeline) runClassLane(ctx context.Context, in <-chan AnalysisItem, out chan<- EmbeddingItem, errs chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-in:
			if !ok {
				return
			}
			start := time.Now()

			resp, err := llmgateway.CallLLM[classSummaryValue](ctx, p.gateway, "class-analysis-summary", classChunksSchema, false,
				map[string]any{"symbol": item.Symbol.FullName, "filePath": item.FilePath, "source": item.Symbol.Code},
				"en", false)
			if err != nil {
				errs <- fmt.Errorf("class-analysis-summary %s: %w", item.FilePath, err)
				continue
			}

			vectors, err := p.embedder.Embed(ctx, p.cfg.TextEmbeddingModel, resp.Value)
			if err != nil {
				errs <- fmt.Errorf("embed class chunks %s: %w", item.FilePath, err)
				continue
			}
			for i, vec := range vectors {
				p.setDimension(p.cfg.TextEmbeddingModel, len(vec))
				select {
				case out <- EmbeddingItem{
					Item:         item,
					Content:      resp.Value[i],
					Vector:       vec,
					ModelName:    p.cfg.TextEmbeddingModel,
					ChunkIndex:   i,
					TotalChunks:  len(vectors),
					ProcessingMs: time.Since(start).Milliseconds(),
				}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// runStorageWorkers is stage P4: a fixed pool of goroutines upserting
// embedded chunks into C8 and recording each one against its file's
// tracker, completing the file's C7 record once every dispatched chunk for
// it has been stored.
func (p *Pipeline) runStorageWorkers(ctx context.Context, projectID string, in <-chan EmbeddingItem, trackers *sync.Map, errs chan<- error) {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.StorageWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case item, ok := <-in:
					if !ok {
						return
					}
					p.storeOne(ctx, projectID, item, trackers, errs)
				}
			}
		}()
	}
	wg.Wait()
}

func (p *Pipeline) storeOne(ctx context.Context, projectID string, item EmbeddingItem, trackers *sync.Map, errs chan<- error) {
	content := item.Content
	if p.masker != nil {
		content = p.masker.MaskAlertData(content)
	}

	doc := vectorstore.RagDocument{
		ProjectID:   projectID,
		FilePath:    item.Item.FilePath,
		Symbol:      item.Item.Symbol.FullName,
		Description: item.Item.Symbol.Signature,
		Content:     content,
		Payload:     map[string]string{"symbol_type": string(item.Item.Symbol.Type)},
	}

	vectorID, err := p.store.Upsert(ctx, item.ModelName, len(item.Vector), doc, item.Vector)
	if err != nil {
		errs <- fmt.Errorf("upsert %s: %w", item.Item.FilePath, err)
		return
	}

	trackerAny, ok := trackers.Load(item.Item.FilePath)
	if !ok {
		return
	}
	tracker := trackerAny.(*fileTracker)

	tracker.mu.Lock()
	tracker.stored++
	tracker.contents = append(tracker.contents, ledger.ContentEntry{
		VectorID:    vectorID,
		ContentHash: item.Item.Symbol.ContentHash(),
		Length:      len(item.Content),
		Description: item.Item.Symbol.Signature,
		ModelName:   item.ModelName,
		Dimension:   len(item.Vector),
	})
	done := tracker.discoveryEnd && tracker.stored == tracker.dispatched
	tracker.mu.Unlock()

	if done {
		p.finishIndexing(ctx, projectID, item.Item.FilePath, tracker)
	}
}

func (p *Pipeline) finishIndexing(ctx context.Context, projectID, filePath string, tracker *fileTracker) {
	if err := p.ledger.CompleteIndexing(ctx, projectID, filePath, tracker.commitHash, tracker.contents); err != nil {
		slog.Error("indexing: complete indexing failed", "project_id", projectID, "file_path", filePath, "error", err)
	}
}
