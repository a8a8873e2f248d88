package workflow

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"chunk_visualizer/internal/chunker"
	"chunk_visualizer/internal/client"
	"chunk_visualizer/internal/document"
	"chunk_visualizer/internal/logger"
	"chunk_visualizer/internal/strategy"
)

// Service is the remote chunking API.
type Service interface {
	Catalog(ctx context.Context) (client.Catalog, error)
	Upload(ctx context.Context, name string, content io.Reader) (string, error)
	Chunk(ctx context.Context, req strategy.Request) (chunker.Result, error)
}

// Controller owns the workflow state. All mutation goes through its methods;
// readers get copies from Snapshot. Remote calls run outside the lock and
// their outcome is applied in one locked swap.
type Controller struct {
	svc Service
	log logger.Logger

	mu    sync.Mutex
	state State
}

func NewController(svc Service, log logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		svc:   svc,
		log:   log,
		state: State{Params: strategy.DefaultSet()},
	}
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Initialize fetches the strategy catalog once. On success the first
// strategy and the catalog defaults are selected. A loaded catalog is never
// replaced.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state.Catalog != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	cat, err := c.svc.Catalog(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Error("failed to load strategy catalog", "err", err)
		c.state.LastError = err.Error()
		return fmt.Errorf("initialize: %w", err)
	}
	if c.state.Catalog != nil {
		return nil
	}

	c.state.Catalog = &cat
	c.state.Params.Name = cat.Strategies[0]
	defaults := strategy.Standard{ChunkSize: cat.DefaultChunkSize, ChunkOverlap: cat.DefaultChunkOverlap}
	if err := defaults.Validate(); err != nil {
		c.log.Warn("ignoring catalog defaults", "err", err)
	} else {
		c.state.Params.Standard = defaults
	}
	c.state.LastError = ""
	c.log.Info("strategy catalog loaded", "strategies", len(cat.Strategies), "selected", c.state.Params.Name)
	return nil
}

// SelectFile replaces the local document and invalidates everything derived
// from the previous one.
func (c *Controller) SelectFile(doc document.Local) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return ErrBusy
	}
	c.state.File = &doc
	c.state.ServerFilename = ""
	c.state.Result = nil
	c.state.LastError = ""
	c.log.Debug("file selected", "name", doc.Name, "size", doc.Size)
	return nil
}

// Upload sends the selected file. At most one remote operation runs at a
// time; a call while busy returns ErrBusy without touching state.
func (c *Controller) Upload(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state.File == nil {
		c.state.LastError = ErrNoFile.Error()
		c.mu.Unlock()
		return ErrNoFile
	}
	doc := *c.state.File
	c.state.Phase = Uploading
	c.state.LastError = ""
	c.mu.Unlock()

	c.log.Info("uploading", "file", doc.Name)
	name, err := c.upload(ctx, doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Phase = Idle
	if err != nil {
		c.log.Error("upload failed", "file", doc.Name, "err", err)
		c.state.LastError = err.Error()
		return fmt.Errorf("upload: %w", err)
	}
	c.state.ServerFilename = name
	c.log.Info("uploaded", "file", doc.Name, "server_filename", name)
	return nil
}

func (c *Controller) upload(ctx context.Context, doc document.Local) (string, error) {
	content, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer content.Close()
	return c.svc.Upload(ctx, doc.Name, content)
}

// Chunk requests chunks for the uploaded document with the current strategy
// and parameters. Without an upload no request is made. A failed request
// keeps the previous result.
func (c *Controller) Chunk(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	req, err := c.prepareChunk()
	if err != nil {
		c.state.LastError = err.Error()
		c.mu.Unlock()
		return err
	}
	c.state.Phase = Chunking
	c.state.LastError = ""
	c.mu.Unlock()

	c.log.Info("chunking", "file", req.Filename, "strategy", req.Strategy)
	res, err := c.svc.Chunk(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Phase = Idle
	if err != nil {
		c.log.Error("chunking failed", "strategy", req.Strategy, "err", err)
		c.state.LastError = err.Error()
		return fmt.Errorf("chunk: %w", err)
	}
	c.state.Result = &res
	c.log.Info("chunked", "strategy", req.Strategy, "chunks", len(res.Chunks))
	return nil
}

// prepareChunk checks preconditions and freezes the request. Caller holds mu.
func (c *Controller) prepareChunk() (strategy.Request, error) {
	if c.state.ServerFilename == "" {
		return strategy.Request{}, ErrNoDocument
	}
	if c.state.Catalog == nil {
		return strategy.Request{}, ErrNoCatalog
	}
	req, err := strategy.NewRequest(c.state.ServerFilename, c.state.Params)
	if err != nil {
		return strategy.Request{}, wrapPrecondition(err)
	}
	return req, nil
}

// Reset clears the document, the result and the error. The catalog, the
// selected strategy and all parameters survive.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return ErrBusy
	}
	c.state.File = nil
	c.state.ServerFilename = ""
	c.state.Result = nil
	c.state.LastError = ""
	c.log.Debug("workflow reset")
	return nil
}

// SelectStrategy switches the active strategy. Parameters of every strategy
// are kept.
func (c *Controller) SelectStrategy(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return ErrBusy
	}
	if err := c.checkStrategy(name); err != nil {
		return err
	}
	c.state.Params.Name = name
	c.log.Debug("strategy selected", "strategy", name, "kind", strategy.KindOf(name))
	return nil
}

// Configure sets one parameter by wire name, e.g. "chunk_size".
// Invalid values are rejected and leave state unchanged.
func (c *Controller) Configure(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return ErrBusy
	}
	if err := c.state.Params.Apply(key, value); err != nil {
		return wrapPrecondition(err)
	}
	return nil
}

// ApplyPreset loads a whole parameter preset.
func (c *Controller) ApplyPreset(p strategy.Preset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return ErrBusy
	}
	if p.Strategy != "" {
		if err := c.checkStrategy(p.Strategy); err != nil {
			return err
		}
	}
	if err := c.state.Params.ApplyPreset(p); err != nil {
		return wrapPrecondition(err)
	}
	return nil
}

func (c *Controller) checkStrategy(name string) error {
	if c.state.Catalog == nil {
		return ErrNoCatalog
	}
	if !slices.Contains(c.state.Catalog.Strategies, name) {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return nil
}
