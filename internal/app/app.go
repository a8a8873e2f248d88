package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"chunk_visualizer/internal/chunker"
	"chunk_visualizer/internal/client"
	"chunk_visualizer/internal/config"
	"chunk_visualizer/internal/logger"
	"chunk_visualizer/internal/retrieval"
	"chunk_visualizer/internal/strategy"
	"chunk_visualizer/internal/workflow"

	"github.com/philippgille/chromem-go"
)

type App struct {
	cfg     *config.Config
	log     logger.Logger
	ctrl    *workflow.Controller
	counter chunker.TokenCounter
	index   *retrieval.Index

	in  io.Reader
	out io.Writer

	// ollama is true when the index embeds through Ollama and the model
	// still has to be checked before the first build.
	ollama      bool
	ollamaReady bool
	// indexed holds the chunks currently in index.
	indexed []string
	// runParams are the parameters of the request that produced the
	// current result.
	runParams *strategy.Set
}

type Option func(*App)

// WithIO replaces stdin/stdout of the interactive session.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.in = in
		a.out = out
	}
}

// WithEmbeddingFunc makes the retrieval preview use ef instead of Ollama.
func WithEmbeddingFunc(ef chromem.EmbeddingFunc) Option {
	return func(a *App) {
		a.index = retrieval.New(ef)
	}
}

func New(cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	svc, err := client.New(client.Options{
		BaseURL: cfg.ChunkerURL,
		Timeout: cfg.HTTPTimeout,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker client: %w", err)
	}

	counter, err := chunker.NewCounter(cfg.TokenEncoding)
	if err != nil {
		log.Warn("token counts fall back to word counts", "encoding", cfg.TokenEncoding, "err", err)
		counter = chunker.WordCounter{}
	}

	app := &App{
		cfg:     cfg,
		log:     log,
		ctrl:    workflow.NewController(svc, log),
		counter: counter,
		in:      os.Stdin,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.index == nil {
		app.index = retrieval.NewOllama(cfg.OllamaURL, cfg.OllamaEmbedModel)
		app.ollama = true
	}

	return app, nil
}

// Init loads the strategy catalog and the parameter preset. A service that
// is down is not fatal: the session shows the error and the catalog is
// fetched again on "strategies".
func (a *App) Init(ctx context.Context) error {
	if err := a.ctrl.Initialize(ctx); err != nil {
		a.log.Warn("strategy catalog unavailable", "url", a.cfg.ChunkerURL, "err", err)
		if a.cfg.ParamsFile != "" {
			a.log.Warn("params file not applied without a catalog", "path", a.cfg.ParamsFile)
		}
		return nil
	}

	if a.cfg.ParamsFile != "" {
		if err := a.loadParams(a.cfg.ParamsFile); err != nil {
			return fmt.Errorf("failed to load params file: %w", err)
		}
		a.log.Info("params loaded", "path", a.cfg.ParamsFile)
	}
	return nil
}

// Controller exposes the workflow for callers that drive it directly.
func (a *App) Controller() *workflow.Controller { return a.ctrl }

func (a *App) loadParams(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	p, err := strategy.LoadPreset(f)
	if err != nil {
		return err
	}
	return a.ctrl.ApplyPreset(p)
}

func (a *App) saveParams(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return strategy.WritePreset(f, a.ctrl.Snapshot().Params.Preset())
}
