package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"chunk_visualizer/internal/render"
	"chunk_visualizer/internal/retrieval"
)

var errNoResult = errors.New("no chunks yet, run 'chunk' first")

// search embeds the current chunks (once per result) and shows the top
// matches for queryText.
func (a *App) search(ctx context.Context, queryText string) error {
	st := a.ctrl.Snapshot()
	if st.Result == nil || st.Result.Empty() {
		return errNoResult
	}

	if !slices.Equal(a.indexed, st.Result.Chunks) {
		if err := a.ensureEmbeddings(ctx); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "⏳ Embedding %d chunks...\n", len(st.Result.Chunks))
		if err := a.index.Build(ctx, *st.Result); err != nil {
			a.indexed = nil
			return fmt.Errorf("failed to index chunks: %w", err)
		}
		a.indexed = slices.Clone(st.Result.Chunks)
		a.log.Debug("chunks indexed", "count", a.index.Count())
	}

	hits, err := a.index.Query(ctx, queryText, a.cfg.TopK)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, render.Hits(queryText, hits))
	return nil
}

func (a *App) ensureEmbeddings(ctx context.Context) error {
	if !a.ollama || a.ollamaReady {
		return nil
	}
	if err := retrieval.EnsureOllamaModel(ctx, a.cfg.OllamaURL, a.cfg.OllamaEmbedModel, a.log); err != nil {
		return fmt.Errorf("ollama model check failed: %w", err)
	}
	a.ollamaReady = true
	return nil
}
