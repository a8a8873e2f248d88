package retrieval

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"chunk_visualizer/internal/chunker"

	"github.com/philippgille/chromem-go"
)

const collectionName = "chunks"

var ErrNotIndexed = errors.New("no chunks indexed")

// Hit is one retrieved chunk.
type Hit struct {
	Index      int
	Content    string
	Similarity float32
}

// Index embeds the chunks of one run into an in-memory collection so a query
// can show which chunks a retriever would return.
type Index struct {
	db            *chromem.DB
	embeddingFunc chromem.EmbeddingFunc
	count         int
}

func New(embed chromem.EmbeddingFunc) *Index {
	return &Index{db: chromem.NewDB(), embeddingFunc: embed}
}

// NewOllama uses an Ollama embedding model, e.g. "nomic-embed-text".
func NewOllama(baseURL, model string) *Index {
	return New(chromem.NewEmbeddingFuncOllama(model, baseURL+"/api"))
}

// Build replaces the indexed chunks with the ones in r.
func (x *Index) Build(ctx context.Context, r chunker.Result) error {
	_ = x.db.DeleteCollection(collectionName)
	x.count = 0

	coll, err := x.db.CreateCollection(collectionName, map[string]string{}, x.embeddingFunc)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	rows := chunker.Analyze(r, nil)
	docs := make([]chromem.Document, 0, len(r.Chunks))
	for i, text := range r.Chunks {
		if text == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      strconv.Itoa(i),
			Content: text,
			Metadata: map[string]string{
				"index": strconv.Itoa(rows[i].Index),
			},
		})
	}
	if len(docs) == 0 {
		return ErrNotIndexed
	}

	if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	x.count = len(docs)
	return nil
}

// Query returns up to topK chunks ordered by similarity.
func (x *Index) Query(ctx context.Context, text string, topK int) ([]Hit, error) {
	coll := x.db.GetCollection(collectionName, x.embeddingFunc)
	if coll == nil || x.count == 0 {
		return nil, ErrNotIndexed
	}
	n := min(max(topK, 1), x.count)

	results, err := coll.Query(ctx, text, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata["index"])
		hits = append(hits, Hit{Index: idx, Content: r.Content, Similarity: r.Similarity})
	}
	return hits, nil
}

// Count is the number of indexed chunks.
func (x *Index) Count() int { return x.count }
