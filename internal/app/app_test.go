package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"chunk_visualizer/internal/client"
	"chunk_visualizer/internal/config"
	"chunk_visualizer/internal/strategy"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService imitates the chunking service.
type fakeService struct {
	mu         sync.Mutex
	uploads    int
	chunkCalls int
	lastQuery  url.Values
}

func (f *fakeService) router() chi.Router {
	r := chi.NewRouter()
	r.Get("/strategies/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"strategies":     []string{"fixed_size", strategy.SemanticName, strategy.HierarchicalName},
			"default_params": map[string]int{"chunk_size": 500, "chunk_overlap": 50},
		})
	})
	r.Post("/upload/", func(w http.ResponseWriter, req *http.Request) {
		file, header, err := req.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "no file"})
			return
		}
		file.Close()
		f.mu.Lock()
		f.uploads++
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"filename": header.Filename})
	})
	r.Post("/chunk/", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		f.mu.Lock()
		f.chunkCalls++
		f.lastQuery = q
		f.mu.Unlock()

		chunks := []string{"alpha beta", "beta gamma"}
		if q.Get("strategy") == strategy.SemanticName {
			writeJSON(w, http.StatusOK, map[string]any{
				"chunks": chunks,
				"metadata": map[string]any{
					"similarity_scores": []float64{0.8},
					"chunk_count":       2,
					"avg_similarity":    0.8,
				},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"chunks": chunks,
			"metadata": []map[string]int{
				{"index": 0, "size": 10, "overlap": 0},
				{"index": 1, "size": 10, "overlap": 4},
			},
		})
	})
	return r
}

func (f *fakeService) snapshot() (int, int, url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads, f.chunkCalls, f.lastQuery
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// letterEmbedding is a normalized letter-frequency vector.
func letterEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec, nil
}

func testConfig(serverURL string) *config.Config {
	return &config.Config{
		ChunkerURL:    serverURL,
		HTTPTimeout:   5 * time.Second,
		TokenEncoding: "words",
		TopK:          2,
	}
}

func newTestApp(t *testing.T, cfg *config.Config, in string) (*App, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	a, err := New(cfg, nil, WithIO(strings.NewReader(in), out), WithEmbeddingFunc(letterEmbedding))
	require.NoError(t, err)
	return a, out
}

func startService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	fake := &fakeService{}
	srv := httptest.NewServer(fake.router())
	t.Cleanup(srv.Close)
	return fake, srv
}

func TestSessionSemanticRun(t *testing.T) {
	fake, srv := startService(t)
	dir := t.TempDir()
	pdf := writeFile(t, dir, "doc.pdf", minimalPDF())
	reportPath := filepath.Join(dir, "report.html")

	script := strings.Join([]string{
		"file " + pdf,
		"upload",
		"strategy " + strategy.SemanticName,
		"set similarity_threshold 0.8",
		"chunk",
		"report " + reportPath,
		"quit",
		"chunk",
	}, "\n")
	a, out := newTestApp(t, testConfig(srv.URL), script)

	require.NoError(t, a.Init(context.Background()))
	require.NoError(t, a.Run(context.Background()))

	uploads, chunkCalls, q := fake.snapshot()
	assert.Equal(t, 1, uploads)
	assert.Equal(t, 1, chunkCalls, "commands after quit must not run")
	assert.Equal(t, url.Values{
		"filename":             {"doc.pdf"},
		"strategy":             {strategy.SemanticName},
		"similarity_threshold": {"0.8"},
	}, q)

	text := out.String()
	assert.Contains(t, text, "Uploaded as doc.pdf")
	assert.Contains(t, text, "No chunk chart available")
	assert.Contains(t, text, "0.800")
	assert.NotContains(t, text, "❌")

	page, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<!DOCTYPE html>")
	assert.Contains(t, string(page), "<table>")
	assert.Contains(t, string(page), "semantic_chunking")
}

func TestSessionChunkBeforeUpload(t *testing.T) {
	fake, srv := startService(t)
	a, out := newTestApp(t, testConfig(srv.URL), "chunk\nsearch alpha\n")

	require.NoError(t, a.Init(context.Background()))
	require.NoError(t, a.Run(context.Background()))

	_, chunkCalls, _ := fake.snapshot()
	assert.Zero(t, chunkCalls)
	assert.Contains(t, out.String(), "❌ no document uploaded")
	assert.Contains(t, out.String(), "❌ "+errNoResult.Error())
}

func TestSessionRejectsNonPDF(t *testing.T) {
	_, srv := startService(t)
	txt := writeFile(t, t.TempDir(), "notes.txt", []byte("plain text, not a pdf"))
	a, out := newTestApp(t, testConfig(srv.URL), "file "+txt+"\nupload\n")

	require.NoError(t, a.Init(context.Background()))
	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), "only PDF files are allowed")
	assert.Contains(t, out.String(), "❌ no file selected")
	assert.Nil(t, a.Controller().Snapshot().File)
}

func TestSessionSearchPreview(t *testing.T) {
	_, srv := startService(t)
	pdf := writeFile(t, t.TempDir(), "doc.pdf", minimalPDF())
	script := "file " + pdf + "\nupload\nchunk\nsearch alpha\nsearch gamma\n"
	a, out := newTestApp(t, testConfig(srv.URL), script)

	require.NoError(t, a.Init(context.Background()))
	require.NoError(t, a.Run(context.Background()))

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "Embedding 2 chunks"), "index is built once per result")
	assert.Contains(t, text, `Top chunks for "alpha"`)
	assert.Contains(t, text, `Top chunks for "gamma"`)
	assert.Contains(t, text, "Chunk Size")
	assert.Contains(t, text, "Tokens: 2")
	assert.NotContains(t, text, "❌")
}

func TestSessionUsageAndUnknownCommands(t *testing.T) {
	_, srv := startService(t)
	a, out := newTestApp(t, testConfig(srv.URL), "bogus\nset chunk_size\nstrategy nope\nset chunk_size 0\nhelp\n")

	require.NoError(t, a.Init(context.Background()))
	require.NoError(t, a.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.Contains(t, text, "keys: chunk_size, chunk_overlap")
	assert.Contains(t, text, `unknown strategy: "nope"`)
	assert.Contains(t, text, "ChunkSize must be at least 1")
	assert.Contains(t, text, "save-params <path>")
	assert.Equal(t, 500, a.Controller().Snapshot().Params.Standard.ChunkSize)
}

func TestRunOnceWritesMarkdownReport(t *testing.T) {
	fake, srv := startService(t)
	dir := t.TempDir()
	pdf := writeFile(t, dir, "doc.pdf", minimalPDF())
	reportPath := filepath.Join(dir, "report.md")

	a, out := newTestApp(t, testConfig(srv.URL), "")
	err := a.RunOnce(context.Background(), RunOptions{
		Path:     pdf,
		Strategy: "fixed_size",
		Settings: []string{"chunk_size=300", "chunk_overlap = 20"},
		Output:   reportPath,
	})
	require.NoError(t, err)

	_, _, q := fake.snapshot()
	assert.Equal(t, "300", q.Get("chunk_size"))
	assert.Equal(t, "20", q.Get("chunk_overlap"))
	assert.Equal(t, "fixed_size", q.Get("strategy"))

	md, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Chunking report: doc.pdf")
	assert.Contains(t, string(md), "- `chunk_size`: 300")
	assert.Contains(t, string(md), "| 1 | 10 | 4 | 4 | 2 |")
	assert.Contains(t, string(md), "~~~~text\nbeta gamma\n~~~~")
	assert.Contains(t, out.String(), "Results saved to: "+reportPath)
}

func TestRunOnceBadSetting(t *testing.T) {
	fake, srv := startService(t)
	a, _ := newTestApp(t, testConfig(srv.URL), "")

	err := a.RunOnce(context.Background(), RunOptions{Path: "x.pdf", Settings: []string{"chunk_size"}})
	assert.ErrorContains(t, err, "expected key=value")

	uploads, _, _ := fake.snapshot()
	assert.Zero(t, uploads)
}

func TestRunOnceServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	a, _ := newTestApp(t, testConfig(srv.URL), "")

	err := a.RunOnce(context.Background(), RunOptions{Path: "x.pdf"})
	assert.ErrorIs(t, err, client.ErrNetworkFailure)
}

func TestInitServiceDownIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	a, out := newTestApp(t, testConfig(srv.URL), "show\n")

	require.NoError(t, a.Init(context.Background()))
	require.NoError(t, a.Run(context.Background()))

	st := a.Controller().Snapshot()
	assert.Nil(t, st.Catalog)
	assert.NotEmpty(t, st.LastError)
	assert.Contains(t, out.String(), "catalog not loaded")
}

func TestParamsFileRoundTrip(t *testing.T) {
	_, srv := startService(t)
	dir := t.TempDir()
	preset := writeFile(t, dir, "params.yaml", []byte(
		"strategy: semantic_chunking\nsemantic:\n  similarity_threshold: 0.5\n  max_chunk_size: 800\n"))

	cfg := testConfig(srv.URL)
	cfg.ParamsFile = preset
	saved := filepath.Join(dir, "saved.yaml")
	a, _ := newTestApp(t, cfg, "set chunk_size 321\nsave-params "+saved+"\n")

	require.NoError(t, a.Init(context.Background()))
	st := a.Controller().Snapshot()
	assert.Equal(t, strategy.SemanticName, st.Params.Name)
	assert.Equal(t, 0.5, st.Params.Semantic.SimilarityThreshold)
	require.NotNil(t, st.Params.Semantic.MaxChunkSize)
	assert.Equal(t, 800, *st.Params.Semantic.MaxChunkSize)

	require.NoError(t, a.Run(context.Background()))

	f, err := os.Open(saved)
	require.NoError(t, err)
	defer f.Close()
	p, err := strategy.LoadPreset(f)
	require.NoError(t, err)
	assert.Equal(t, strategy.SemanticName, p.Strategy)
	require.NotNil(t, p.Standard)
	assert.Equal(t, 321, p.Standard.ChunkSize)
}

func TestInitRejectsBadParamsFile(t *testing.T) {
	_, srv := startService(t)
	cfg := testConfig(srv.URL)
	cfg.ParamsFile = writeFile(t, t.TempDir(), "params.yaml", []byte("standard:\n  chunk_size: 99999\n  chunk_overlap: 0\n"))
	a, _ := newTestApp(t, cfg, "")

	err := a.Init(context.Background())
	assert.ErrorContains(t, err, "failed to load params file")
	assert.Equal(t, 500, a.Controller().Snapshot().Params.Standard.ChunkSize)
}

func TestStdinError(t *testing.T) {
	_, srv := startService(t)
	a, err := New(testConfig(srv.URL), nil, WithIO(io.MultiReader(strings.NewReader("help\n"), errReader{}), io.Discard))
	require.NoError(t, err)

	assert.ErrorContains(t, a.Run(context.Background()), "stdin error")
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, fmt.Errorf("broken pipe") }
