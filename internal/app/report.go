package app

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chunk_visualizer/internal/chunker"
	"chunk_visualizer/internal/strategy"
	"chunk_visualizer/internal/workflow"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Report is one chunking run as written to disk.
type Report struct {
	FileName    string
	Pages       int
	Strategy    string
	Kind        strategy.Kind
	Params      [][2]string
	Totals      chunker.Totals
	Rows        []chunker.Row
	Chunks      []string
	Summary     *chunker.Summary
	ProcessedAt string
}

func newReport(st workflow.State, params strategy.Set, counter chunker.TokenCounter) (*Report, error) {
	if st.Result == nil {
		return nil, errNoResult
	}
	r := &Report{
		FileName:    st.ServerFilename,
		Strategy:    params.Name,
		Kind:        params.Kind(),
		Chunks:      st.Result.Chunks,
		Summary:     st.Result.Summary,
		ProcessedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	if st.File != nil {
		r.Pages = st.File.Pages
	}

	active := params.Active()
	q := active.Query()
	for _, key := range strategy.Keys(active.Kind()) {
		if v := q.Get(key); v != "" {
			r.Params = append(r.Params, [2]string{key, v})
		}
	}

	r.Rows = chunker.Analyze(*st.Result, counter)
	r.Totals = chunker.Summarize(r.Rows)
	return r, nil
}

// Markdown renders the report as GitHub flavored markdown.
func (r *Report) Markdown() string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("# Chunking report: %s\n\n", r.FileName))
	buf.WriteString(fmt.Sprintf("**Processed:** %s\n\n", r.ProcessedAt))
	if r.Pages > 0 {
		buf.WriteString(fmt.Sprintf("**Pages:** %d\n\n", r.Pages))
	}
	buf.WriteString(fmt.Sprintf("**Strategy:** %s (%s)\n\n", r.Strategy, r.Kind))

	buf.WriteString("## Parameters\n\n")
	for _, p := range r.Params {
		buf.WriteString(fmt.Sprintf("- `%s`: %s\n", p[0], p[1]))
	}
	buf.WriteString("\n")

	buf.WriteString("## Summary\n\n")
	buf.WriteString(fmt.Sprintf("- Chunks: %d\n", r.Totals.Count))
	buf.WriteString(fmt.Sprintf("- Size min/avg/max: %d / %.1f / %d\n", r.Totals.MinSize, r.Totals.AvgSize, r.Totals.MaxSize))
	buf.WriteString(fmt.Sprintf("- Tokens: %d\n", r.Totals.TotalTokens))
	if s := r.Summary; s != nil {
		if s.AvgSimilarity != nil {
			buf.WriteString(fmt.Sprintf("- Average similarity: %.3f\n", *s.AvgSimilarity))
		}
		if len(s.Levels) > 0 {
			levels := make([]string, len(s.Levels))
			for i, l := range s.Levels {
				levels[i] = strconv.Itoa(l)
			}
			buf.WriteString(fmt.Sprintf("- Levels: %s\n", strings.Join(levels, ", ")))
		}
	}
	buf.WriteString("\n")

	buf.WriteString("| # | Size | Overlap | Measured overlap | Tokens |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, row := range r.Rows {
		buf.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d |\n", row.Index, row.Size, row.Overlap, row.MeasuredOverlap, row.Tokens))
	}
	buf.WriteString("\n")

	buf.WriteString("## Chunks\n\n")
	for i, text := range r.Chunks {
		idx := i
		if i < len(r.Rows) {
			idx = r.Rows[i].Index
		}
		buf.WriteString(fmt.Sprintf("### Chunk %d\n\n", idx))
		fence := codeFence(text)
		buf.WriteString(fence + "text\n")
		buf.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			buf.WriteString("\n")
		}
		buf.WriteString(fence + "\n\n")
	}

	return buf.String()
}

// codeFence returns a tilde fence longer than any tilde run in text, at
// least four long.
func codeFence(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '~' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("~", max(4, longest+1))
}

// HTML converts the markdown report into a standalone page.
func (r *Report) HTML() ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(r.Markdown()), &body); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	page.WriteString(fmt.Sprintf("<title>Chunking report: %s</title>\n", html.EscapeString(r.FileName)))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// saveReport writes markdown, or HTML when outputPath ends in .html/.htm.
func saveReport(r *Report, outputPath string) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".html", ".htm":
		var err error
		if data, err = r.HTML(); err != nil {
			return err
		}
	default:
		data = []byte(r.Markdown())
	}
	return os.WriteFile(outputPath, data, 0644)
}

func (a *App) writeReport(outputPath string) error {
	st := a.ctrl.Snapshot()
	params := st.Params
	if a.runParams != nil {
		params = *a.runParams
	}

	r, err := newReport(st, params, a.counter)
	if err != nil {
		return err
	}
	if err := saveReport(r, outputPath); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	a.log.Info("report saved", "path", outputPath)
	fmt.Fprintf(a.out, "💾 Results saved to: %s\n", outputPath)
	return nil
}
