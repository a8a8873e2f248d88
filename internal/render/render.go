package render

import (
	"fmt"
	"strconv"
	"strings"

	"chunk_visualizer/internal/chunker"
	"chunk_visualizer/internal/retrieval"
	"chunk_visualizer/internal/strategy"
	"chunk_visualizer/internal/workflow"

	"github.com/charmbracelet/lipgloss"
)

const (
	DefaultBarWidth  = 40
	DefaultChunkView = 240

	sharedView = 60
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	chunkStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	sizeBar    = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	overlapBar = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	tokenBar   = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

// Status renders the workflow header: file, upload, strategy, phase, error.
func Status(s workflow.State) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RAG Chunking Strategy Visualizer"))
	b.WriteString("\n")

	file := "none"
	if s.File != nil {
		file = s.File.Name
		if s.File.Pages > 0 {
			file += fmt.Sprintf(" (%d pages)", s.File.Pages)
		}
	}
	line(&b, "File", file)

	if s.ServerFilename != "" {
		line(&b, "Uploaded", okStyle.Render(s.ServerFilename))
	} else {
		line(&b, "Uploaded", "no")
	}

	if s.Catalog == nil {
		line(&b, "Strategy", "catalog not loaded")
	} else {
		line(&b, "Strategy", fmt.Sprintf("%s [%s]", s.Params.Name, s.Params.Kind()))
	}
	line(&b, "Status", s.Phase.String())
	if s.LastError != "" {
		line(&b, "Error", errorStyle.Render(s.LastError))
	}
	return b.String()
}

// Strategies lists the catalog, marking the selected strategy.
func Strategies(s workflow.State) string {
	if s.Catalog == nil {
		return "no strategies available\n"
	}
	var b strings.Builder
	for _, name := range s.Catalog.Strategies {
		marker := "  "
		if name == s.Params.Name {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s%s\n", marker, name)
	}
	return b.String()
}

// Params previews the parameters that will be sent for the active strategy.
func Params(set strategy.Set) string {
	var b strings.Builder
	active := set.Active()
	q := active.Query()
	for _, key := range strategy.Keys(active.Kind()) {
		if v, ok := q[key]; ok {
			line(&b, key, strings.Join(v, ","))
		}
	}
	if set.Kind() == strategy.KindSemantic && set.Semantic.MaxChunkSize == nil {
		line(&b, "max_chunk_size", "unbounded")
	}
	return b.String()
}

// Result renders totals, charts and the chunk list of one run.
func Result(r chunker.Result, rows []chunker.Row, width int) string {
	var b strings.Builder
	totals := chunker.Summarize(rows)
	fmt.Fprintf(&b, "%s %d chunks, size min/avg/max %d/%.0f/%d, %d tokens\n\n",
		titleStyle.Render("Result:"), totals.Count, totals.MinSize, totals.AvgSize, totals.MaxSize, totals.TotalTokens)

	if r.ChartCapable() {
		b.WriteString(SizeChart(rows, width))
		b.WriteString("\n")
		b.WriteString(OverlapChart(rows, width))
		b.WriteString("\n")
	} else {
		b.WriteString(labelStyle.Render("No chunk chart available for this metadata shape"))
		b.WriteString("\n\n")
	}
	if r.Summary != nil {
		b.WriteString(SummaryView(*r.Summary))
		b.WriteString("\n")
	}
	if totals.TotalTokens > 0 {
		b.WriteString(TokenChart(rows, width))
		b.WriteString("\n")
	}
	b.WriteString(ChunkList(r.Chunks, rows, DefaultChunkView))
	return b.String()
}

func SizeChart(rows []chunker.Row, width int) string {
	return BarChart("Chunk Size", rows, func(r chunker.Row) int { return r.Size }, width, sizeBar)
}

func OverlapChart(rows []chunker.Row, width int) string {
	return BarChart("Overlap", rows, func(r chunker.Row) int { return r.Overlap }, width, overlapBar)
}

func TokenChart(rows []chunker.Row, width int) string {
	return BarChart("Token Count", rows, func(r chunker.Row) int { return r.Tokens }, width, tokenBar)
}

// BarChart draws one horizontal bar per row scaled to width.
func BarChart(title string, rows []chunker.Row, value func(chunker.Row) int, width int, style lipgloss.Style) string {
	if width <= 0 {
		width = DefaultBarWidth
	}
	peak := 0
	for _, r := range rows {
		peak = max(peak, value(r))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	labelWidth := len("#" + strconv.Itoa(len(rows)))
	for _, r := range rows {
		v := value(r)
		n := 0
		// negative values draw as empty bars
		length := max(v, 0)
		if peak > 0 {
			n = length * width / peak
		}
		if length > 0 && n == 0 {
			n = 1
		}
		label := fmt.Sprintf("%-*s", labelWidth+1, "#"+strconv.Itoa(r.Index))
		fmt.Fprintf(&b, "%s %s %d\n", labelStyle.Render(label), style.Render(strings.Repeat("█", n)), v)
	}
	return b.String()
}

// SummaryView renders object-shaped metadata of advanced strategies.
func SummaryView(s chunker.Summary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Strategy metadata"))
	b.WriteString("\n")
	line(&b, "chunk_count", strconv.Itoa(s.ChunkCount))
	if len(s.Levels) > 0 {
		parts := make([]string, len(s.Levels))
		for i, l := range s.Levels {
			parts[i] = strconv.Itoa(l)
		}
		line(&b, "levels", strings.Join(parts, " → "))
	}
	if s.AvgSimilarity != nil {
		line(&b, "avg_similarity", fmt.Sprintf("%.3f", *s.AvgSimilarity))
	}
	if len(s.SimilarityScores) > 0 {
		line(&b, "similarity", SimilarityStrip(s.SimilarityScores))
	}
	return b.String()
}

var shades = []rune(" ░▒▓█")

// SimilarityStrip shades each adjacent-sentence similarity score.
func SimilarityStrip(scores []float64) string {
	var b strings.Builder
	for _, s := range scores {
		s = min(max(s, 0), 1)
		b.WriteRune(shades[int(s*float64(len(shades)-1)+0.5)])
	}
	return b.String()
}

// ChunkList renders every chunk with its header line.
func ChunkList(chunks []string, rows []chunker.Row, maxChars int) string {
	var b strings.Builder
	for i, text := range chunks {
		header := fmt.Sprintf("Chunk #%d", i)
		if i < len(rows) {
			r := rows[i]
			header = fmt.Sprintf("Chunk #%d | Size: %d | Overlap: %d (measured %d)", r.Index, r.Size, r.Overlap, r.MeasuredOverlap)
			if r.Tokens > 0 {
				header += fmt.Sprintf(" | Tokens: %d", r.Tokens)
			}
		}
		b.WriteString(labelStyle.Render(header))
		b.WriteString("\n")
		if i > 0 && i < len(rows) && rows[i].MeasuredOverlap > 0 {
			shared := chunker.GetLastNChars(chunks[i-1], rows[i].MeasuredOverlap)
			fmt.Fprintf(&b, "%s %q\n", labelStyle.Render("shared with previous:"), chunker.Truncate(shared, sharedView))
		}
		b.WriteString(chunkStyle.Render(chunker.Truncate(text, maxChars)))
		b.WriteString("\n")
	}
	return b.String()
}

// Hits renders retrieval preview results.
func Hits(query string, hits []retrieval.Hit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %q\n", titleStyle.Render("Top chunks for"), query)
	for i, h := range hits {
		fmt.Fprintf(&b, "%d. %s (similarity: %.2f)\n", i+1, labelStyle.Render(fmt.Sprintf("Chunk #%d", h.Index)), h.Similarity)
		b.WriteString(chunkStyle.Render(chunker.Truncate(h.Content, DefaultChunkView)))
		b.WriteString("\n")
	}
	return b.String()
}

func line(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render(key+":"), value)
}
