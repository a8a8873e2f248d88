package chunker

import "unicode/utf8"

// TokenCounter counts tokens in a chunk.
type TokenCounter interface {
	CountTokens(text string) int
}

// Row is the per-chunk line shown in lists, charts and reports.
type Row struct {
	Index           int
	Size            int
	Overlap         int
	MeasuredOverlap int
	Tokens          int
	// Reported is false when the service sent no index/size for this chunk
	// and Index/Size were derived locally.
	Reported bool
}

// Totals aggregates a run.
type Totals struct {
	Count       int
	MinSize     int
	MaxSize     int
	AvgSize     float64
	TotalTokens int
}

// Analyze builds one row per chunk. counter may be nil.
func Analyze(r Result, counter TokenCounter) []Row {
	rows := make([]Row, len(r.Chunks))
	for i, text := range r.Chunks {
		row := Row{Index: i, Size: utf8.RuneCountInString(text)}
		if i < len(r.Metadata) {
			m := r.Metadata[i]
			if m.ChartCapable() {
				row.Index = *m.Index
				row.Size = *m.Size
				row.Reported = true
			}
			if m.Overlap != nil {
				row.Overlap = *m.Overlap
			}
		}
		if i > 0 {
			row.MeasuredOverlap = MeasureOverlap(r.Chunks[i-1], text)
		}
		if counter != nil {
			row.Tokens = counter.CountTokens(text)
		}
		rows[i] = row
	}
	return rows
}

func Summarize(rows []Row) Totals {
	if len(rows) == 0 {
		return Totals{}
	}
	t := Totals{Count: len(rows), MinSize: rows[0].Size, MaxSize: rows[0].Size}
	sum := 0
	for _, r := range rows {
		sum += r.Size
		t.TotalTokens += r.Tokens
		t.MinSize = min(t.MinSize, r.Size)
		t.MaxSize = max(t.MaxSize, r.Size)
	}
	t.AvgSize = float64(sum) / float64(len(rows))
	return t
}
