package chunker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrShapeMismatch = errors.New("chunks and metadata lengths differ")

// Result is one chunk run returned by the service. Metadata comes either as
// one entry per chunk (standard strategies) or as a single Summary object
// (semantic and hierarchical strategies).
type Result struct {
	Chunks   []string
	Metadata []Metadata
	Summary  *Summary
}

// Metadata describes one chunk. Index and Size may be missing for
// strategy-defined shapes.
type Metadata struct {
	Index   *int
	Size    *int
	Overlap *int
	Extra   map[string]any
}

// ChartCapable reports whether the entry can be plotted.
func (m Metadata) ChartCapable() bool {
	return m.Index != nil && m.Size != nil
}

// Summary is the object-shaped metadata of advanced strategies.
type Summary struct {
	ChunkCount       int
	SimilarityScores []float64
	AvgSimilarity    *float64
	Levels           []int
	Extra            map[string]any
}

// ChartCapable is true when every metadata entry carries index and size.
func (r Result) ChartCapable() bool {
	if len(r.Metadata) == 0 {
		return false
	}
	for _, m := range r.Metadata {
		if !m.ChartCapable() {
			return false
		}
	}
	return true
}

// Empty reports whether the run produced nothing to show.
func (r Result) Empty() bool {
	return len(r.Chunks) == 0
}

// Clone deep-copies the result so the copy can be handed to readers.
func (r Result) Clone() Result {
	out := Result{
		Chunks: append([]string(nil), r.Chunks...),
	}
	if r.Metadata != nil {
		out.Metadata = make([]Metadata, len(r.Metadata))
		for i, m := range r.Metadata {
			out.Metadata[i] = Metadata{
				Index:   cloneInt(m.Index),
				Size:    cloneInt(m.Size),
				Overlap: cloneInt(m.Overlap),
				Extra:   cloneExtra(m.Extra),
			}
		}
	}
	if r.Summary != nil {
		s := *r.Summary
		s.SimilarityScores = append([]float64(nil), r.Summary.SimilarityScores...)
		s.Levels = append([]int(nil), r.Summary.Levels...)
		if r.Summary.AvgSimilarity != nil {
			avg := *r.Summary.AvgSimilarity
			s.AvgSimilarity = &avg
		}
		s.Extra = cloneExtra(r.Summary.Extra)
		out.Summary = &s
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneExtra(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the containers encoding/json produces.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneExtra(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var wire struct {
		Chunks   []string        `json:"chunks"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	out := Result{Chunks: wire.Chunks}
	raw := bytes.TrimSpace(wire.Metadata)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &out.Metadata); err != nil {
			return fmt.Errorf("failed to decode metadata list: %w", err)
		}
	case raw[0] == '{':
		var s Summary
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("failed to decode metadata summary: %w", err)
		}
		out.Summary = &s
	default:
		return fmt.Errorf("unexpected metadata shape: %.20s", raw)
	}

	if out.ChartCapable() && len(out.Metadata) != len(out.Chunks) {
		return fmt.Errorf("%w: %d chunks, %d metadata entries", ErrShapeMismatch, len(out.Chunks), len(out.Metadata))
	}

	*r = out
	return nil
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	out := Metadata{}
	if out.Index, err = takeInt(fields, "index"); err != nil {
		return err
	}
	if out.Size, err = takeInt(fields, "size"); err != nil {
		return err
	}
	if out.Overlap, err = takeInt(fields, "overlap"); err != nil {
		return err
	}
	if len(fields) > 0 {
		out.Extra = fields
	}
	*m = out
	return nil
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var wire struct {
		ChunkCount       int       `json:"chunk_count"`
		SimilarityScores []float64 `json:"similarity_scores"`
		AvgSimilarity    *float64  `json:"avg_similarity"`
		Levels           []int     `json:"levels"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	for _, known := range []string{"chunk_count", "similarity_scores", "avg_similarity", "levels"} {
		delete(fields, known)
	}

	*s = Summary{
		ChunkCount:       wire.ChunkCount,
		SimilarityScores: wire.SimilarityScores,
		AvgSimilarity:    wire.AvgSimilarity,
		Levels:           wire.Levels,
	}
	if len(fields) > 0 {
		s.Extra = fields
	}
	return nil
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// takeInt removes key from fields and returns it as an int when present.
func takeInt(fields map[string]any, key string) (*int, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		delete(fields, key)
		return nil, nil
	}
	num, ok := v.(json.Number)
	if !ok {
		return nil, fmt.Errorf("metadata %s is not a number", key)
	}
	n, err := num.Int64()
	if err != nil {
		f, ferr := num.Float64()
		if ferr != nil {
			return nil, fmt.Errorf("metadata %s: %w", key, err)
		}
		n = int64(f)
	}
	delete(fields, key)
	i := int(n)
	return &i, nil
}
