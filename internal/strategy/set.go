package strategy

import (
	"fmt"
	"strconv"
	"strings"
)

// Set holds the selected strategy and the parameters of every variant.
// Values of inactive variants are retained so switching back loses nothing.
type Set struct {
	Name         string
	Standard     Standard
	Semantic     Semantic
	Hierarchical Hierarchical
}

func DefaultSet() Set {
	return Set{
		Standard: Standard{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap},
		Semantic: Semantic{SimilarityThreshold: DefaultSimilarityThreshold},
		Hierarchical: Hierarchical{
			LevelSizes:    []int{1000, 500},
			MergeStrategy: MergeConcat,
		},
	}
}

func (s Set) Kind() Kind { return KindOf(s.Name) }

// Active returns the payload for the selected strategy.
func (s Set) Active() Params {
	switch s.Kind() {
	case KindSemantic:
		return s.Semantic.clone()
	case KindHierarchical:
		return s.Hierarchical.clone()
	default:
		return s.Standard
	}
}

// Clone returns a deep copy safe to hand to readers.
func (s Set) Clone() Set {
	s.Semantic = s.Semantic.clone()
	s.Hierarchical = s.Hierarchical.clone()
	return s
}

// Apply sets one parameter by its wire name. The set is only changed when
// the resulting variant validates.
func (s *Set) Apply(key, value string) error {
	next := s.Clone()
	value = strings.TrimSpace(value)

	var target Params
	switch key {
	case "chunk_size", "chunk_overlap":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", ErrInvalidParams, key)
		}
		if key == "chunk_size" {
			next.Standard.ChunkSize = n
		} else {
			next.Standard.ChunkOverlap = n
		}
		target = next.Standard
	case "similarity_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: similarity_threshold must be a number", ErrInvalidParams)
		}
		next.Semantic.SimilarityThreshold = f
		target = next.Semantic
	case "max_chunk_size":
		if value == "" || value == "none" {
			next.Semantic.MaxChunkSize = nil
		} else {
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%w: max_chunk_size must be an integer", ErrInvalidParams)
			}
			next.Semantic.MaxChunkSize = &n
		}
		target = next.Semantic
	case "level_sizes":
		sizes, err := ParseLevelSizes(value)
		if err != nil {
			return err
		}
		next.Hierarchical.LevelSizes = sizes
		target = next.Hierarchical
	case "merge_strategy":
		next.Hierarchical.MergeStrategy = MergeStrategy(value)
		target = next.Hierarchical
	default:
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidParams, key)
	}

	if err := target.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}

// Keys lists the wire names relevant to a kind, in display order.
func Keys(k Kind) []string {
	switch k {
	case KindSemantic:
		return []string{"similarity_threshold", "max_chunk_size"}
	case KindHierarchical:
		return []string{"level_sizes", "merge_strategy"}
	default:
		return []string{"chunk_size", "chunk_overlap"}
	}
}
