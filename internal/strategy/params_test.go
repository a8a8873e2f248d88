package strategy

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindSemantic, KindOf("semantic_chunking"))
	assert.Equal(t, KindHierarchical, KindOf("hierarchical_chunking"))
	for _, name := range []string{"fixed_size", "recursive_character", "token", "nltk", "spacy", ""} {
		assert.Equal(t, KindStandard, KindOf(name), name)
	}
}

func TestStandardQueryOmitsAdvancedFields(t *testing.T) {
	for _, name := range []string{"recursive_character", "character", "token", "nltk", "spacy"} {
		set := DefaultSet()
		set.Name = name
		set.Semantic.MaxChunkSize = intPtr(900)

		req, err := NewRequest("doc.pdf", set)
		require.NoError(t, err)
		q := req.Query()

		assert.Equal(t, "500", q.Get("chunk_size"), name)
		assert.Equal(t, "50", q.Get("chunk_overlap"), name)
		for _, key := range []string{"similarity_threshold", "max_chunk_size", "level_sizes", "merge_strategy"} {
			assert.NotContains(t, q, key, name)
		}
	}
}

func TestSemanticQuery(t *testing.T) {
	set := DefaultSet()
	set.Name = SemanticName
	set.Semantic.SimilarityThreshold = 0.8

	req, err := NewRequest("doc123", set)
	require.NoError(t, err)
	assert.Equal(t, url.Values{
		"filename":             {"doc123"},
		"strategy":             {"semantic_chunking"},
		"similarity_threshold": {"0.8"},
	}, req.Query())

	set.Semantic.MaxChunkSize = intPtr(1200)
	req, err = NewRequest("doc123", set)
	require.NoError(t, err)
	assert.Equal(t, "1200", req.Query().Get("max_chunk_size"))
	assert.NotContains(t, req.Query(), "chunk_size")
}

func TestHierarchicalQuery(t *testing.T) {
	set := DefaultSet()
	set.Name = HierarchicalName
	set.Hierarchical.MergeStrategy = MergeJoin

	req, err := NewRequest("doc.pdf", set)
	require.NoError(t, err)
	q := req.Query()
	assert.Equal(t, "1000,500", q.Get("level_sizes"))
	assert.Equal(t, "join", q.Get("merge_strategy"))
	assert.NotContains(t, q, "chunk_size")
	assert.NotContains(t, q, "chunk_overlap")
}

func TestRequestFreezesParams(t *testing.T) {
	set := DefaultSet()
	set.Name = HierarchicalName

	req, err := NewRequest("doc.pdf", set)
	require.NoError(t, err)
	set.Hierarchical.LevelSizes[0] = 1

	assert.Equal(t, "1000,500", req.Query().Get("level_sizes"))
}

func TestNewRequestValidates(t *testing.T) {
	set := DefaultSet()
	_, err := NewRequest("doc.pdf", set)
	assert.ErrorIs(t, err, ErrInvalidParams)

	set.Name = "token"
	set.Standard.ChunkSize = 0
	_, err = NewRequest("doc.pdf", set)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Contains(t, err.Error(), "ChunkSize must be at least 1")
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		ok     bool
	}{
		{"standard min", Standard{ChunkSize: 1, ChunkOverlap: 0}, true},
		{"standard max", Standard{ChunkSize: 5000, ChunkOverlap: 1000}, true},
		{"standard size too big", Standard{ChunkSize: 5001, ChunkOverlap: 0}, false},
		{"standard negative overlap", Standard{ChunkSize: 10, ChunkOverlap: -1}, false},
		{"standard overlap too big", Standard{ChunkSize: 10, ChunkOverlap: 1001}, false},
		{"semantic default", Semantic{SimilarityThreshold: 0.7}, true},
		{"semantic low", Semantic{SimilarityThreshold: 0.05}, false},
		{"semantic high", Semantic{SimilarityThreshold: 0.95}, false},
		{"semantic max size", Semantic{SimilarityThreshold: 0.5, MaxChunkSize: intPtr(5000)}, true},
		{"semantic zero max size", Semantic{SimilarityThreshold: 0.5, MaxChunkSize: intPtr(0)}, false},
		{"hierarchical", Hierarchical{LevelSizes: []int{1000, 500}, MergeStrategy: MergeConcat}, true},
		{"hierarchical empty", Hierarchical{MergeStrategy: MergeConcat}, false},
		{"hierarchical zero level", Hierarchical{LevelSizes: []int{1000, 0}, MergeStrategy: MergeJoin}, false},
		{"hierarchical bad merge", Hierarchical{LevelSizes: []int{100}, MergeStrategy: "zip"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidParams)
			}
		})
	}
}

func TestParseLevelSizes(t *testing.T) {
	sizes, err := ParseLevelSizes(" 1000, 500 ,250")
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 500, 250}, sizes)
	assert.Equal(t, "1000,500,250", FormatLevelSizes(sizes))

	_, err = ParseLevelSizes("1000,abc")
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = ParseLevelSizes(" , ")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSetApply(t *testing.T) {
	set := DefaultSet()

	require.NoError(t, set.Apply("chunk_size", "800"))
	require.NoError(t, set.Apply("similarity_threshold", "0.55"))
	require.NoError(t, set.Apply("max_chunk_size", "300"))
	require.NoError(t, set.Apply("level_sizes", "2000,1000,500"))
	require.NoError(t, set.Apply("merge_strategy", "join"))

	assert.Equal(t, 800, set.Standard.ChunkSize)
	assert.Equal(t, 0.55, set.Semantic.SimilarityThreshold)
	require.NotNil(t, set.Semantic.MaxChunkSize)
	assert.Equal(t, 300, *set.Semantic.MaxChunkSize)
	assert.Equal(t, []int{2000, 1000, 500}, set.Hierarchical.LevelSizes)
	assert.Equal(t, MergeJoin, set.Hierarchical.MergeStrategy)

	require.NoError(t, set.Apply("max_chunk_size", "none"))
	assert.Nil(t, set.Semantic.MaxChunkSize)
}

func TestSetApplyRejectsWithoutChange(t *testing.T) {
	set := DefaultSet()
	before := set.Clone()

	assert.ErrorIs(t, set.Apply("chunk_size", "9000"), ErrInvalidParams)
	assert.ErrorIs(t, set.Apply("chunk_overlap", "NaN"), ErrInvalidParams)
	assert.ErrorIs(t, set.Apply("similarity_threshold", "1.5"), ErrInvalidParams)
	assert.ErrorIs(t, set.Apply("merge_strategy", "zip"), ErrInvalidParams)
	assert.ErrorIs(t, set.Apply("colour", "blue"), ErrInvalidParams)

	assert.Equal(t, before, set)
}

func TestSwitchingKeepsValues(t *testing.T) {
	set := DefaultSet()
	set.Name = "token"
	require.NoError(t, set.Apply("chunk_size", "777"))

	set.Name = SemanticName
	require.NoError(t, set.Apply("similarity_threshold", "0.3"))
	set.Name = "token"

	assert.Equal(t, Standard{ChunkSize: 777, ChunkOverlap: 50}, set.Active())
	set.Name = SemanticName
	assert.Equal(t, 0.3, set.Active().(Semantic).SimilarityThreshold)
}

func TestPresetRoundTrip(t *testing.T) {
	set := DefaultSet()
	set.Name = SemanticName
	set.Semantic.MaxChunkSize = intPtr(1500)

	var buf bytes.Buffer
	require.NoError(t, WritePreset(&buf, set.Preset()))
	assert.Contains(t, buf.String(), "similarity_threshold: 0.7")

	p, err := LoadPreset(&buf)
	require.NoError(t, err)

	other := DefaultSet()
	require.NoError(t, other.ApplyPreset(p))
	assert.Equal(t, set, other)
}

func TestApplyPresetPartial(t *testing.T) {
	doc := `
strategy: hierarchical_chunking
hierarchical:
  level_sizes: [1200, 400]
  merge_strategy: join
`
	p, err := LoadPreset(strings.NewReader(doc))
	require.NoError(t, err)

	set := DefaultSet()
	set.Standard.ChunkSize = 900
	require.NoError(t, set.ApplyPreset(p))

	assert.Equal(t, HierarchicalName, set.Name)
	assert.Equal(t, []int{1200, 400}, set.Hierarchical.LevelSizes)
	assert.Equal(t, 900, set.Standard.ChunkSize)
}

func TestApplyPresetRejectsInvalid(t *testing.T) {
	doc := `
strategy: token
standard:
  chunk_size: 0
  chunk_overlap: 10
`
	p, err := LoadPreset(strings.NewReader(doc))
	require.NoError(t, err)

	set := DefaultSet()
	err = set.ApplyPreset(p)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Equal(t, DefaultSet(), set)
}

func TestLoadPresetEmpty(t *testing.T) {
	p, err := LoadPreset(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Preset{}, p)
}
