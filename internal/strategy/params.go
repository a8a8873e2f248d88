package strategy

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	SemanticName     = "semantic_chunking"
	HierarchicalName = "hierarchical_chunking"

	DefaultChunkSize           = 500
	DefaultChunkOverlap        = 50
	DefaultSimilarityThreshold = 0.7
)

var ErrInvalidParams = errors.New("invalid chunking parameters")

// Kind tags the parameter variant a strategy name maps to.
type Kind int

const (
	KindStandard Kind = iota
	KindSemantic
	KindHierarchical
)

func (k Kind) String() string {
	switch k {
	case KindSemantic:
		return "semantic"
	case KindHierarchical:
		return "hierarchical"
	default:
		return "standard"
	}
}

// KindOf resolves a strategy name. Anything not explicitly advanced is standard.
func KindOf(name string) Kind {
	switch name {
	case SemanticName:
		return KindSemantic
	case HierarchicalName:
		return KindHierarchical
	default:
		return KindStandard
	}
}

// Params is one strategy's parameter payload.
type Params interface {
	Kind() Kind
	// Query returns only the fields this variant sends to the service.
	Query() url.Values
	Validate() error
}

type Standard struct {
	ChunkSize    int `yaml:"chunk_size" validate:"min=1,max=5000"`
	ChunkOverlap int `yaml:"chunk_overlap" validate:"min=0,max=1000"`
}

func (Standard) Kind() Kind { return KindStandard }

func (p Standard) Query() url.Values {
	return url.Values{
		"chunk_size":    {strconv.Itoa(p.ChunkSize)},
		"chunk_overlap": {strconv.Itoa(p.ChunkOverlap)},
	}
}

func (p Standard) Validate() error { return validate(p) }

// Semantic parameters. A nil MaxChunkSize means unbounded.
type Semantic struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" validate:"min=0.1,max=0.9"`
	MaxChunkSize        *int    `yaml:"max_chunk_size,omitempty" validate:"omitempty,min=1,max=5000"`
}

func (Semantic) Kind() Kind { return KindSemantic }

func (p Semantic) Query() url.Values {
	q := url.Values{
		"similarity_threshold": {strconv.FormatFloat(p.SimilarityThreshold, 'f', -1, 64)},
	}
	if p.MaxChunkSize != nil {
		q.Set("max_chunk_size", strconv.Itoa(*p.MaxChunkSize))
	}
	return q
}

func (p Semantic) Validate() error { return validate(p) }

func (p Semantic) clone() Semantic {
	if p.MaxChunkSize != nil {
		v := *p.MaxChunkSize
		p.MaxChunkSize = &v
	}
	return p
}

type MergeStrategy string

const (
	MergeConcat MergeStrategy = "concat"
	MergeJoin   MergeStrategy = "join"
)

type Hierarchical struct {
	LevelSizes    []int         `yaml:"level_sizes" validate:"required,min=1,dive,gt=0"`
	MergeStrategy MergeStrategy `yaml:"merge_strategy" validate:"oneof=concat join"`
}

func (Hierarchical) Kind() Kind { return KindHierarchical }

func (p Hierarchical) Query() url.Values {
	return url.Values{
		"level_sizes":    {FormatLevelSizes(p.LevelSizes)},
		"merge_strategy": {string(p.MergeStrategy)},
	}
}

func (p Hierarchical) Validate() error { return validate(p) }

func (p Hierarchical) clone() Hierarchical {
	p.LevelSizes = append([]int(nil), p.LevelSizes...)
	return p
}

// ParseLevelSizes reads the comma-separated form, e.g. "1000,500".
func ParseLevelSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: level size %q is not an integer", ErrInvalidParams, part)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: level sizes are empty", ErrInvalidParams)
	}
	return sizes, nil
}

func FormatLevelSizes(sizes []int) string {
	parts := make([]string, len(sizes))
	for i, n := range sizes {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

var (
	validateOnce  sync.Once
	validatorInst *validator.Validate
)

func validate(p any) error {
	validateOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
	})
	err := validatorInst.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
