package strategy

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Preset is the YAML form of a parameter set. Missing sections keep the
// current values when applied.
type Preset struct {
	Strategy     string        `yaml:"strategy,omitempty"`
	Standard     *Standard     `yaml:"standard,omitempty"`
	Semantic     *Semantic     `yaml:"semantic,omitempty"`
	Hierarchical *Hierarchical `yaml:"hierarchical,omitempty"`
}

func LoadPreset(r io.Reader) (Preset, error) {
	var p Preset
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		if err == io.EOF {
			return Preset{}, nil
		}
		return Preset{}, fmt.Errorf("failed to decode preset: %w", err)
	}
	return p, nil
}

func WritePreset(w io.Writer, p Preset) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode preset: %w", err)
	}
	return enc.Close()
}

func (s Set) Preset() Preset {
	c := s.Clone()
	return Preset{
		Strategy:     c.Name,
		Standard:     &c.Standard,
		Semantic:     &c.Semantic,
		Hierarchical: &c.Hierarchical,
	}
}

// ApplyPreset validates every section present before changing anything.
func (s *Set) ApplyPreset(p Preset) error {
	next := s.Clone()
	if p.Standard != nil {
		if err := p.Standard.Validate(); err != nil {
			return fmt.Errorf("standard: %w", err)
		}
		next.Standard = *p.Standard
	}
	if p.Semantic != nil {
		if err := p.Semantic.Validate(); err != nil {
			return fmt.Errorf("semantic: %w", err)
		}
		next.Semantic = p.Semantic.clone()
	}
	if p.Hierarchical != nil {
		if err := p.Hierarchical.Validate(); err != nil {
			return fmt.Errorf("hierarchical: %w", err)
		}
		next.Hierarchical = p.Hierarchical.clone()
	}
	if p.Strategy != "" {
		next.Name = p.Strategy
	}
	*s = next
	return nil
}
