// Package presets loads named trade-log queries from YAML.
package presets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tradejournal/internal/domain"
)

// Preset is one saved filter/sort/page-size combination.
type Preset struct {
	Name          string   `yaml:"name"`
	Direction     []string `yaml:"direction"`
	From          string   `yaml:"from"`
	To            string   `yaml:"to"`
	MinEfficiency *float64 `yaml:"min_efficiency"`
	MaxEfficiency *float64 `yaml:"max_efficiency"`
	Search        string   `yaml:"search"`
	Sort          struct {
		Field string `yaml:"field"`
		Order string `yaml:"order"`
	} `yaml:"sort"`
	PageSize int `yaml:"page_size"`
}

type file struct {
	Presets []Preset `yaml:"presets"`
}

// Set is a validated collection of presets, in file order.
type Set struct {
	presets []Preset
	byName  map[string]int
}

// Load reads and validates a presets file.
func Load(path string) (*Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets %s: %w", path, err)
	}
	set, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("presets %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes presets YAML. Unknown keys are rejected.
func Parse(data []byte) (*Set, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}

	set := &Set{byName: make(map[string]int, len(f.Presets))}
	for i, p := range f.Presets {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("preset #%d has no name", i+1)
		}
		key := strings.ToLower(name)
		if _, dup := set.byName[key]; dup {
			return nil, fmt.Errorf("duplicate preset %q", name)
		}
		p.Name = name
		if _, err := p.Query(domain.DefaultPageSize); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		set.byName[key] = len(set.presets)
		set.presets = append(set.presets, p)
	}
	return set, nil
}

// Names lists preset names in file order.
func (s *Set) Names() []string {
	names := make([]string, len(s.presets))
	for i, p := range s.presets {
		names[i] = p.Name
	}
	return names
}

// Get looks a preset up by name, ignoring case.
func (s *Set) Get(name string) (Preset, bool) {
	i, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, false
	}
	return s.presets[i], true
}

// Query converts the preset into a first-page domain.Query. defaultPageSize
// applies when the preset does not set page_size.
func (p Preset) Query(defaultPageSize int) (domain.Query, error) {
	q := domain.DefaultQuery()
	q.Search = p.Search

	for _, d := range p.Direction {
		dir, err := domain.ParseDirection(d)
		if err != nil {
			return domain.Query{}, err
		}
		q.Filter.Directions = append(q.Filter.Directions, dir)
	}

	if p.From != "" {
		from, err := domain.ParseDate(p.From)
		if err != nil {
			return domain.Query{}, err
		}
		q.Filter.DateRange.From = &from
	}
	if p.To != "" {
		to, err := domain.ParseDate(p.To)
		if err != nil {
			return domain.Query{}, err
		}
		q.Filter.DateRange.To = &to
	}

	q.Filter.Efficiency = domain.EfficiencyRange{Min: p.MinEfficiency, Max: p.MaxEfficiency}

	field, err := domain.ParseSortField(p.Sort.Field)
	if err != nil {
		return domain.Query{}, err
	}
	order, err := domain.ParseSortOrder(p.Sort.Order)
	if err != nil {
		return domain.Query{}, err
	}
	q.Sort = domain.SortSpec{Field: field, Order: order}

	switch {
	case p.PageSize > 0:
		q.Page.Size = p.PageSize
	case p.PageSize < 0:
		return domain.Query{}, fmt.Errorf("page_size must be positive, got %d", p.PageSize)
	case defaultPageSize > 0:
		q.Page.Size = defaultPageSize
	}
	return q, nil
}
