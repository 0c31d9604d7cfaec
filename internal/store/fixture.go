package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qwiq/internal/ir"
)

// Fixture is a YAML description of store contents.
//
//	types: [Epic, Task]
//	fields:
//	  - ref: Microsoft.VSTS.Common.Priority
//	    name: Priority
//	    kind: int
//	items:
//	  - id: 1
//	    type: Epic
//	    fields:
//	      System.Title: Checkout
//	links:
//	  - source: 1
//	    target: 2
//	    type: System.LinkTypes.Hierarchy-Forward
type Fixture struct {
	Types  []string       `yaml:"types"`
	Fields []FixtureField `yaml:"fields"`
	Items  []FixtureItem  `yaml:"items"`
	Links  []FixtureLink  `yaml:"links"`
}

// FixtureField is a field definition in a fixture.
type FixtureField struct {
	Ref  string `yaml:"ref"`
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// FixtureItem is a work item in a fixture.
type FixtureItem struct {
	ID     int64          `yaml:"id"`
	Type   string         `yaml:"type"`
	Fields map[string]any `yaml:"fields"`
}

// FixtureLink is a link in a fixture. An empty type means a hierarchy
// link from source (parent) to target (child).
type FixtureLink struct {
	Source int64  `yaml:"source"`
	Target int64  `yaml:"target"`
	Type   string `yaml:"type"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes YAML fixture data.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// SeedStats counts what Seed wrote.
type SeedStats struct {
	Types  int `json:"types"`
	Fields int `json:"fields"`
	Items  int `json:"items"`
	Links  int `json:"links"`
}

// Seed writes a fixture: types, then fields, then items, then links.
// Seeding the same fixture twice leaves the store unchanged.
func (s *Store) Seed(ctx context.Context, f *Fixture) (SeedStats, error) {
	var stats SeedStats
	for _, t := range f.Types {
		if err := s.PutType(ctx, t); err != nil {
			return stats, err
		}
		stats.Types++
	}
	for _, fd := range f.Fields {
		kind, err := ir.ParseKind(fd.Kind)
		if err != nil {
			return stats, fmt.Errorf("field %s: %w", fd.Ref, err)
		}
		if err := s.PutField(ctx, FieldDef{Ref: fd.Ref, Name: fd.Name, Kind: kind}); err != nil {
			return stats, err
		}
		stats.Fields++
	}
	for _, it := range f.Items {
		if err := s.PutItem(ctx, Item{ID: it.ID, Type: it.Type, Fields: it.Fields}); err != nil {
			return stats, err
		}
		stats.Items++
	}
	for _, l := range f.Links {
		linkType := l.Type
		if linkType == "" {
			linkType = ir.LinkHierarchyForward
		}
		if err := s.PutLink(ctx, ir.WorkItemLink{SourceID: l.Source, TargetID: l.Target, LinkType: linkType}); err != nil {
			return stats, err
		}
		stats.Links++
	}
	return stats, nil
}
