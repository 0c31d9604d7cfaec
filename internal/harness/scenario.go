package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a fixture, a model directory and the query steps run
// against them.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the YAML store fixture seeded before the steps run.
	Fixture string `yaml:"fixture"`

	// Models is the directory of CUE model declarations.
	Models string `yaml:"models"`

	Steps []Step `yaml:"steps"`
}

// Step is one query and its expected outcome.
type Step struct {
	Name string `yaml:"name"`

	// Query names the model queried.
	Query string `yaml:"query"`

	// Where is a WIQL condition; bracketed property names of the model
	// are read through its bindings.
	Where string `yaml:"where,omitempty"`

	// Order is a list like "Priority desc, Title".
	Order string `yaml:"order,omitempty"`

	// DayPrecision compares dates by calendar day.
	DayPrecision bool `yaml:"day_precision,omitempty"`

	// Children or Parents name the related model of a traversal.
	Children string `yaml:"children,omitempty"`
	Parents  string `yaml:"parents,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect is what a step must produce. Unset parts are not checked.
type Expect struct {
	IDs   []int64           `yaml:"ids,omitempty"`
	Graph map[int64][]int64 `yaml:"graph,omitempty"`
	Error string            `yaml:"error,omitempty"`
	Wiql  []string          `yaml:"wiql,omitempty"`
}

func (e Expect) empty() bool {
	return e.IDs == nil && e.Graph == nil && e.Error == "" && len(e.Wiql) == 0
}

// LoadScenario reads and parses a scenario YAML file. Fixture and model
// paths are resolved against the directory of the file.
//
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Fixture = resolve(base, scenario.Fixture)
	scenario.Models = resolve(base, scenario.Models)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.Fixture == "" {
		return errors.New("fixture is required")
	}
	if s.Models == "" {
		return errors.New("models is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	for _, path := range []string{s.Fixture, s.Models} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	if s.Name == "" {
		return fmt.Errorf("steps[%d]: name is required", index)
	}
	if s.Query == "" {
		return fmt.Errorf("steps[%d]: query is required", index)
	}
	if s.Children != "" && s.Parents != "" {
		return fmt.Errorf("steps[%d]: children and parents cannot be combined", index)
	}
	if s.Expect.empty() {
		return fmt.Errorf("steps[%d]: expect is required", index)
	}
	traversal := s.Children != "" || s.Parents != ""
	if s.Expect.Graph != nil && !traversal {
		return fmt.Errorf("steps[%d]: graph needs children or parents", index)
	}
	if s.Expect.IDs != nil && traversal {
		return fmt.Errorf("steps[%d]: ids cannot be checked on a traversal, use graph", index)
	}
	return nil
}
