package experiment

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/sim"
)

//go:embed default_scenario.yaml
var defaultScenarioYAML []byte

// Scenario describes one comparative run: how the observation sets are
// drawn and which models are fitted to each of them.
type Scenario struct {
	Name   string     `yaml:"name" json:"name"`
	Seed   int64      `yaml:"seed" json:"seed"`
	Domain sim.Domain `yaml:"domain" json:"domain"`

	// SmallSets independent sets of SmallSize observations each.
	SmallSets int `yaml:"small_sets" json:"small_sets"`
	SmallSize int `yaml:"small_size" json:"small_size"`

	// The large set concatenates LargeChunks fresh draws of SmallSize.
	LargeChunks int `yaml:"large_chunks" json:"large_chunks"`

	GridSize int `yaml:"grid_size" json:"grid_size"`
	TestSize int `yaml:"test_size" json:"test_size"`

	Models []ModelSpec `yaml:"models" json:"models"`
}

// DefaultScenario returns the built-in scenario.
func DefaultScenario() *Scenario {
	sc, err := ParseScenario(defaultScenarioYAML)
	if err != nil {
		panic(errors.Wrap(err, "embedded default scenario"))
	}
	return sc
}

// LoadScenario reads a YAML scenario file. Fields absent from the file keep
// their default values; a models list in the file replaces the default one.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", path)
	}
	sc, err := parseOnto(DefaultScenario(), data)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	return sc, nil
}

// ParseScenario decodes a complete scenario from YAML and validates it.
// Unknown keys are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	return parseOnto(&Scenario{}, data)
}

func parseOnto(sc *Scenario, data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(sc); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode scenario")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Validate checks the sampling sizes, the domain and every model spec.
func (sc *Scenario) Validate() error {
	if err := sc.Domain.Validate("Scenario.Validate"); err != nil {
		return err
	}
	checks := []struct {
		name  string
		value int
		min   int
	}{
		{"small_sets", sc.SmallSets, 1},
		{"small_size", sc.SmallSize, 1},
		{"large_chunks", sc.LargeChunks, 1},
		{"grid_size", sc.GridSize, 2},
		{"test_size", sc.TestSize, 1},
	}
	for _, c := range checks {
		if c.value < c.min {
			return errors.NewValidationError(c.name, "too small", c.value)
		}
	}
	if len(sc.Models) == 0 {
		return errors.NewValidationError("models", "at least one model is required", 0)
	}
	for i := range sc.Models {
		if err := sc.Models[i].Validate(); err != nil {
			return errors.Wrapf(err, "models[%d]", i)
		}
	}
	return nil
}

// LargeSize is the number of observations in the concatenated large set.
func (sc *Scenario) LargeSize() int {
	return sc.LargeChunks * sc.SmallSize
}

// WriteYAML encodes the scenario.
func (sc *Scenario) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sc); err != nil {
		return errors.Wrap(err, "encode scenario")
	}
	return enc.Close()
}
