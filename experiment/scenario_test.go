package experiment

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
)

func TestDefaultScenario(t *testing.T) {
	sc := DefaultScenario()
	if sc.Domain.Lo != -6 || sc.Domain.Hi != 6 {
		t.Errorf("domain = %+v, want [-6, 6]", sc.Domain)
	}
	if sc.SmallSets < 2 {
		t.Errorf("small_sets = %d, want several", sc.SmallSets)
	}
	if sc.LargeSize() <= sc.SmallSize {
		t.Errorf("large set (%d) should be larger than a small set (%d)", sc.LargeSize(), sc.SmallSize)
	}
	kinds := map[ModelKind]int{}
	for _, m := range sc.Models {
		kinds[m.Kind]++
	}
	for _, k := range []ModelKind{KindGLM, KindGAM, KindBoost} {
		if kinds[k] == 0 {
			t.Errorf("default scenario has no %s model", k)
		}
	}
	// Each call returns an independent copy.
	sc.Models[0].Degree = 99
	if DefaultScenario().Models[0].Degree == 99 {
		t.Error("DefaultScenario shares state between calls")
	}
}

func TestParseScenario(t *testing.T) {
	data := []byte(`
name: tiny
seed: 7
domain: {lo: -3, hi: 3}
small_sets: 2
small_size: 50
large_chunks: 4
grid_size: 11
test_size: 100
models:
  - kind: glm
    degree: 2
  - kind: gam
    df: 3
    lambda: 0.5
  - kind: boost
    label: deep
    max_depth: 3
`)
	sc, err := ParseScenario(data)
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	if sc.Name != "tiny" || sc.Seed != 7 || sc.LargeSize() != 200 {
		t.Errorf("unexpected scenario %+v", sc)
	}
	if len(sc.Models) != 3 {
		t.Fatalf("got %d models, want 3", len(sc.Models))
	}
	if sc.Models[1].Lambda == nil || *sc.Models[1].Lambda != 0.5 {
		t.Errorf("gam lambda = %v, want 0.5", sc.Models[1].Lambda)
	}
	if got := sc.Models[2].DisplayName(); got != "deep" {
		t.Errorf("DisplayName = %q, want deep", got)
	}
}

func TestParseScenarioRejectsUnknownKeys(t *testing.T) {
	data := []byte("name: x\nsmall_set: 3\n")
	if _, err := ParseScenario(data); err == nil {
		t.Fatal("expected error for unknown key small_set")
	}
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scenario)
		param  string
	}{
		{"zero small sets", func(sc *Scenario) { sc.SmallSets = 0 }, "small_sets"},
		{"zero small size", func(sc *Scenario) { sc.SmallSize = 0 }, "small_size"},
		{"zero chunks", func(sc *Scenario) { sc.LargeChunks = 0 }, "large_chunks"},
		{"single grid point", func(sc *Scenario) { sc.GridSize = 1 }, "grid_size"},
		{"no test set", func(sc *Scenario) { sc.TestSize = 0 }, "test_size"},
		{"no models", func(sc *Scenario) { sc.Models = nil }, "models"},
		{"unknown kind", func(sc *Scenario) { sc.Models[0].Kind = "forest" }, "kind"},
		{"negative degree", func(sc *Scenario) { sc.Models[0].Degree = -1 }, "degree"},
		{"negative lambda", func(sc *Scenario) {
			l := -1.0
			sc.Models[0].Lambda = &l
		}, "lambda"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := DefaultScenario()
			tt.mutate(sc)
			err := sc.Validate()
			var ve *errors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.ParamName != tt.param {
				t.Errorf("param = %q, want %q", ve.ParamName, tt.param)
			}
		})
	}

	sc := DefaultScenario()
	sc.Domain.Lo, sc.Domain.Hi = 6, -6
	if err := sc.Validate(); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("inverted domain: expected InvalidArgument, got %v", err)
	}
}

func TestLoadScenarioKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("seed: 42\nsmall_sets: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	def := DefaultScenario()
	if sc.Seed != 42 || sc.SmallSets != 3 {
		t.Errorf("overrides not applied: seed=%d small_sets=%d", sc.Seed, sc.SmallSets)
	}
	if sc.SmallSize != def.SmallSize || len(sc.Models) != len(def.Models) {
		t.Errorf("defaults lost: small_size=%d models=%d", sc.SmallSize, len(sc.Models))
	}
}

func TestLoadScenarioReplacesModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("models:\n  - kind: glm\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if len(sc.Models) != 1 || sc.Models[0].Kind != KindGLM {
		t.Errorf("models = %+v, want a single glm", sc.Models)
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected error naming the file, got %v", err)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	sc := DefaultScenario()
	var buf bytes.Buffer
	if err := sc.WriteYAML(&buf); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := ParseScenario(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseScenario: %v\n%s", err, buf.String())
	}
	if back.Name != sc.Name || back.GridSize != sc.GridSize || len(back.Models) != len(sc.Models) {
		t.Errorf("round trip changed the scenario:\n%s", buf.String())
	}
	for i := range sc.Models {
		if back.Models[i].DisplayName() != sc.Models[i].DisplayName() {
			t.Errorf("model %d: %q != %q", i, back.Models[i].DisplayName(), sc.Models[i].DisplayName())
		}
	}
}

func TestModelSpecBuild(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelWarn)
	tests := []struct {
		spec ModelSpec
		want string
	}{
		{ModelSpec{Kind: KindGLM, Degree: 3}, "glm(degree=3)"},
		{ModelSpec{Kind: KindBoost, NumTrees: 10, MaxDepth: 2}, "boost(trees=10,depth=2)"},
		{ModelSpec{Kind: KindGAM, DF: 4}, "gam(df=4)"},
	}
	for _, tt := range tests {
		m, err := tt.spec.Build(1, logger)
		if err != nil {
			t.Fatalf("Build(%+v): %v", tt.spec, err)
		}
		if m.Name() != tt.want {
			t.Errorf("Name() = %q, want %q", m.Name(), tt.want)
		}
	}
	if _, err := (ModelSpec{Kind: "svm"}).Build(1, logger); err == nil {
		t.Error("unknown kind: expected error")
	}
}

func TestDisplayNameMatchesEstimatorName(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelWarn)
	lambda, zero := 2.5, 0.0
	specs := []ModelSpec{
		{Kind: KindGLM},
		{Kind: KindGLM, Degree: 5},
		{Kind: KindGAM},
		{Kind: KindGAM, DF: 6.5, NumBasis: 30},
		{Kind: KindGAM, DF: 3, Lambda: &lambda},
		{Kind: KindGAM, Lambda: &zero},
		{Kind: KindBoost},
		{Kind: KindBoost, NumTrees: 250, MaxDepth: 3, Shrinkage: 0.05},
	}
	for _, s := range specs {
		m, err := s.Build(1, logger)
		if err != nil {
			t.Fatalf("Build(%+v): %v", s, err)
		}
		if got := s.DisplayName(); got != m.Name() {
			t.Errorf("DisplayName() = %q, estimator Name() = %q", got, m.Name())
		}
	}
	if got := (ModelSpec{Kind: "svm"}).DisplayName(); got != "svm(invalid)" {
		t.Errorf("invalid spec DisplayName = %q", got)
	}
}
