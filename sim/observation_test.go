package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

func TestConcatPreservesOrder(t *testing.T) {
	s := newTestSampler(t, 5)
	a, err := s.Sample(200)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Sample(200)
	if err != nil {
		t.Fatal(err)
	}

	c := Concat(a, b)
	if c.Len() != 400 {
		t.Fatalf("len = %d, want 400", c.Len())
	}
	for i := 0; i < 200; i++ {
		if c.At(i) != a.At(i) {
			t.Fatalf("prefix differs at %d", i)
		}
		if c.At(200+i) != b.At(i) {
			t.Fatalf("suffix differs at %d", i)
		}
	}

	if Concat().Len() != 0 {
		t.Error("Concat() should be empty")
	}
	dup := Concat(a, a)
	if dup.Len() != 400 || dup.At(0) != dup.At(200) {
		t.Error("Concat must not deduplicate")
	}
}

func TestObservationSetImmutable(t *testing.T) {
	src := []Observation{{X: 1, Y: 1}, {X: 2, Y: 0}}
	set := NewObservationSet(src)
	src[0].X = 99

	got := set.Observations()
	got[1].Y = 1
	if set.At(0).X != 1 || set.At(1).Y != 0 {
		t.Errorf("set mutated through caller slices: %+v", set.Observations())
	}
}

func TestObservationSetAccessors(t *testing.T) {
	set := NewObservationSet([]Observation{{X: -1, Y: 0}, {X: 0.5, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 0}})
	if got := set.Prevalence(); got != 0.5 {
		t.Errorf("Prevalence() = %v, want 0.5", got)
	}
	if (ObservationSet{}).Prevalence() != 0 {
		t.Error("empty Prevalence should be 0")
	}

	X, y, err := set.Matrices()
	if err != nil {
		t.Fatal(err)
	}
	r, c := X.Dims()
	if r != 4 || c != 1 {
		t.Fatalf("X dims = %dx%d, want 4x1", r, c)
	}
	if X.At(1, 0) != 0.5 || y.At(2, 0) != 1 || y.At(3, 0) != 0 {
		t.Error("Matrices content mismatch")
	}

	if _, _, err := (ObservationSet{}).Matrices(); !errors.Is(err, errors.ErrEmptyData) {
		t.Errorf("empty Matrices: expected ErrEmptyData, got %v", err)
	}
}

func TestObservationSetCSV(t *testing.T) {
	s := newTestSampler(t, 9)
	set, _ := s.Sample(50)

	var buf bytes.Buffer
	if err := set.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "x,y\n") {
		t.Errorf("missing header: %q", buf.String()[:10])
	}

	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if back.Len() != set.Len() {
		t.Fatalf("read %d rows, want %d", back.Len(), set.Len())
	}
	for i := 0; i < set.Len(); i++ {
		if back.At(i) != set.At(i) {
			t.Fatalf("row %d: %+v != %+v", i, back.At(i), set.At(i))
		}
	}
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"no header":  "1,0\n",
		"bad x":      "x,y\nabc,1\n",
		"bad y":      "x,y\n1.0,2\n",
		"empty file": "",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestObservationSetJSON(t *testing.T) {
	set := NewObservationSet([]Observation{{X: -1.5, Y: 1}, {X: 4, Y: 0}})
	data, err := json.Marshal(set)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[{"x":-1.5,"y":1},{"x":4,"y":0}]` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var back ObservationSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Len() != 2 || back.At(0) != set.At(0) {
		t.Errorf("round trip mismatch: %+v", back.Observations())
	}

	empty, _ := json.Marshal(ObservationSet{})
	if string(empty) != "[]" {
		t.Errorf("empty set JSON = %s, want []", empty)
	}

	if err := json.Unmarshal([]byte(`[{"x":1,"y":3}]`), &back); err == nil {
		t.Error("expected error for y outside {0,1}")
	}
}

func TestGrid(t *testing.T) {
	g, err := Grid(-6, 6, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-6, -3, 0, 3, 6}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("Grid[%d] = %v, want %v", i, g[i], want[i])
		}
	}

	if _, err := Grid(-6, 6, 1); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("n=1: expected InvalidArgument, got %v", err)
	}
	if _, err := Grid(2, 2, 10); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("lo=hi: expected InvalidArgument, got %v", err)
	}

	d := DefaultDomain()
	if d.Width() != 12 || !d.Contains(-6) || !d.Contains(6) || d.Contains(6.01) {
		t.Errorf("unexpected default domain behaviour: %+v", d)
	}
}
