package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScalerDefault()

	if _, err := s.Transform(X); err == nil {
		t.Fatal("Transform before Fit should fail")
	}

	Z, err := s.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	if s.Mean[0] != 2.5 || s.Mean[1] != 10 {
		t.Errorf("Mean = %v, want [2.5 10]", s.Mean)
	}
	if math.Abs(s.Scale[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("Scale[0] = %v, want sqrt(1.25)", s.Scale[0])
	}
	if s.Scale[1] != 1 {
		t.Errorf("constant column scale = %v, want 1", s.Scale[1])
	}
	if Z.At(0, 1) != 0 {
		t.Errorf("constant column should center to 0, got %v", Z.At(0, 1))
	}
	if got := s.TransformValue(2.5); got != 0 {
		t.Errorf("TransformValue(mean) = %v, want 0", got)
	}

	back, err := s.InverseTransform(Z)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Error("InverseTransform did not restore input")
	}

	if _, err := s.Transform(mat.NewDense(2, 3, nil)); err == nil {
		t.Error("expected dimension error")
	}
}

func TestPolynomialFeatures(t *testing.T) {
	p, err := NewPolynomialFeatures(3)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Transform(mat.NewDense(2, 1, []float64{2, -1}))
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(2, 3, []float64{2, 4, 8, -1, 1, -1})
	if !mat.Equal(out, want) {
		t.Errorf("Transform = %v, want %v", mat.Formatted(out), mat.Formatted(want))
	}
	names := p.FeatureNames()
	if len(names) != 3 || names[2] != "z^3" {
		t.Errorf("FeatureNames() = %v", names)
	}

	if _, err := NewPolynomialFeatures(0); err == nil {
		t.Error("degree 0 should be rejected")
	}
	if _, err := p.Transform(mat.NewDense(2, 2, nil)); err == nil {
		t.Error("expected dimension error for two columns")
	}
}

func TestBSplinePartitionOfUnity(t *testing.T) {
	b, err := NewBSplineBasis(20, 3, -6, 6)
	if err != nil {
		t.Fatal(err)
	}
	xs := floats.Span(make([]float64, 501), -6, 6)
	for _, x := range xs {
		v := b.Evaluate(x, nil)
		if s := floats.Sum(v); math.Abs(s-1) > 1e-12 {
			t.Fatalf("basis at %v sums to %v", x, s)
		}
		for j, bj := range v {
			if bj < -1e-15 {
				t.Fatalf("basis %d negative at %v: %v", j, x, bj)
			}
		}
	}
}

func TestBSplineClampsOutsideRange(t *testing.T) {
	b, err := NewBSplineBasis(10, 3, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(b.Evaluate(-5, nil), b.Evaluate(0, nil)) {
		t.Error("x below Lo should evaluate as Lo")
	}
	if !floats.Equal(b.Evaluate(5, nil), b.Evaluate(1, nil)) {
		t.Error("x above Hi should evaluate as Hi")
	}
	if len(b.Knots()) != 14 {
		t.Errorf("got %d knots, want 14", len(b.Knots()))
	}
}

func TestBSplineLocalSupport(t *testing.T) {
	b, _ := NewBSplineBasis(12, 3, 0, 9)
	v := b.Evaluate(4.5, nil)
	nonzero := 0
	for _, bj := range v {
		if bj > 0 {
			nonzero++
		}
	}
	if nonzero > 4 {
		t.Errorf("cubic basis should have at most 4 nonzero functions, got %d", nonzero)
	}
}

func TestBSplineValidation(t *testing.T) {
	tests := []struct {
		name   string
		k, deg int
		lo, hi float64
	}{
		{"too few basis", 3, 3, 0, 1},
		{"negative degree", 5, -1, 0, 1},
		{"empty range", 5, 3, 1, 1},
		{"nan bound", 5, 3, math.NaN(), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBSplineBasis(tt.k, tt.deg, tt.lo, tt.hi)
			var ve *errors.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestDifferencePenalty(t *testing.T) {
	d, err := DifferenceMatrix(5, 2)
	if err != nil {
		t.Fatal(err)
	}
	r, c := d.Dims()
	if r != 3 || c != 5 {
		t.Fatalf("D dims = %dx%d, want 3x5", r, c)
	}
	if d.At(0, 0) != 1 || d.At(0, 1) != -2 || d.At(0, 2) != 1 {
		t.Errorf("unexpected first row: %v", mat.Row(nil, 0, d))
	}

	p, err := DifferencePenalty(5, 2)
	if err != nil {
		t.Fatal(err)
	}
	// Linear coefficients are in the null space of a second-order penalty.
	lin := mat.NewVecDense(5, []float64{1, 2, 3, 4, 5})
	var pv mat.VecDense
	pv.MulVec(p, lin)
	if mat.Norm(&pv, 2) > 1e-12 {
		t.Errorf("linear trend penalized: %v", pv.RawVector().Data)
	}

	if _, err := DifferencePenalty(3, 3); err == nil {
		t.Error("order >= k should be rejected")
	}
}
