package sim

import (
	"math"
	"math/rand/v2"
	"testing"

	"pgregory.net/rapid"
)

// t2CDF is the closed form of the Student's t CDF with two degrees of freedom.
func t2CDF(t float64) float64 {
	return 0.5 + t/(2*math.Sqrt(t*t+2))
}

func TestTruthKnownValues(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want float64
		tol  float64
	}{
		{"zero", 0, 1.0 / 3.0, 1e-12},
		{"six", 6, t2CDF(3 + math.Pow(math.Sin(6), 2) - 7.2 + 0.5), 1e-9},
		{"minus six", -6, t2CDF(-3 + math.Pow(math.Sin(-6), 2) - 7.2 - 0.5), 1e-9},
		{"one", 1, t2CDF(0.5 + math.Pow(math.Sin(1), 2) - 0.2 + 0.5), 1e-9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truth(tt.x)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Truth(%v) = %.12f, want %.12f", tt.x, got, tt.want)
			}
		})
	}

	// f(6) sits near 0.0342: argument ≈ -3.6219.
	if arg := TruthArgument(6); math.Abs(arg-(-3.621927)) > 1e-5 {
		t.Errorf("TruthArgument(6) = %v, want ≈ -3.621927", arg)
	}
	if got := Truth(6); got < 0.0342 || got > 0.0343 {
		t.Errorf("Truth(6) = %v, want ≈ 0.03425", got)
	}
}

func TestTruthMatchesClosedForm(t *testing.T) {
	grid, err := Grid(-6, 6, 241)
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range grid {
		want := t2CDF(TruthArgument(x))
		if got := Truth(x); math.Abs(got-want) > 1e-9 {
			t.Fatalf("Truth(%v) = %v, closed form %v", x, got, want)
		}
	}
}

func TestTruthArgumentStepAtZero(t *testing.T) {
	jump := TruthArgument(1e-12) - TruthArgument(-1e-12)
	if math.Abs(jump-1) > 1e-9 {
		t.Errorf("step at 0 = %v, want 1", jump)
	}
	if TruthArgument(0) != -0.5 {
		t.Errorf("TruthArgument(0) = %v, want -0.5", TruthArgument(0))
	}
}

func TestTruthBounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	for i := 0; i < 10000; i++ {
		x := -1000 + 2000*rng.Float64()
		p := Truth(x)
		if !(p >= 0 && p <= 1) {
			t.Fatalf("Truth(%v) = %v outside [0,1]", x, p)
		}
	}
}

func TestTruthBoundedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Float64Range(-1e6, 1e6).Draw(t, "x")
		p := Truth(x)
		if !(p >= 0 && p <= 1) {
			t.Fatalf("Truth(%v) = %v outside [0,1]", x, p)
		}
	})
}

func TestTruthDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Float64Range(-1000, 1000).Draw(t, "x")
		a, b := Truth(x), Truth(x)
		if math.Float64bits(a) != math.Float64bits(b) {
			t.Fatalf("Truth(%v) not bit-identical: %v vs %v", x, a, b)
		}
	})
}

func TestTruthCurve(t *testing.T) {
	grid, _ := Grid(-6, 6, 2001)
	curve := TruthCurve(grid)
	if curve.Len() != len(grid) {
		t.Fatalf("curve has %d points, want %d", curve.Len(), len(grid))
	}
	for i, x := range grid {
		cx, cp := curve.XY(i)
		if cx != x || cp != Truth(x) {
			t.Fatalf("point %d = (%v, %v), want (%v, %v)", i, cx, cp, x, Truth(x))
		}
	}

	grid[0] = 100
	if curve.X[0] == 100 {
		t.Error("curve shares its grid with the caller")
	}
}

func BenchmarkTruth(b *testing.B) {
	x := 1.234
	for i := 0; i < b.N; i++ {
		_ = Truth(x)
	}
}
