package errors

import (
	"math"
)

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error if numerical instability is detected.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// CheckScalar checks a single scalar value for numerical instability.
func CheckScalar(operation string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// ClipValue clips a value to the range [min, max].
func ClipValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// StabilizeLog computes log with protection against log(0).
// Returns log(max(value, epsilon)) where epsilon is a small positive number.
func StabilizeLog(value float64) float64 {
	const epsilon = 1e-15
	if value < epsilon {
		return math.Log(epsilon)
	}
	return math.Log(value)
}

// StabilizeExp computes exp with protection against overflow.
// Clips the input to prevent exp from returning Inf.
func StabilizeExp(value float64) float64 {
	const maxExp = 700.0 // exp(700) is close to the maximum float64
	if value > maxExp {
		return math.Exp(maxExp)
	}
	if value < -maxExp {
		return 0
	}
	return math.Exp(value)
}

// Sigmoid maps a log-odds value to a probability without overflowing for
// large magnitudes.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + StabilizeExp(-z))
	}
	e := StabilizeExp(z)
	return e / (1.0 + e)
}

// Logit is the inverse of Sigmoid. p is clipped to (eps, 1-eps).
func Logit(p float64) float64 {
	const eps = 1e-12
	p = ClipValue(p, eps, 1-eps)
	return math.Log(p / (1 - p))
}
