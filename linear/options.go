package linear

import (
	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
)

// IRLSConfig controls the IRLS iteration.
type IRLSConfig struct {
	// MaxIter is the maximum number of weighted least-squares solves.
	MaxIter int

	// Tol is the relative change in penalized deviance that counts as converged.
	Tol float64

	// Algorithm names the caller in warnings and logs, e.g. "glm IRLS".
	Algorithm string

	// Quiet suppresses the ConvergenceWarning, for exploratory fits such as
	// a smoothing-parameter search.
	Quiet bool

	Logger log.Logger
}

// Option configures an IRLSConfig.
type Option func(*IRLSConfig)

// WithMaxIter sets the iteration limit.
func WithMaxIter(n int) Option {
	return func(c *IRLSConfig) {
		c.MaxIter = n
	}
}

// WithTol sets the convergence tolerance.
func WithTol(tol float64) Option {
	return func(c *IRLSConfig) {
		c.Tol = tol
	}
}

// WithAlgorithm sets the name used in warnings.
func WithAlgorithm(name string) Option {
	return func(c *IRLSConfig) {
		c.Algorithm = name
	}
}

// WithQuiet suppresses convergence warnings.
func WithQuiet(quiet bool) Option {
	return func(c *IRLSConfig) {
		c.Quiet = quiet
	}
}

// WithLogger sets the logger for per-iteration debug records.
func WithLogger(l log.Logger) Option {
	return func(c *IRLSConfig) {
		c.Logger = l
	}
}

// NewIRLSConfig returns the defaults (100 iterations, tol 1e-8) with opts applied.
func NewIRLSConfig(opts ...Option) (IRLSConfig, error) {
	c := IRLSConfig{
		MaxIter:   100,
		Tol:       1e-8,
		Algorithm: "IRLS",
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.MaxIter < 1 {
		return c, errors.NewValidationError("max_iter", "must be at least 1", c.MaxIter)
	}
	if !(c.Tol > 0) {
		return c, errors.NewValidationError("tol", "must be positive", c.Tol)
	}
	if c.Logger == nil {
		c.Logger = log.GetLoggerWithName("linear")
	}
	return c, nil
}
