package experiment

import (
	"fmt"

	"github.com/YuminosukeSato/occusim/boost"
	"github.com/YuminosukeSato/occusim/core/model"
	"github.com/YuminosukeSato/occusim/gam"
	"github.com/YuminosukeSato/occusim/glm"
	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
)

// ModelKind selects an estimator family.
type ModelKind string

const (
	KindGLM   ModelKind = "glm"
	KindGAM   ModelKind = "gam"
	KindBoost ModelKind = "boost"
)

// ModelSpec describes one estimator and its complexity. Zero-valued fields
// fall back to the estimator's defaults; fields of other families are ignored.
type ModelSpec struct {
	Kind  ModelKind `yaml:"kind" json:"kind"`
	Label string    `yaml:"label,omitempty" json:"label,omitempty"`

	// glm
	Degree int `yaml:"degree,omitempty" json:"degree,omitempty"`

	// gam
	DF       float64  `yaml:"df,omitempty" json:"df,omitempty"`
	NumBasis int      `yaml:"num_basis,omitempty" json:"num_basis,omitempty"`
	Lambda   *float64 `yaml:"lambda,omitempty" json:"lambda,omitempty"`

	// boost
	NumTrees       int     `yaml:"num_trees,omitempty" json:"num_trees,omitempty"`
	MaxDepth       int     `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
	Shrinkage      float64 `yaml:"shrinkage,omitempty" json:"shrinkage,omitempty"`
	MinSamplesLeaf int     `yaml:"min_samples_leaf,omitempty" json:"min_samples_leaf,omitempty"`
	Subsample      float64 `yaml:"subsample,omitempty" json:"subsample,omitempty"`
}

// Validate rejects unknown kinds and negative complexity values. The
// estimators check the remaining constraints when fitted.
func (s ModelSpec) Validate() error {
	switch s.Kind {
	case KindGLM, KindGAM, KindBoost:
	default:
		return errors.NewValidationError("kind", "must be one of glm, gam, boost", s.Kind)
	}
	ints := map[string]int{
		"degree":           s.Degree,
		"num_basis":        s.NumBasis,
		"num_trees":        s.NumTrees,
		"max_depth":        s.MaxDepth,
		"min_samples_leaf": s.MinSamplesLeaf,
	}
	for name, v := range ints {
		if v < 0 {
			return errors.NewValidationError(name, "must be non-negative", v)
		}
	}
	floats := map[string]float64{
		"df":        s.DF,
		"shrinkage": s.Shrinkage,
		"subsample": s.Subsample,
	}
	for name, v := range floats {
		if v < 0 {
			return errors.NewValidationError(name, "must be non-negative", v)
		}
	}
	if s.Lambda != nil && *s.Lambda < 0 {
		return errors.NewValidationError("lambda", "must be non-negative", *s.Lambda)
	}
	return nil
}

// Build constructs a fresh, unfitted estimator. seed drives any internal
// randomness (boosting subsamples).
func (s ModelSpec) Build(seed int64, logger log.Logger) (model.ProbabilisticClassifier, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.Kind {
	case KindGLM:
		opts := []glm.Option{glm.WithLogger(logger)}
		if s.Degree > 0 {
			opts = append(opts, glm.WithDegree(s.Degree))
		}
		return glm.New(opts...), nil

	case KindGAM:
		opts := []gam.Option{gam.WithLogger(logger)}
		if s.DF > 0 {
			opts = append(opts, gam.WithDF(s.DF))
		}
		if s.NumBasis > 0 {
			opts = append(opts, gam.WithNumBasis(s.NumBasis))
		}
		if s.Lambda != nil {
			opts = append(opts, gam.WithLambda(*s.Lambda))
		}
		return gam.New(opts...), nil

	case KindBoost:
		opts := []boost.Option{boost.WithLogger(logger), boost.WithRandomState(seed)}
		if s.NumTrees > 0 {
			opts = append(opts, boost.WithNumTrees(s.NumTrees))
		}
		if s.MaxDepth > 0 {
			opts = append(opts, boost.WithMaxDepth(s.MaxDepth))
		}
		if s.Shrinkage > 0 {
			opts = append(opts, boost.WithShrinkage(s.Shrinkage))
		}
		if s.MinSamplesLeaf > 0 {
			opts = append(opts, boost.WithMinSamplesLeaf(s.MinSamplesLeaf))
		}
		if s.Subsample > 0 {
			opts = append(opts, boost.WithSubsample(s.Subsample))
		}
		return boost.New(opts...), nil
	}
	return nil, errors.NewValidationError("kind", "unsupported", s.Kind)
}

// DisplayName is the label if set, otherwise the name Build's estimator
// reports, derived from the spec fields and the estimator defaults.
func (s ModelSpec) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	if err := s.Validate(); err != nil {
		return fmt.Sprintf("%s(invalid)", s.Kind)
	}
	switch s.Kind {
	case KindGLM:
		return fmt.Sprintf("glm(degree=%d)", orDefault(s.Degree, glm.DefaultDegree))
	case KindGAM:
		if s.Lambda != nil {
			return fmt.Sprintf("gam(lambda=%g)", *s.Lambda)
		}
		df := s.DF
		if df <= 0 {
			df = gam.DefaultDF
		}
		return fmt.Sprintf("gam(df=%g)", df)
	default:
		return fmt.Sprintf("boost(trees=%d,depth=%d)",
			orDefault(s.NumTrees, boost.DefaultNumTrees), orDefault(s.MaxDepth, boost.DefaultMaxDepth))
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
