// Package boost fits gradient-boosted regression trees under the Bernoulli
// deviance. With one covariate each tree is a step function of x, so the
// fitted log-odds curve is a sum of shrunken steps.
package boost

import (
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/core/model"
	"github.com/YuminosukeSato/occusim/core/parallel"
	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
)

const modelName = "BoostedTrees"

// BoostedTrees is a binary classifier whose log-odds are
// init + Σ shrinkage·tree_m(x).
type BoostedTrees struct {
	state  *model.StateManager
	params TrainingParams

	initScore float64
	trees     []Tree
	losses    []float64

	logger log.Logger
}

// Option configures BoostedTrees.
type Option func(*BoostedTrees)

// Ensemble size and tree depth used when not configured.
const (
	DefaultNumTrees = 100
	DefaultMaxDepth = 1
)

// New creates a BoostedTrees model. Defaults: 100 trees of depth 1,
// shrinkage 0.1, at least 10 samples per leaf, no subsampling, no L2.
func New(opts ...Option) *BoostedTrees {
	m := &BoostedTrees{
		state: model.NewStateManager(),
		params: TrainingParams{
			NumTrees:       DefaultNumTrees,
			MaxDepth:       DefaultMaxDepth,
			Shrinkage:      0.1,
			MinSamplesLeaf: 10,
			Subsample:      1.0,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.GetLoggerWithName("boost")
	}
	return m
}

// WithNumTrees sets the number of boosting iterations.
func WithNumTrees(n int) Option {
	return func(m *BoostedTrees) {
		m.params.NumTrees = n
	}
}

// WithMaxDepth sets the interaction depth of each tree.
func WithMaxDepth(d int) Option {
	return func(m *BoostedTrees) {
		m.params.MaxDepth = d
	}
}

// WithShrinkage sets the learning rate in (0, 1].
func WithShrinkage(eta float64) Option {
	return func(m *BoostedTrees) {
		m.params.Shrinkage = eta
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(m *BoostedTrees) {
		m.params.MinSamplesLeaf = n
	}
}

// WithSubsample sets the bag fraction in (0, 1].
func WithSubsample(f float64) Option {
	return func(m *BoostedTrees) {
		m.params.Subsample = f
	}
}

// WithLambda sets the L2 penalty on leaf values.
func WithLambda(l float64) Option {
	return func(m *BoostedTrees) {
		m.params.Lambda = l
	}
}

// WithRandomState seeds the subsampling.
func WithRandomState(seed int64) Option {
	return func(m *BoostedTrees) {
		m.params.Seed = seed
	}
}

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) Option {
	return func(m *BoostedTrees) {
		m.logger = l
	}
}

func (m *BoostedTrees) validate() error {
	p := m.params
	switch {
	case p.NumTrees < 1:
		return errors.NewValidationError("num_trees", "must be at least 1", p.NumTrees)
	case p.MaxDepth < 1:
		return errors.NewValidationError("max_depth", "must be at least 1", p.MaxDepth)
	case p.Shrinkage <= 0 || p.Shrinkage > 1:
		return errors.NewValidationError("shrinkage", "must be in (0, 1]", p.Shrinkage)
	case p.MinSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", p.MinSamplesLeaf)
	case p.Subsample <= 0 || p.Subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", p.Subsample)
	case p.Lambda < 0:
		return errors.NewValidationError("lambda", "must be non-negative", p.Lambda)
	}
	return nil
}

// Fit grows the ensemble on X (n×1) and y (n×1, 0/1).
func (m *BoostedTrees) Fit(X, y mat.Matrix) error {
	const op = "BoostedTrees.Fit"
	if err := m.validate(); err != nil {
		return err
	}
	n, err := model.ValidateFitInput(op, X, y, 1)
	if err != nil {
		return err
	}

	start := time.Now()
	m.state.Reset()

	_, c := X.Dims()
	rows := make([][]float64, n)
	targets := make([]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = mat.Row(nil, i, X)
		targets[i] = y.At(i, 0)
	}

	trainer := NewTrainer(m.params, NewBinaryLogloss(), m.logger)
	if err := trainer.Train(rows, targets); err != nil {
		m.logger.Error("Fit failed", err,
			log.OperationKey, log.OperationFit,
			log.LearningRateKey, m.params.Shrinkage,
		)
		return errors.NewModelError(op, "training", err)
	}

	m.initScore = trainer.InitScore()
	m.trees = append([]Tree(nil), trainer.Trees()...)
	m.losses = append([]float64(nil), trainer.Losses()...)
	m.state.SetDimensions(c, n)
	m.state.SetFitted()

	m.logger.Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, modelName,
		log.SamplesKey, n,
		log.IterationKey, len(m.trees),
		log.LearningRateKey, m.params.Shrinkage,
		log.LossKey, m.losses[len(m.losses)-1],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// DecisionFunction returns the raw score (log-odds) for each row of X.
func (m *BoostedTrees) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	if err := m.state.RequireFitted(modelName, "DecisionFunction"); err != nil {
		return nil, err
	}
	nFeatures, _ := m.state.GetDimensions()
	r, c := X.Dims()
	if c != nFeatures {
		return nil, errors.NewDimensionError("BoostedTrees.DecisionFunction", nFeatures, c, 1)
	}
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, parallel.DefaultThreshold, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			s := m.initScore
			for k := range m.trees {
				s += m.trees[k].Predict(row)
			}
			out[i] = s
		}
	})
	return mat.NewVecDense(r, out), nil
}

// PredictProba returns an n×2 matrix of [P(y=0), P(y=1)].
func (m *BoostedTrees) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r := scores.Len()
	proba := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		p := errors.Sigmoid(scores.AtVec(i))
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict returns 0/1 labels thresholded at P(y=1) = 0.5.
func (m *BoostedTrees) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r := scores.Len()
	labels := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		if scores.AtVec(i) > 0 {
			labels.Set(i, 0, 1)
		}
	}
	return labels, nil
}

// Name implements model.ProbabilisticClassifier.
func (m *BoostedTrees) Name() string {
	return fmt.Sprintf("boost(trees=%d,depth=%d)", m.params.NumTrees, m.params.MaxDepth)
}

// TrainLoss returns the mean training log loss after each iteration.
func (m *BoostedTrees) TrainLoss() []float64 {
	return append([]float64(nil), m.losses...)
}

// Trees returns a copy of the fitted trees.
func (m *BoostedTrees) Trees() []Tree {
	return append([]Tree(nil), m.trees...)
}

// InitScore returns the constant log-odds the ensemble starts from.
func (m *BoostedTrees) InitScore() float64 {
	return m.initScore
}

// GetParams returns the hyperparameters.
func (m *BoostedTrees) GetParams() map[string]interface{} {
	p := m.params
	return map[string]interface{}{
		"num_trees":        p.NumTrees,
		"max_depth":        p.MaxDepth,
		"shrinkage":        p.Shrinkage,
		"min_samples_leaf": p.MinSamplesLeaf,
		"subsample":        p.Subsample,
		"lambda":           p.Lambda,
		"random_state":     p.Seed,
	}
}

type dump struct {
	ModelType string         `json:"model_type"`
	Objective string         `json:"objective"`
	Params    TrainingParams `json:"params"`
	InitScore float64        `json:"init_score"`
	Trees     []Tree         `json:"trees"`
}

// DumpModel serializes the fitted ensemble to JSON.
func (m *BoostedTrees) DumpModel() ([]byte, error) {
	if err := m.state.RequireFitted(modelName, "DumpModel"); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(dump{
		ModelType: modelName,
		Objective: NewBinaryLogloss().Name(),
		Params:    m.params,
		InitScore: m.initScore,
		Trees:     m.trees,
	}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal boosted trees")
	}
	return data, nil
}
