// Package experiment runs the comparative demonstration: it draws several
// small observation sets, one large concatenated set and a held-out test set
// from a single seeded source, fits every configured model to every set and
// scores each fitted curve against the ground truth.
package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/core/model"
	"github.com/YuminosukeSato/occusim/metrics"
	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
	"github.com/YuminosukeSato/occusim/sim"
)

// Runner executes scenarios.
type Runner struct {
	logger log.Logger
	truth  sim.TruthFunc
	now    func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithTruth replaces the ground-truth curve used for sampling and scoring.
func WithTruth(f sim.TruthFunc) RunnerOption {
	return func(r *Runner) {
		r.truth = f
	}
}

// NewRunner creates a Runner using sim.Truth.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{truth: sim.Truth, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("experiment")
	}
	return r
}

type namedSet struct {
	name string
	role string
	obs  sim.ObservationSet
}

// evaluation holds what every fit is scored against.
type evaluation struct {
	grid  []float64
	gridX *mat.Dense
	truth sim.Curve
	testX *mat.Dense
	testY *mat.VecDense
}

// Run draws the sets in a fixed order (small sets, large-set chunks, test
// set) and fits each model spec to each small set and the large set. A fit
// that errors or panics is recorded in the report and the run continues.
// If ctx is cancelled between fits, Run returns the partial report together
// with the context error.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Scenario:  *sc,
		StartedAt: r.now(),
	}
	logger := r.logger.With(log.RunIDKey, report.RunID)
	logger.Info("Run started",
		log.RandomSeedKey, sc.Seed,
		log.DomainLoKey, sc.Domain.Lo,
		log.DomainHiKey, sc.Domain.Hi,
	)

	sets, test, err := r.drawSets(sc, logger)
	if err != nil {
		return nil, err
	}
	for _, s := range append(sets[:len(sets):len(sets)], test) {
		obs := s.obs
		report.Sets = append(report.Sets, SetSummary{
			Name:         s.name,
			Role:         s.role,
			Size:         obs.Len(),
			Prevalence:   obs.Prevalence(),
			Observations: &obs,
		})
	}

	eval, err := r.prepareEvaluation(sc, test.obs)
	if err != nil {
		return nil, err
	}
	report.Truth = eval.truth

	for mi, spec := range sc.Models {
		label := spec.DisplayName()
		for si, set := range sets {
			if err := ctx.Err(); err != nil {
				r.finish(report)
				logger.Warn("Run cancelled", log.IterationKey, len(report.Fits))
				return report, errors.Wrap(err, "run cancelled")
			}
			seed := sc.Seed + int64(mi*len(sets)+si)
			report.Fits = append(report.Fits, r.fitOne(mi, label, spec, seed, set, eval, logger))
		}
	}

	r.finish(report)
	logger.Info("Run completed",
		"fits", len(report.Fits),
		"failures", len(report.Failures()),
		log.DurationMsKey, report.DurationMs,
	)
	return report, nil
}

func (r *Runner) finish(report *Report) {
	report.FinishedAt = r.now()
	report.DurationMs = report.FinishedAt.Sub(report.StartedAt).Milliseconds()
}

func (r *Runner) drawSets(sc *Scenario, logger log.Logger) ([]namedSet, namedSet, error) {
	sampler, err := sim.NewSampler(sim.NewSource(sc.Seed),
		sim.WithDomain(sc.Domain.Lo, sc.Domain.Hi),
		sim.WithTruth(r.truth),
		sim.WithLogger(logger),
	)
	if err != nil {
		return nil, namedSet{}, err
	}

	small, err := sampler.SampleSets(sc.SmallSets, sc.SmallSize)
	if err != nil {
		return nil, namedSet{}, err
	}
	chunks, err := sampler.SampleSets(sc.LargeChunks, sc.SmallSize)
	if err != nil {
		return nil, namedSet{}, err
	}
	test, err := sampler.Sample(sc.TestSize)
	if err != nil {
		return nil, namedSet{}, err
	}

	sets := make([]namedSet, 0, len(small)+1)
	for i, s := range small {
		sets = append(sets, namedSet{name: fmt.Sprintf("small-%d", i+1), role: RoleSmall, obs: s})
	}
	sets = append(sets, namedSet{name: "large", role: RoleLarge, obs: sim.Concat(chunks...)})

	for _, s := range sets {
		logger.Debug("Set drawn",
			log.SetKey, s.name,
			log.SamplesKey, s.obs.Len(),
			log.PrevalenceKey, s.obs.Prevalence(),
		)
	}
	return sets, namedSet{name: "test", role: RoleTest, obs: test}, nil
}

func (r *Runner) prepareEvaluation(sc *Scenario, test sim.ObservationSet) (*evaluation, error) {
	grid, err := sc.Domain.Grid(sc.GridSize)
	if err != nil {
		return nil, err
	}
	testX, _, err := test.Matrices()
	if err != nil {
		return nil, err
	}
	return &evaluation{
		grid:  grid,
		gridX: mat.NewDense(len(grid), 1, grid),
		truth: sim.CurveOf(grid, r.truth),
		testX: testX,
		testY: mat.NewVecDense(test.Len(), test.Ys()),
	}, nil
}

func (r *Runner) fitOne(mi int, label string, spec ModelSpec, seed int64, set namedSet, eval *evaluation, logger log.Logger) FitResult {
	res := FitResult{
		Model:      label,
		ModelIndex: mi,
		Set:        set.name,
		Role:       set.role,
		SetSize:    set.obs.Len(),
	}
	fitLogger := logger.With(log.EstimatorIDKey, label, log.SetKey, set.name)

	start := r.now()
	err := errors.SafeExecute(fmt.Sprintf("fit %s on %s", label, set.name), func() error {
		m, err := spec.Build(seed, fitLogger)
		if err != nil {
			return err
		}
		res.Estimator = m.Name()
		X, y, err := set.obs.Matrices()
		if err != nil {
			return err
		}
		if err := m.Fit(X, y); err != nil {
			return err
		}
		if pg, ok := m.(model.ParamGetter); ok {
			res.Params = pg.GetParams()
		}
		if we, ok := m.(model.WeightExporter); ok {
			if res.Weights, err = we.ExportWeights(); err != nil {
				return err
			}
		}
		return r.score(m, eval, &res)
	})
	res.DurationMs = r.now().Sub(start).Milliseconds()

	if err != nil {
		res.Error = err.Error()
		res.Curve = sim.Curve{}
		res.CurveError = metrics.CurveErrors{}
		res.Holdout = HoldoutMetrics{}
		res.Weights = nil
		fitLogger.Error("Fit failed", err,
			log.OperationKey, log.OperationFit,
			log.SamplesKey, res.SetSize,
		)
		return res
	}

	fitLogger.Info("Fit evaluated",
		log.OperationKey, log.OperationEvaluate,
		log.SamplesKey, res.SetSize,
		log.CurveRMSEKey, res.CurveError.RMSE,
		log.AUCKey, res.Holdout.AUC,
		log.DurationMsKey, res.DurationMs,
	)
	return res
}

// score predicts the curve over the grid and the held-out probabilities.
func (r *Runner) score(m model.ProbabilisticClassifier, eval *evaluation, res *FitResult) error {
	proba, err := m.PredictProba(eval.gridX)
	if err != nil {
		return err
	}
	res.Curve = sim.Curve{X: eval.grid, P: model.PositiveColumn(proba)}
	if res.CurveError, err = metrics.CompareCurves(eval.truth.P, res.Curve.P); err != nil {
		return err
	}

	testProba, err := m.PredictProba(eval.testX)
	if err != nil {
		return err
	}
	p := model.PositiveColumn(testProba)
	pv := mat.NewVecDense(len(p), p)

	h := &res.Holdout
	if h.LogLoss, err = metrics.BinaryLogLoss(eval.testY, pv); err != nil {
		return err
	}
	if h.Brier, err = metrics.BrierScore(eval.testY, pv); err != nil {
		return err
	}
	if h.AUC, err = metrics.AUC(eval.testY, pv); err != nil {
		return err
	}
	if h.Accuracy, err = metrics.ThresholdAccuracy(eval.testY, pv); err != nil {
		return err
	}
	return nil
}
