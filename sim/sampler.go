package sim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
)

// NewSource returns a PCG source seeded from seed. Sources built from the
// same seed produce the same stream.
func NewSource(seed int64) rand.Source {
	return rand.NewPCG(uint64(seed), uint64(seed))
}

// Sampler draws observation sets from a truth curve. Every draw consumes the
// shared source, so a Sampler is not safe for concurrent use.
type Sampler struct {
	src    rand.Source
	domain Domain
	truth  TruthFunc
	logger log.Logger
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithDomain sets the default sampling domain used by Sample.
func WithDomain(lo, hi float64) SamplerOption {
	return func(s *Sampler) {
		s.domain = Domain{Lo: lo, Hi: hi}
	}
}

// WithTruth replaces the ground-truth curve. f must return values in [0,1].
func WithTruth(f TruthFunc) SamplerOption {
	return func(s *Sampler) {
		s.truth = f
	}
}

// WithLogger sets the logger used for per-draw debug records.
func WithLogger(l log.Logger) SamplerOption {
	return func(s *Sampler) {
		s.logger = l
	}
}

// NewSampler creates a sampler on src with the default domain [-6, 6] and
// the Truth curve.
func NewSampler(src rand.Source, opts ...SamplerOption) (*Sampler, error) {
	if src == nil {
		return nil, errors.NewInvalidArgumentError("sim.NewSampler", "src", "must not be nil", nil)
	}
	s := &Sampler{
		src:    src,
		domain: DefaultDomain(),
		truth:  Truth,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.truth == nil {
		return nil, errors.NewInvalidArgumentError("sim.NewSampler", "truth", "must not be nil", nil)
	}
	if err := s.domain.Validate("sim.NewSampler"); err != nil {
		return nil, err
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("sim")
	}
	return s, nil
}

// Domain returns the sampler's default domain.
func (s *Sampler) Domain() Domain {
	return s.domain
}

// Sample draws n observations over the sampler's domain.
func (s *Sampler) Sample(n int) (ObservationSet, error) {
	return s.SampleIn(n, s.domain.Lo, s.domain.Hi)
}

// SampleIn draws n covariate values uniformly from [lo, hi], then one
// Bernoulli(f(x)) outcome per value, in draw order. It returns an
// InvalidArgumentError if n <= 0, lo >= hi, or a bound is not finite.
func (s *Sampler) SampleIn(n int, lo, hi float64) (ObservationSet, error) {
	const op = "sim.Sample"
	if n <= 0 {
		return ObservationSet{}, errors.NewInvalidArgumentError(op, "n", "must be positive", n)
	}
	if err := (Domain{Lo: lo, Hi: hi}).Validate(op); err != nil {
		return ObservationSet{}, err
	}

	uniform := distuv.Uniform{Min: lo, Max: hi, Src: s.src}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = uniform.Rand()
	}

	set, err := s.observe(op, xs)
	if err != nil {
		return ObservationSet{}, err
	}
	s.logger.Debug("Sampled observation set",
		log.OperationKey, log.OperationSample,
		log.SamplesKey, n,
		log.DomainLoKey, lo,
		log.DomainHiKey, hi,
		log.PrevalenceKey, set.Prevalence(),
	)
	return set, nil
}

// ObserveAt draws one independent Bernoulli(f(x)) outcome at each given x,
// in order. Repeated x values get separate draws.
func (s *Sampler) ObserveAt(xs []float64) (ObservationSet, error) {
	const op = "sim.ObserveAt"
	if len(xs) == 0 {
		return ObservationSet{}, errors.NewInvalidArgumentError(op, "xs", "must not be empty", 0)
	}
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ObservationSet{}, errors.NewInvalidArgumentError(op, "xs", "must be finite", i)
		}
	}
	return s.observe(op, xs)
}

// SampleSets draws k independent sets of n observations each, in order.
func (s *Sampler) SampleSets(k, n int) ([]ObservationSet, error) {
	if k <= 0 {
		return nil, errors.NewInvalidArgumentError("sim.SampleSets", "k", "must be positive", k)
	}
	sets := make([]ObservationSet, k)
	for i := range sets {
		set, err := s.Sample(n)
		if err != nil {
			return nil, err
		}
		sets[i] = set
	}
	return sets, nil
}

func (s *Sampler) observe(op string, xs []float64) (ObservationSet, error) {
	obs := make([]Observation, len(xs))
	for i, x := range xs {
		p := s.truth(x)
		if math.IsNaN(p) || p < 0 || p > 1 {
			return ObservationSet{}, errors.NewValueError(op, "truth returned a value outside [0,1]")
		}
		trial := distuv.Bernoulli{P: p, Src: s.src}
		obs[i] = Observation{X: x, Y: int(trial.Rand())}
	}
	return ObservationSet{obs: obs}, nil
}
