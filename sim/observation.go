package sim

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

// Observation is one simulated site visit: covariate value X and observed
// presence Y (0 or 1).
type Observation struct {
	X float64 `json:"x"`
	Y int     `json:"y"`
}

// ObservationSet is an ordered, immutable collection of observations. The
// zero value is an empty set.
type ObservationSet struct {
	obs []Observation
}

// NewObservationSet copies obs into a new set.
func NewObservationSet(obs []Observation) ObservationSet {
	return ObservationSet{obs: append([]Observation(nil), obs...)}
}

// Concat joins sets in argument order. No deduplication is performed.
func Concat(sets ...ObservationSet) ObservationSet {
	total := 0
	for _, s := range sets {
		total += len(s.obs)
	}
	out := make([]Observation, 0, total)
	for _, s := range sets {
		out = append(out, s.obs...)
	}
	return ObservationSet{obs: out}
}

// Len returns the number of observations.
func (s ObservationSet) Len() int {
	return len(s.obs)
}

// At returns the i-th observation.
func (s ObservationSet) At(i int) Observation {
	return s.obs[i]
}

// Observations returns a copy of the observations in order.
func (s ObservationSet) Observations() []Observation {
	return append([]Observation(nil), s.obs...)
}

// Xs returns the covariate values in order.
func (s ObservationSet) Xs() []float64 {
	xs := make([]float64, len(s.obs))
	for i, o := range s.obs {
		xs[i] = o.X
	}
	return xs
}

// Ys returns the outcomes in order as float64 (0 or 1).
func (s ObservationSet) Ys() []float64 {
	ys := make([]float64, len(s.obs))
	for i, o := range s.obs {
		ys[i] = float64(o.Y)
	}
	return ys
}

// Prevalence returns the fraction of observations with Y = 1, or 0 for an
// empty set.
func (s ObservationSet) Prevalence() float64 {
	if len(s.obs) == 0 {
		return 0
	}
	n := 0
	for _, o := range s.obs {
		n += o.Y
	}
	return float64(n) / float64(len(s.obs))
}

// Matrices returns the set as an n×1 design matrix and an n×1 response.
func (s ObservationSet) Matrices() (X, y *mat.Dense, err error) {
	if len(s.obs) == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "ObservationSet.Matrices")
	}
	return mat.NewDense(len(s.obs), 1, s.Xs()), mat.NewDense(len(s.obs), 1, s.Ys()), nil
}

// MarshalJSON encodes the set as a JSON array of observations.
func (s ObservationSet) MarshalJSON() ([]byte, error) {
	if s.obs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.obs)
}

// UnmarshalJSON decodes a JSON array of observations.
func (s *ObservationSet) UnmarshalJSON(data []byte) error {
	var obs []Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return errors.Wrap(err, "decode observation set")
	}
	for i, o := range obs {
		if o.Y != 0 && o.Y != 1 {
			return errors.NewValueError("ObservationSet.UnmarshalJSON",
				"y must be 0 or 1 at index "+strconv.Itoa(i))
		}
	}
	s.obs = obs
	return nil
}

// WriteCSV writes a header row "x,y" followed by one row per observation.
func (s ObservationSet) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "y"}); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, o := range s.obs {
		rec := []string{
			strconv.FormatFloat(o.X, 'g', -1, 64),
			strconv.Itoa(o.Y),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// ReadCSV parses the format written by WriteCSV.
func ReadCSV(r io.Reader) (ObservationSet, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return ObservationSet{}, errors.Wrap(err, "read csv")
	}
	if len(records) == 0 || len(records[0]) != 2 || records[0][0] != "x" || records[0][1] != "y" {
		return ObservationSet{}, errors.NewValueError("sim.ReadCSV", `expected header "x,y"`)
	}
	obs := make([]Observation, 0, len(records)-1)
	for i, rec := range records[1:] {
		x, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return ObservationSet{}, errors.Wrapf(err, "row %d: parse x", i+1)
		}
		y, err := strconv.Atoi(rec[1])
		if err != nil {
			return ObservationSet{}, errors.Wrapf(err, "row %d: parse y", i+1)
		}
		if y != 0 && y != 1 {
			return ObservationSet{}, errors.NewValueError("sim.ReadCSV", "y must be 0 or 1 at row "+strconv.Itoa(i+1))
		}
		obs = append(obs, Observation{X: x, Y: y})
	}
	return ObservationSet{obs: obs}, nil
}
