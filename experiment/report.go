package experiment

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/occusim/core/model"
	"github.com/YuminosukeSato/occusim/metrics"
	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/sim"
)

// Set roles.
const (
	RoleSmall = "small"
	RoleLarge = "large"
	RoleTest  = "test"
)

// SetSummary describes one observation set drawn during a run.
type SetSummary struct {
	Name         string              `json:"name"`
	Role         string              `json:"role"`
	Size         int                 `json:"size"`
	Prevalence   float64             `json:"prevalence"`
	Observations *sim.ObservationSet `json:"observations,omitempty"`
}

// HoldoutMetrics scores a fitted model's probabilities on the test set.
type HoldoutMetrics struct {
	LogLoss  float64 `json:"log_loss"`
	Brier    float64 `json:"brier"`
	AUC      float64 `json:"auc"`
	Accuracy float64 `json:"accuracy"`
}

// FitResult is the outcome of fitting one model spec to one set. A failed
// fit carries Error and zero-valued metrics.
type FitResult struct {
	Model      string `json:"model"`
	ModelIndex int    `json:"model_index"`
	Estimator  string `json:"estimator,omitempty"`
	Set        string `json:"set"`
	Role       string `json:"role"`
	SetSize    int    `json:"set_size"`

	Curve      sim.Curve           `json:"curve"`
	CurveError metrics.CurveErrors `json:"curve_error"`
	Holdout    HoldoutMetrics      `json:"holdout"`

	Params     map[string]interface{} `json:"params,omitempty"`
	Weights    *model.ModelWeights    `json:"weights,omitempty"` // nil for estimators without a weight export
	DurationMs int64                  `json:"duration_ms"`
	Error      string                 `json:"error,omitempty"`
}

// Failed reports whether the fit returned an error or panicked.
func (f FitResult) Failed() bool {
	return f.Error != ""
}

// Report is everything a run produced, in draw and fit order.
type Report struct {
	RunID      string    `json:"run_id"`
	Scenario   Scenario  `json:"scenario"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`

	Truth sim.Curve    `json:"truth"`
	Sets  []SetSummary `json:"sets"`
	Fits  []FitResult  `json:"fits"`
}

// FitsFor returns the fits of model spec i in set order.
func (r *Report) FitsFor(i int) []FitResult {
	var out []FitResult
	for _, f := range r.Fits {
		if f.ModelIndex == i {
			out = append(out, f)
		}
	}
	return out
}

// Failures returns the fits that did not complete.
func (r *Report) Failures() []FitResult {
	var out []FitResult
	for _, f := range r.Fits {
		if f.Failed() {
			out = append(out, f)
		}
	}
	return out
}

// SetsWithRole returns the set summaries with the given role.
func (r *Report) SetsWithRole(role string) []SetSummary {
	var out []SetSummary
	for _, s := range r.Sets {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// ModelSummary condenses the fits of one model spec.
type ModelSummary struct {
	Model         string  `json:"model"`
	SmallFits     int     `json:"small_fits"`
	MeanSmallRMSE float64 `json:"mean_small_rmse"`
	SDSmallRMSE   float64 `json:"sd_small_rmse"`
	LargeRMSE     float64 `json:"large_rmse"`
	LargeAUC      float64 `json:"large_auc"`
	Failures      int     `json:"failures"`
}

// Summary returns one row per model spec. The spread of the small-set RMSE
// shows the variance of a model class, the large-set RMSE its bias.
func (r *Report) Summary() []ModelSummary {
	out := make([]ModelSummary, len(r.Scenario.Models))
	for i, spec := range r.Scenario.Models {
		row := ModelSummary{Model: spec.DisplayName()}
		var small []float64
		for _, f := range r.FitsFor(i) {
			if f.Failed() {
				row.Failures++
				continue
			}
			switch f.Role {
			case RoleSmall:
				small = append(small, f.CurveError.RMSE)
			case RoleLarge:
				row.LargeRMSE = f.CurveError.RMSE
				row.LargeAUC = f.Holdout.AUC
			}
		}
		row.SmallFits = len(small)
		if len(small) > 0 {
			row.MeanSmallRMSE = stat.Mean(small, nil)
		}
		if len(small) > 1 {
			row.SDSmallRMSE = stat.StdDev(small, nil)
		}
		out[i] = row
	}
	return out
}

// WriteJSON encodes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "encode report")
	}
	return nil
}

// SaveJSON writes the report to path.
func (r *Report) SaveJSON(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return r.WriteJSON(f)
}

// ReadReport decodes a report written by WriteJSON.
func ReadReport(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decode report")
	}
	return &r, nil
}
