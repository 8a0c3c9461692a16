package model

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

// StateManager tracks whether an estimator has been fitted and the shape of
// its training data. Safe for concurrent use.
type StateManager struct {
	mu sync.RWMutex

	Fitted    bool
	NFeatures int
	NSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// Reset clears the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// SetDimensions records the number of features and samples seen during fitting.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// GetDimensions returns the number of features and samples seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted returns a NotFittedError naming the model and method if the
// model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// ModelState is a snapshot of a StateManager, carried by ModelWeights.
type ModelState struct {
	Fitted    bool `json:"fitted"`
	NFeatures int  `json:"n_features,omitempty"`
	NSamples  int  `json:"n_samples,omitempty"`
}

// GetState returns the current state.
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ModelState{Fitted: s.Fitted, NFeatures: s.NFeatures, NSamples: s.NSamples}
}

// ValidateFitInput checks that X is n×nFeatures, y is n×1 with 0/1 values,
// and n > 0. op names the calling operation in errors.
func ValidateFitInput(op string, X, y mat.Matrix, nFeatures int) (int, error) {
	n, p := X.Dims()
	if n == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, op)
	}
	if p != nFeatures {
		return 0, errors.NewDimensionError(op, nFeatures, p, 1)
	}
	yr, yc := y.Dims()
	if yr != n {
		return 0, errors.NewDimensionError(op, n, yr, 0)
	}
	if yc != 1 {
		return 0, errors.NewDimensionError(op, 1, yc, 1)
	}
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return 0, errors.NewValueError(op, "y must contain only 0 and 1")
		}
	}
	return n, nil
}
