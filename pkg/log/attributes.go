// Package log defines standard attribute keys for simulation and model operations.
//
// The keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that log lines from sampling, fitting and evaluation can
// be filtered together.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model.
	// Examples: "PolynomialGLM", "PenalizedSplineGAM", "BoostedTrees"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies a specific model instance within a run.
	// Examples: "glm-degree-4", "gam-df-8"
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "sample", "evaluate", "render"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is logging.
	// Examples: "sim", "glm", "experiment"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the run.
	// Examples: "training", "evaluation"
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of observations processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of columns of a design matrix.
	FeaturesKey = "data.features"

	// SetKey labels an observation set within a run ("small-1", "large").
	SetKey = "data.set"

	// PrevalenceKey records the fraction of presences (y=1) in a set.
	PrevalenceKey = "data.prevalence"
)

// Simulation Context
const (
	// DomainLoKey and DomainHiKey record the sampling domain bounds.
	DomainLoKey = "sim.domain_lo"
	DomainHiKey = "sim.domain_hi"

	// GridSizeKey records the number of points in an evaluation grid.
	GridSizeKey = "sim.grid_size"

	// RunIDKey identifies one comparative run.
	RunIDKey = "run.id"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records a loss value (deviance, log loss) during training or evaluation.
	LossKey = "metrics.loss"

	// CurveRMSEKey records the RMSE between a fitted curve and the ground truth.
	CurveRMSEKey = "metrics.curve_rmse"

	// AUCKey records the held-out area under the ROC curve.
	AUCKey = "metrics.auc"

	// IterationKey records the current iteration number during iterative processes.
	IterationKey = "training.iteration"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated when an error carrying a stack is logged.
	StacktraceKey = "error.stacktrace"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// DegreeKey records the polynomial degree of a GLM.
	DegreeKey = "hyperparams.degree"

	// DFKey records the smoothing degrees of freedom of a GAM.
	DFKey = "hyperparams.df"

	// LearningRateKey records the shrinkage of a boosted model.
	LearningRateKey = "hyperparams.learning_rate"

	// RegularizationKey records a penalty strength.
	RegularizationKey = "hyperparams.regularization"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationSample   = "sample"
	OperationEvaluate = "evaluate"
	OperationRender   = "render"

	PhaseTraining   = "training"
	PhaseEvaluation = "evaluation"

	ErrorNotFitted       = "NOT_FITTED"
	ErrorInvalidArgument = "INVALID_ARGUMENT"
	ErrorConvergence     = "CONVERGENCE_FAILURE"
	ErrorSingularMatrix  = "SINGULAR_MATRIX"
	ErrorPanic           = "PANIC"
)
