// Package sim generates synthetic presence/absence data from a known
// occurrence-probability curve.
//
// The ground truth is
//
//	f(x) = T₂( x/2 + sin²(x) − x²/5 + s(x) ),  s(x) = +0.5 if x > 0, −0.5 otherwise
//
// where T₂ is the cumulative distribution function of Student's t with two
// degrees of freedom. A Sampler draws covariate values uniformly from a
// Domain and one independent Bernoulli(f(x)) outcome per value.
//
// Reproducibility comes from the random source: two Samplers built on
// sources created by NewSource with the same seed return identical
// ObservationSets for the same sequence of calls.
package sim
