// Package linear solves the weighted, penalized least-squares systems behind
// the logistic models in glm and gam.
//
// FitLogistic runs iteratively reweighted least squares (IRLS) for a
// Bernoulli response with logit link: at every step it solves
//
//	(XᵀWX + S) β = XᵀWz
//
// by Cholesky factorization, where W holds the working weights μ(1−μ), z the
// working response and S a fixed penalty matrix (ridge or P-spline).
package linear
