// Package occusim simulates species-occurrence data from a known probability
// curve and shows how well different model families recover that curve from
// small and large samples.
//
// Several small observation sets and one large concatenated set are drawn
// from the same ground truth. Each configured model is fitted to every set,
// and its fitted probability curve is scored against the truth on a grid and
// against a held-out test set. Flexible models fitted to small sets vary a
// lot from set to set; the large set exposes each family's bias.
//
// # Quick Start
//
//	go install github.com/YuminosukeSato/occusim/cmd/occusim@latest
//	occusim truth --x 0 --x 6
//	occusim sample --n 200 --seed 1 --format csv
//	occusim run --out results
//
// The same run from Go:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/occusim/experiment"
//	    "github.com/YuminosukeSato/occusim/render"
//	)
//
//	func main() {
//	    report, err := experiment.NewRunner().Run(context.Background(), experiment.DefaultScenario())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, row := range report.Summary() {
//	        fmt.Printf("%-28s small %.3f  large %.3f\n", row.Model, row.MeanSmallRMSE, row.LargeRMSE)
//	    }
//	    if _, err := render.RenderReport(report, "figures"); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Packages
//
//   - sim: ground-truth curve, sampler, observation sets and grids
//   - glm: logistic regression on a polynomial basis of x
//   - gam: logistic penalized regression spline with a target df
//   - boost: gradient-boosted regression trees with log loss
//   - linear: penalized IRLS solver shared by glm and gam
//   - preprocessing: polynomial and B-spline bases, standard scaling
//   - metrics: curve errors and held-out classification metrics
//   - experiment: scenarios, the comparison runner and its report
//   - render: gonum/plot figures of the truth and fitted curves
//   - core/model: estimator interfaces, fit state, weight export
//   - core/parallel: row-parallel helpers
//   - pkg/errors, pkg/log: error types and structured logging
//
// # License
//
// occusim is released under the MIT License.
package occusim
