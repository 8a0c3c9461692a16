package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/render"
	"github.com/YuminosukeSato/occusim/sim"
)

type truthOptions struct {
	xs       []float64
	grid     int
	lo, hi   float64
	plotPath string
}

func setupTruthCommand() *cobra.Command {
	var o truthOptions

	cmd := &cobra.Command{
		Use:   "truth",
		Short: "Print the ground-truth occurrence probability f(x)",
		Long: `Print f(x) at the points given with --x, or on an evenly spaced grid of
--grid points over [--lo, --hi]. With --plot the curve is also drawn to
the given image file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTruth(cmd, o)
		},
	}

	cmd.Flags().Float64SliceVar(&o.xs, "x", nil, "Points at which to evaluate f (repeatable or comma-separated)")
	cmd.Flags().IntVar(&o.grid, "grid", 0, "Evaluate on a grid of this many points instead of --x")
	cmd.Flags().Float64Var(&o.lo, "lo", -6, "Grid lower bound")
	cmd.Flags().Float64Var(&o.hi, "hi", 6, "Grid upper bound")
	cmd.Flags().StringVar(&o.plotPath, "plot", "", "Also draw the curve over [--lo, --hi] to this image file")
	cmd.MarkFlagsMutuallyExclusive("x", "grid")
	return cmd
}

func runTruth(cmd *cobra.Command, o truthOptions) error {
	xs := o.xs
	if o.grid > 0 {
		grid, err := sim.Grid(o.lo, o.hi, o.grid)
		if err != nil {
			return err
		}
		xs = grid
	}
	if len(xs) == 0 && o.plotPath == "" {
		return errors.NewInvalidArgumentError("occusim truth", "x", "give --x, --grid or --plot", nil)
	}

	out := cmd.OutOrStdout()
	for _, x := range xs {
		if _, err := fmt.Fprintf(out, "%g\t%.6f\n", x, sim.Truth(x)); err != nil {
			return errors.Wrap(err, "write output")
		}
	}

	if o.plotPath != "" {
		fig := render.NewFigure("ground truth")
		if err := fig.AddTruth(sim.Truth, o.lo, o.hi); err != nil {
			return err
		}
		if err := fig.Save(o.plotPath, 7*vg.Inch, 4.5*vg.Inch); err != nil {
			return err
		}
	}
	return nil
}
