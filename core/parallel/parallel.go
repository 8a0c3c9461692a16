// Package parallel splits index ranges across CPU cores. Used for evaluating
// fitted models and the ground truth over dense grids, where every index is
// independent and results are written to disjoint slice positions.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the item count below which work runs sequentially.
const DefaultThreshold = 1000

// Parallelize divides items into one contiguous chunk per CPU core and calls
// fn(start, end) for each chunk concurrently. It returns after all chunks
// complete.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, items)
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) sequentially when items does not
// exceed threshold, and Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// Map evaluates f at every element of xs and returns the results in order.
// f must be safe for concurrent use.
func Map(xs []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(xs))
	ParallelizeWithThreshold(len(xs), DefaultThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = f(xs[i])
		}
	})
	return out
}
