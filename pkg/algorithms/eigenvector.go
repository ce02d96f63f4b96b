package algorithms

import (
	"fmt"
	"math"

	"github.com/dd0wney/flowpanel/pkg/graph"
)

// EigenvectorOptions configures the power iteration.
type EigenvectorOptions struct {
	MaxIterations int
	Tolerance     float64
}

// DefaultEigenvectorOptions returns the fixed iteration budget and
// tolerance used across the whole series.
func DefaultEigenvectorOptions() EigenvectorOptions {
	return EigenvectorOptions{
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// Eigenvector computes eigenvector centrality by power iteration on
// the weighted in-edge adjacency: a node is central when much flow
// arrives from central nodes. The direction convention is fixed for
// the whole series. The result is scaled so the maximum entry is 1.
//
// Degenerate graphs (no positive-weight edges) and non-convergence
// within the iteration budget yield a fallback outcome for the whole
// snapshot rather than an error.
func Eigenvector(snap *graph.Snapshot, opts EigenvectorOptions) Outcome {
	if opts.MaxIterations <= 0 {
		opts = DefaultEigenvectorOptions()
	}

	nodes := snap.Nodes()
	n := len(nodes)
	if n == 0 {
		return ValueOutcome(map[string]float64{})
	}

	totalWeight := 0.0
	for _, node := range nodes {
		totalWeight += snap.InStrength(node)
	}
	if totalWeight <= 0 {
		return FallbackOutcome("degenerate graph: no positive-weight edges")
	}

	x := make(map[string]float64, n)
	for _, node := range nodes {
		x[node] = 1.0 / float64(n)
	}

	next := make(map[string]float64, n)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		norm := 0.0
		for _, node := range nodes {
			sum := 0.0
			for origin, weight := range snap.In(node) {
				sum += weight * x[origin]
			}
			next[node] = sum
			norm += sum * sum
		}

		norm = math.Sqrt(norm)
		if norm == 0 {
			// The iterate collapsed: all mass sat on nodes without
			// in-edges. The dominant eigenvalue is not usable here.
			return FallbackOutcome("degenerate graph: power iteration collapsed to zero")
		}

		maxDiff := 0.0
		for _, node := range nodes {
			next[node] /= norm
			if diff := math.Abs(next[node] - x[node]); diff > maxDiff {
				maxDiff = diff
			}
		}

		x, next = next, x

		if maxDiff < opts.Tolerance {
			return ValueOutcome(scaleByMax(x))
		}
	}

	return FallbackOutcome(fmt.Sprintf("no convergence within %d iterations", opts.MaxIterations))
}

// scaleByMax rescales so the largest entry is exactly 1.
func scaleByMax(x map[string]float64) map[string]float64 {
	maxVal := 0.0
	for _, v := range x {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		return x
	}
	scaled := make(map[string]float64, len(x))
	for node, v := range x {
		scaled[node] = v / maxVal
	}
	return scaled
}
