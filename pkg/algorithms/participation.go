package algorithms

import (
	"github.com/dd0wney/flowpanel/pkg/graph"
)

// Participation computes the participation coefficient for every node:
//
//	P_i = 1 - Σ_c (k_ic / k_i)²
//
// where k_i is the node's total weighted degree and k_ic the weight of
// its edges landing in community c. Both use the in+out convention
// uniformly: an outgoing edge counts toward the community of its
// destination, an incoming edge toward the community of its origin,
// and a self-loop contributes once per direction to the node's own
// community. Fully isolated nodes (k_i = 0) get the 0 fallback instead
// of a division by zero.
func Participation(snap *graph.Snapshot, membership map[string]int) map[string]float64 {
	nodes := snap.Nodes()
	result := make(map[string]float64, len(nodes))

	for _, node := range nodes {
		total := snap.Strength(node)
		if total <= 0 {
			result[node] = 0
			continue
		}

		perCommunity := make(map[int]float64)
		for dest, w := range snap.Out(node) {
			perCommunity[membership[dest]] += w
		}
		for origin, w := range snap.In(node) {
			perCommunity[membership[origin]] += w
		}

		sumSquares := 0.0
		for _, w := range perCommunity {
			ratio := w / total
			sumSquares += ratio * ratio
		}

		p := 1.0 - sumSquares
		// Guard against float error pushing an exact-zero case negative
		if p < 0 {
			p = 0
		}
		result[node] = p
	}

	return result
}

// ComputeCommunityMetrics runs community detection and the
// participation coefficient for one snapshot.
func ComputeCommunityMetrics(snap *graph.Snapshot, opts CommunityOptions) (*CommunityResult, map[string]float64) {
	communities := DetectCommunities(snap, opts)
	return communities, Participation(snap, communities.Membership)
}
