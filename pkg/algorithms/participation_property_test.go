package algorithms

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/flowpanel/pkg/graph"
	"github.com/dd0wney/flowpanel/pkg/period"
)

// randomSnapshot builds a small graph from generated edge data.
func randomSnapshot(edges [][3]int) *graph.Snapshot {
	snap := graph.NewSnapshot("prop.graphml", period.Key{Year: "2000", DayType: "MTT", TimeBand: "Total"})
	for _, e := range edges {
		from := fmt.Sprintf("n%d", e[0])
		to := fmt.Sprintf("n%d", e[1])
		snap.AddEdge(from, to, float64(e[2]))
	}
	return snap
}

// TestParticipationProperties verifies invariants that must hold for
// any graph and any community assignment.
func TestParticipationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	// (from, to, weight) triples over a small node space
	rawEdges := gen.SliceOf(gopter.CombineGens(
		gen.IntRange(0, 5),
		gen.IntRange(0, 5),
		gen.IntRange(0, 20),
	).Map(func(vals []interface{}) [3]int {
		return [3]int{vals[0].(int), vals[1].(int), vals[2].(int)}
	}))

	properties.Property("participation is always within [0, 1]", prop.ForAll(
		func(edges [][3]int, mod int) bool {
			snap := randomSnapshot(edges)
			membership := make(map[string]int)
			for i, node := range snap.Nodes() {
				membership[node] = i % (mod + 1)
			}
			for _, v := range Participation(snap, membership) {
				if v < 0 || v > 1 {
					return false
				}
			}
			return true
		},
		rawEdges,
		gen.IntRange(0, 4),
	))

	properties.Property("single community forces participation 0", prop.ForAll(
		func(edges [][3]int) bool {
			snap := randomSnapshot(edges)
			membership := make(map[string]int)
			for _, node := range snap.Nodes() {
				membership[node] = 0
			}
			for _, v := range Participation(snap, membership) {
				if v != 0 {
					return false
				}
			}
			return true
		},
		rawEdges,
	))

	properties.TestingRun(t)
}
