package algorithms

import (
	"math"
	"testing"

	"github.com/dd0wney/flowpanel/pkg/graph"
	"github.com/dd0wney/flowpanel/pkg/period"
)

const floatTol = 1e-6

func testKey() period.Key {
	return period.Key{Year: "2016", DayType: "MTT", TimeBand: "Total"}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= floatTol
}

// threeNodeFixture builds a strongly connected 3-node, 4-edge graph
// with hand-computed reference values:
//
//	A -> B (2), B -> C (4), C -> A (8), A -> C (1)
//
// Cost graph (1/weight): A->B 0.5, B->C 0.25, C->A 0.125, A->C 1.0.
// The A->C shortest path runs via B (0.75 < 1.0).
func threeNodeFixture(t *testing.T) *graph.Snapshot {
	t.Helper()
	snap := graph.NewSnapshot("fixture.graphml", testKey())
	for _, e := range []struct {
		from, to string
		w        float64
	}{
		{"A", "B", 2}, {"B", "C", 4}, {"C", "A", 8}, {"A", "C", 1},
	} {
		if err := snap.AddEdge(e.from, e.to, e.w); err != nil {
			t.Fatalf("AddEdge failed: %v", err)
		}
	}
	return snap
}

func TestWeightedDegrees_EmptyGraph(t *testing.T) {
	snap := graph.NewSnapshot("empty.graphml", testKey())
	snap.AddNode("A")
	snap.AddNode("B")

	in, out := WeightedDegrees(snap)

	for _, node := range []string{"A", "B"} {
		if in[node] != 0 {
			t.Errorf("Expected in-degree 0 for %s, got %f", node, in[node])
		}
		if out[node] != 0 {
			t.Errorf("Expected out-degree 0 for %s, got %f", node, out[node])
		}
	}
}

func TestWeightedDegrees_SingleEdge(t *testing.T) {
	snap := graph.NewSnapshot("pair.graphml", testKey())
	snap.AddEdge("A", "B", 3.5)

	in, out := WeightedDegrees(snap)

	if out["A"] != 3.5 {
		t.Errorf("Expected out-degree 3.5 for A, got %f", out["A"])
	}
	if in["B"] != 3.5 {
		t.Errorf("Expected in-degree 3.5 for B, got %f", in["B"])
	}
	if in["A"] != 0 {
		t.Errorf("Expected in-degree 0 for A, got %f", in["A"])
	}
	if out["B"] != 0 {
		t.Errorf("Expected out-degree 0 for B, got %f", out["B"])
	}
}

func TestWeightedDegrees_Fixture(t *testing.T) {
	snap := threeNodeFixture(t)

	in, out := WeightedDegrees(snap)

	// Degree measures are closed-form, so exact equality is expected.
	expected := []struct {
		node    string
		in, out float64
	}{
		{"A", 8, 3},
		{"B", 2, 4},
		{"C", 5, 8},
	}
	for _, e := range expected {
		if in[e.node] != e.in {
			t.Errorf("Expected in-degree %f for %s, got %f", e.in, e.node, in[e.node])
		}
		if out[e.node] != e.out {
			t.Errorf("Expected out-degree %f for %s, got %f", e.out, e.node, out[e.node])
		}
	}
}

func TestBetweenness_Fixture(t *testing.T) {
	snap := threeNodeFixture(t)

	bc := Betweenness(snap)

	// Each node sits on exactly one of the six ordered shortest paths:
	// B on A->C, C on B->A, A on C->B. Raw score 1, normalized by
	// (n-1)(n-2) = 2.
	for _, node := range []string{"A", "B", "C"} {
		if !almostEqual(bc[node], 0.5) {
			t.Errorf("Expected betweenness 0.5 for %s, got %f", node, bc[node])
		}
	}
}

func TestBetweenness_EmptyGraph(t *testing.T) {
	snap := graph.NewSnapshot("empty.graphml", testKey())
	snap.AddNode("A")
	snap.AddNode("B")
	snap.AddNode("C")

	bc := Betweenness(snap)

	for node, v := range bc {
		if v != 0 {
			t.Errorf("Expected betweenness 0 for %s on edgeless graph, got %f", node, v)
		}
	}
}

func TestBetweenness_DisconnectedComponents(t *testing.T) {
	snap := graph.NewSnapshot("disconnected.graphml", testKey())
	snap.AddEdge("A", "B", 1)
	snap.AddEdge("C", "D", 1)

	bc := Betweenness(snap)

	// No cross-component shortest paths exist and neither component
	// has an intermediate node, so everything is 0 and nothing errors.
	for node, v := range bc {
		if v != 0 {
			t.Errorf("Expected betweenness 0 for %s, got %f", node, v)
		}
	}
}

func TestCloseness_Fixture(t *testing.T) {
	snap := threeNodeFixture(t)

	cc := Closeness(snap)

	// A: dists 0.5 (B), 0.75 (C via B) -> 2/1.25 = 1.6
	// B: dists 0.25 (C), 0.375 (A via C) -> 2/0.625 = 3.2
	// C: dists 0.125 (A), 0.625 (B via A) -> 2/0.75
	expected := map[string]float64{
		"A": 1.6,
		"B": 3.2,
		"C": 2.0 / 0.75,
	}
	for node, want := range expected {
		if !almostEqual(cc[node], want) {
			t.Errorf("Expected closeness %f for %s, got %f", want, node, cc[node])
		}
	}
}

func TestCloseness_DisconnectedComponents(t *testing.T) {
	snap := graph.NewSnapshot("disconnected.graphml", testKey())
	snap.AddEdge("A", "B", 1)
	snap.AddEdge("C", "D", 1)

	cc := Closeness(snap)

	// Reachability is within-component only: A reaches B at cost 1,
	// B reaches nothing.
	if !almostEqual(cc["A"], 1) {
		t.Errorf("Expected closeness 1 for A, got %f", cc["A"])
	}
	if cc["B"] != 0 {
		t.Errorf("Expected closeness 0 for sink B, got %f", cc["B"])
	}
	if !almostEqual(cc["C"], 1) {
		t.Errorf("Expected closeness 1 for C, got %f", cc["C"])
	}
	if cc["D"] != 0 {
		t.Errorf("Expected closeness 0 for sink D, got %f", cc["D"])
	}
}

func TestCloseness_EmptyGraph(t *testing.T) {
	snap := graph.NewSnapshot("empty.graphml", testKey())
	snap.AddNode("A")
	snap.AddNode("B")

	cc := Closeness(snap)

	for node, v := range cc {
		if v != 0 {
			t.Errorf("Expected closeness 0 for %s on edgeless graph, got %f", node, v)
		}
	}
}

func TestBetweenness_ZeroWeightEdgeExcluded(t *testing.T) {
	snap := graph.NewSnapshot("zero.graphml", testKey())
	snap.AddEdge("A", "B", 0)
	snap.AddEdge("B", "C", 0)

	bc := Betweenness(snap)
	cc := Closeness(snap)

	// Zero-weight edges carry no flow and are excluded from path
	// consideration, so the graph behaves as edgeless.
	for node := range bc {
		if bc[node] != 0 {
			t.Errorf("Expected betweenness 0 for %s, got %f", node, bc[node])
		}
		if cc[node] != 0 {
			t.Errorf("Expected closeness 0 for %s, got %f", node, cc[node])
		}
	}
}

func TestComputeCentrality_AllMeasuresPresent(t *testing.T) {
	snap := threeNodeFixture(t)

	result := ComputeCentrality(snap, DefaultEigenvectorOptions())

	if result.InDegree.FellBack() || result.OutDegree.FellBack() {
		t.Error("Degree measures should never fall back")
	}
	if result.Betweenness.FellBack() {
		t.Errorf("Unexpected betweenness fallback: %s", result.Betweenness.Reason)
	}
	if result.Closeness.FellBack() {
		t.Errorf("Unexpected closeness fallback: %s", result.Closeness.Reason)
	}
	if result.Eigenvector.FellBack() {
		t.Errorf("Unexpected eigenvector fallback: %s", result.Eigenvector.Reason)
	}
	if v := result.InDegree.ValueOr("A", -1); v != 8 {
		t.Errorf("Expected in-degree 8 for A, got %f", v)
	}
}

func TestComputeCentrality_EdgelessGraphFallsBackToZero(t *testing.T) {
	snap := graph.NewSnapshot("empty.graphml", testKey())
	snap.AddNode("A")

	result := ComputeCentrality(snap, DefaultEigenvectorOptions())

	if !result.Eigenvector.FellBack() {
		t.Error("Expected eigenvector fallback on degenerate graph")
	}
	if v := result.Eigenvector.ValueOr("A", 0); v != 0 {
		t.Errorf("Expected flattened eigenvector 0, got %f", v)
	}
}
