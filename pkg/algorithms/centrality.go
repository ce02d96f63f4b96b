package algorithms

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/dd0wney/flowpanel/pkg/graph"
)

// distEps is the tolerance under which two path costs count as equal
// when accumulating shortest-path multiplicities.
const distEps = 1e-9

// CentralityResult contains the five centrality measures for one
// snapshot, each as a tagged outcome.
type CentralityResult struct {
	InDegree    Outcome
	OutDegree   Outcome
	Betweenness Outcome
	Closeness   Outcome
	Eigenvector Outcome
}

// ComputeCentrality computes all centrality measures for one snapshot.
// Failures are contained per measure: a measure that cannot be
// computed yields a fallback outcome and the others still proceed.
func ComputeCentrality(snap *graph.Snapshot, opts EigenvectorOptions) *CentralityResult {
	in, out := WeightedDegrees(snap)

	return &CentralityResult{
		InDegree:    ValueOutcome(in),
		OutDegree:   ValueOutcome(out),
		Betweenness: safeMeasure(func() Outcome { return ValueOutcome(Betweenness(snap)) }),
		Closeness:   safeMeasure(func() Outcome { return ValueOutcome(Closeness(snap)) }),
		Eigenvector: safeMeasure(func() Outcome { return Eigenvector(snap, opts) }),
	}
}

// safeMeasure isolates a single measure: a panic becomes a fallback
// outcome instead of aborting the snapshot.
func safeMeasure(fn func() Outcome) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = FallbackOutcome(fmt.Sprintf("panic: %v", r))
		}
	}()
	return fn()
}

// WeightedDegrees computes weighted in- and out-degree for every node.
// Self-loops count toward both directions. Isolated nodes get 0.
func WeightedDegrees(snap *graph.Snapshot) (in, out map[string]float64) {
	nodes := snap.Nodes()
	in = make(map[string]float64, len(nodes))
	out = make(map[string]float64, len(nodes))
	for _, node := range nodes {
		in[node] = snap.InStrength(node)
		out[node] = snap.OutStrength(node)
	}
	return in, out
}

// Edge weights are flow volumes, not distances, so path-based measures
// traverse a cost graph with cost = 1/weight. Zero-weight edges are
// excluded from path consideration entirely.

// queueItem is a node with its tentative distance in the cost graph.
type queueItem struct {
	node string
	dist float64
}

type distHeap []queueItem

func (h distHeap) Len() int { return len(h) }
func (h distHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].node < h[j].node
}
func (h distHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *distHeap) Push(x any) {
	*h = append(*h, x.(queueItem))
}

func (h *distHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// dijkstraState holds the per-source results of one Dijkstra pass over
// the cost graph: shortest distances, path counts, predecessor lists,
// and the settle order needed for Brandes back-propagation.
type dijkstraState struct {
	dist  map[string]float64
	sigma map[string]float64
	preds map[string][]string
	order []string // settled nodes in nondecreasing distance
}

// dijkstraFrom runs a single-source shortest-path pass over the cost
// graph. Self-loops are skipped: a loop can never lie on a shortest
// path between distinct nodes.
func dijkstraFrom(snap *graph.Snapshot, source string) *dijkstraState {
	st := &dijkstraState{
		dist:  map[string]float64{source: 0},
		sigma: map[string]float64{source: 1},
		preds: make(map[string][]string),
	}

	settled := make(map[string]bool)
	pq := &distHeap{{node: source, dist: 0}}

	for pq.Len() > 0 {
		item := heap.Pop(pq).(queueItem)
		v := item.node
		if settled[v] {
			continue
		}
		settled[v] = true
		st.order = append(st.order, v)

		for w, weight := range snap.Out(v) {
			if w == v || weight <= 0 {
				continue
			}
			cost := 1.0 / weight
			candidate := st.dist[v] + cost

			current, seen := st.dist[w]
			switch {
			case !seen || candidate < current-distEps:
				st.dist[w] = candidate
				st.sigma[w] = st.sigma[v]
				st.preds[w] = []string{v}
				heap.Push(pq, queueItem{node: w, dist: candidate})
			case math.Abs(candidate-current) <= distEps:
				st.sigma[w] += st.sigma[v]
				st.preds[w] = append(st.preds[w], v)
			}
		}
	}

	return st
}

// Betweenness computes weighted betweenness centrality via Brandes'
// algorithm with a Dijkstra pass per source, normalized by
// (n-1)(n-2) for directed graphs when n > 2. On a disconnected graph
// nodes outside any path simply accumulate 0.
func Betweenness(snap *graph.Snapshot) map[string]float64 {
	nodes := snap.Nodes()
	n := len(nodes)

	betweenness := make(map[string]float64, n)
	for _, node := range nodes {
		betweenness[node] = 0
	}

	for _, source := range nodes {
		st := dijkstraFrom(snap, source)

		delta := make(map[string]float64, len(st.order))
		for i := len(st.order) - 1; i >= 0; i-- {
			w := st.order[i]
			for _, v := range st.preds[w] {
				delta[v] += (st.sigma[v] / st.sigma[w]) * (1.0 + delta[w])
			}
			if w != source {
				betweenness[w] += delta[w]
			}
		}
	}

	if n > 2 {
		normFactor := 1.0 / float64((n-1)*(n-2))
		for node := range betweenness {
			betweenness[node] *= normFactor
		}
	}

	return betweenness
}

// Closeness computes weighted closeness centrality: the number of
// reachable nodes divided by the total cost-graph distance to them
// (the disconnected-graph convention of averaging over reachable nodes
// only). Nodes that reach nothing get 0.
func Closeness(snap *graph.Snapshot) map[string]float64 {
	nodes := snap.Nodes()
	closeness := make(map[string]float64, len(nodes))

	for _, source := range nodes {
		st := dijkstraFrom(snap, source)

		totalDistance := 0.0
		reachable := 0
		for node, dist := range st.dist {
			if node == source {
				continue
			}
			totalDistance += dist
			reachable++
		}

		if totalDistance > 0 {
			closeness[source] = float64(reachable) / totalDistance
		} else {
			closeness[source] = 0
		}
	}

	return closeness
}
