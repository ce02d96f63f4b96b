package graph

import (
	"fmt"
	"sort"

	"github.com/dd0wney/flowpanel/pkg/period"
)

// ErrNegativeWeight is returned when an edge carries a negative flow.
var ErrNegativeWeight = fmt.Errorf("edge weight must be non-negative")

// Snapshot is one directed weighted flow graph for a single period.
// Nodes are geographic units keyed by stable string labels; edges carry
// pre-aggregated flow volumes. Adding the same ordered pair twice sums
// the weights, so a pair always has at most one edge. Self-loops are
// allowed and represent intra-unit flow.
//
// A Snapshot is built once by the loader and then read concurrently by
// the engines; it must not be mutated after construction.
type Snapshot struct {
	Source string // originating filename
	Key    period.Key

	nodes map[string]struct{}
	out   map[string]map[string]float64
	in    map[string]map[string]float64

	edgeCount int
}

// NewSnapshot creates an empty snapshot for the given source file and
// period key.
func NewSnapshot(source string, key period.Key) *Snapshot {
	return &Snapshot{
		Source: source,
		Key:    key,
		nodes:  make(map[string]struct{}),
		out:    make(map[string]map[string]float64),
		in:     make(map[string]map[string]float64),
	}
}

// AddNode registers a node label. Isolated nodes still produce metric
// rows, so vertices declared without edges must be added explicitly.
func (s *Snapshot) AddNode(label string) {
	s.nodes[label] = struct{}{}
}

// HasNode reports whether the label is present in the snapshot.
func (s *Snapshot) HasNode(label string) bool {
	_, ok := s.nodes[label]
	return ok
}

// AddEdge adds flow from origin to destination, registering both nodes.
// Repeated pairs aggregate into a single edge weight.
func (s *Snapshot) AddEdge(from, to string, weight float64) error {
	if weight < 0 {
		return fmt.Errorf("%w: %s -> %s weight %f", ErrNegativeWeight, from, to, weight)
	}

	s.AddNode(from)
	s.AddNode(to)

	if s.out[from] == nil {
		s.out[from] = make(map[string]float64)
	}
	if s.in[to] == nil {
		s.in[to] = make(map[string]float64)
	}

	if _, exists := s.out[from][to]; !exists {
		s.edgeCount++
	}
	s.out[from][to] += weight
	s.in[to][from] += weight

	return nil
}

// Nodes returns all node labels in lexicographic order. The sorted
// order is what makes per-snapshot output deterministic.
func (s *Snapshot) Nodes() []string {
	labels := make([]string, 0, len(s.nodes))
	for label := range s.nodes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// NodeCount returns the number of nodes.
func (s *Snapshot) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the number of distinct ordered pairs with flow.
func (s *Snapshot) EdgeCount() int {
	return s.edgeCount
}

// Out returns the outgoing flow map for a node: destination -> weight.
// The returned map is the snapshot's internal state and must not be
// modified. Nil when the node has no outgoing edges.
func (s *Snapshot) Out(label string) map[string]float64 {
	return s.out[label]
}

// In returns the incoming flow map for a node: origin -> weight.
// Same ownership rules as Out.
func (s *Snapshot) In(label string) map[string]float64 {
	return s.in[label]
}

// Weight returns the aggregated flow on the ordered pair, 0 when the
// pair has no edge.
func (s *Snapshot) Weight(from, to string) float64 {
	return s.out[from][to]
}

// OutStrength is the sum of outgoing edge weights, self-loops included.
func (s *Snapshot) OutStrength(label string) float64 {
	total := 0.0
	for _, w := range s.out[label] {
		total += w
	}
	return total
}

// InStrength is the sum of incoming edge weights, self-loops included.
func (s *Snapshot) InStrength(label string) float64 {
	total := 0.0
	for _, w := range s.in[label] {
		total += w
	}
	return total
}

// Strength is the total weighted degree in both directions. A
// self-loop counts once as outgoing and once as incoming.
func (s *Snapshot) Strength(label string) float64 {
	return s.OutStrength(label) + s.InStrength(label)
}
