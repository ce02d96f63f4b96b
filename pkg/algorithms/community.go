package algorithms

import (
	"math/rand"
	"sort"

	"github.com/dd0wney/flowpanel/pkg/graph"
)

// CommunityOptions configures the modularity-refinement partitioning.
type CommunityOptions struct {
	// Seed fixes the RNG driving node visit order. Partitions are
	// reproducible for a fixed seed; community IDs are snapshot-local
	// either way and never comparable across snapshots.
	Seed       int64
	Resolution float64
	// MaxPasses bounds the local-move/refine/aggregate rounds.
	MaxPasses int
}

// DefaultCommunityOptions returns the fixed configuration used across
// the whole series: a pinned seed so repeated runs agree.
func DefaultCommunityOptions() CommunityOptions {
	return CommunityOptions{
		Seed:       1,
		Resolution: 1.0,
		MaxPasses:  10,
	}
}

// CommunityResult is one snapshot's partition.
type CommunityResult struct {
	// Membership maps node label to a snapshot-local community ID,
	// renumbered deterministically by first occurrence over the sorted
	// node order.
	Membership map[string]int
	Count      int
	Modularity float64
}

// DetectCommunities partitions the snapshot by iterative modularity
// refinement (seeded local moving, refinement within communities,
// aggregation, repeat) on the symmetrized weighted graph. Edge weight
// is treated as connection strength. A graph with no positive-weight
// edges degenerates to singleton communities.
func DetectCommunities(snap *graph.Snapshot, opts CommunityOptions) *CommunityResult {
	if opts.Resolution <= 0 {
		opts.Resolution = 1.0
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = 10
	}

	nodes := snap.Nodes()
	n := len(nodes)
	if n == 0 {
		return &CommunityResult{Membership: map[string]int{}}
	}

	g := buildWorkGraph(snap, nodes)
	if g.m2 <= 0 {
		membership := make(map[string]int, n)
		for i, label := range nodes {
			membership[label] = i
		}
		return &CommunityResult{Membership: membership, Count: n}
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	// superOf tracks which node of the current working graph each
	// original node has been folded into.
	superOf := make([]int, n)
	comm := make([]int, g.n)
	for i := range superOf {
		superOf[i] = i
	}
	for i := range comm {
		comm[i] = i
	}

	prevSize := g.n
	for pass := 0; pass < opts.MaxPasses; pass++ {
		changed := g.localMove(comm, nil, rng, opts.Resolution)

		fine := g.refine(comm, rng, opts.Resolution)
		agg, superMap := g.aggregate(fine)

		newComm := make([]int, agg.n)
		for i := 0; i < g.n; i++ {
			// Refinement never crosses community borders, so every
			// aggregated node inherits a single coarse community.
			newComm[superMap[fine[i]]] = comm[i]
		}
		for orig := range superOf {
			superOf[orig] = superMap[fine[superOf[orig]]]
		}

		g = agg
		comm = compressLabels(newComm)

		if !changed || g.n == prevSize {
			break
		}
		prevSize = g.n
	}

	membership := make(map[string]int, n)
	for i, label := range nodes {
		membership[label] = comm[superOf[i]]
	}
	renumbered, count := renumberByFirstSeen(nodes, membership)

	base := buildWorkGraph(snap, nodes)
	return &CommunityResult{
		Membership: renumbered,
		Count:      count,
		Modularity: base.modularity(nodes, renumbered),
	}
}

// workGraph is the symmetrized weighted graph the optimization runs
// on. adj[i][i] holds self-loop weight once; k counts loops twice.
type workGraph struct {
	n   int
	adj []map[int]float64
	k   []float64
	m2  float64 // sum of all k, i.e. twice the total edge weight
}

func buildWorkGraph(snap *graph.Snapshot, nodes []string) *workGraph {
	index := make(map[string]int, len(nodes))
	for i, label := range nodes {
		index[label] = i
	}

	g := &workGraph{
		n:   len(nodes),
		adj: make([]map[int]float64, len(nodes)),
		k:   make([]float64, len(nodes)),
	}
	for i := range g.adj {
		g.adj[i] = make(map[int]float64)
	}

	for _, from := range nodes {
		u := index[from]
		for to, w := range snap.Out(from) {
			if w <= 0 {
				continue
			}
			v := index[to]
			if u == v {
				g.adj[u][u] += w
			} else {
				g.adj[u][v] += w
				g.adj[v][u] += w
			}
		}
	}

	for i := 0; i < g.n; i++ {
		for j, w := range g.adj[i] {
			if i == j {
				g.k[i] += 2 * w
			} else {
				g.k[i] += w
			}
		}
		g.m2 += g.k[i]
	}

	return g
}

// localMove runs the local-moving phase: visit nodes in seeded random
// order and greedily move each to the neighbouring community with the
// best modularity gain, sweeping until a full sweep makes no move.
// When constraint is non-nil a node may only join communities of nodes
// sharing its constraint value (used by the refinement phase).
func (g *workGraph) localMove(comm []int, constraint []int, rng *rand.Rand, resolution float64) bool {
	tot := make([]float64, g.n+1)
	for i, c := range comm {
		tot[c] += g.k[i]
	}

	order := rng.Perm(g.n)
	changed := false

	for moved := true; moved; {
		moved = false
		for _, i := range order {
			current := comm[i]

			// Weight from i to each candidate community.
			wTo := make(map[int]float64)
			for j, w := range g.adj[i] {
				if j == i {
					continue
				}
				if constraint != nil && constraint[j] != constraint[i] {
					continue
				}
				wTo[comm[j]] += w
			}

			tot[current] -= g.k[i]

			bestComm := current
			bestGain := wTo[current] - resolution*g.k[i]*tot[current]/g.m2
			for c, w := range wTo {
				if c == current {
					continue
				}
				gain := w - resolution*g.k[i]*tot[c]/g.m2
				if gain > bestGain+distEps || (gain > bestGain-distEps && c < bestComm) {
					bestGain = gain
					bestComm = c
				}
			}

			tot[bestComm] += g.k[i]
			if bestComm != current {
				comm[i] = bestComm
				moved = true
				changed = true
			}
		}
	}

	return changed
}

// refine re-partitions each community from singletons, merging only
// within community borders. The refined partition is what gets
// aggregated, which is the step that distinguishes this scheme from
// plain greedy modularity optimization.
func (g *workGraph) refine(comm []int, rng *rand.Rand, resolution float64) []int {
	fine := make([]int, g.n)
	for i := range fine {
		fine[i] = i
	}
	g.localMove(fine, comm, rng, resolution)
	return fine
}

// aggregate collapses each fine community into a single node. Labels
// are compacted in order of their smallest member index so the
// aggregated graph is independent of map iteration order.
func (g *workGraph) aggregate(fine []int) (*workGraph, []int) {
	superMap := make([]int, g.n)
	for i := range superMap {
		superMap[i] = -1
	}
	next := 0
	for i := 0; i < g.n; i++ {
		if superMap[fine[i]] == -1 {
			superMap[fine[i]] = next
			next++
		}
	}

	agg := &workGraph{
		n:   next,
		adj: make([]map[int]float64, next),
		k:   make([]float64, next),
	}
	for i := range agg.adj {
		agg.adj[i] = make(map[int]float64)
	}

	for i := 0; i < g.n; i++ {
		su := superMap[fine[i]]
		for j, w := range g.adj[i] {
			sv := superMap[fine[j]]
			switch {
			case i == j:
				agg.adj[su][su] += w
			case su == sv:
				// Both directions of the symmetrized pair fold into
				// the same loop; halve to count the pair once.
				agg.adj[su][su] += w / 2
			default:
				agg.adj[su][sv] += w
			}
		}
	}

	for i := 0; i < agg.n; i++ {
		for j, w := range agg.adj[i] {
			if i == j {
				agg.k[i] += 2 * w
			} else {
				agg.k[i] += w
			}
		}
		agg.m2 += agg.k[i]
	}

	return agg, superMap
}

// modularity evaluates the partition quality on this graph.
func (g *workGraph) modularity(nodes []string, membership map[string]int) float64 {
	if g.m2 <= 0 {
		return 0
	}

	comm := make([]int, g.n)
	maxComm := 0
	for i, label := range nodes {
		comm[i] = membership[label]
		if comm[i] > maxComm {
			maxComm = comm[i]
		}
	}

	within := make([]float64, maxComm+1)
	tot := make([]float64, maxComm+1)
	for i := 0; i < g.n; i++ {
		tot[comm[i]] += g.k[i]
		for j, w := range g.adj[i] {
			if comm[i] != comm[j] {
				continue
			}
			if i == j {
				within[comm[i]] += 2 * w
			} else {
				within[comm[i]] += w
			}
		}
	}

	q := 0.0
	for c := range within {
		q += within[c]/g.m2 - (tot[c]/g.m2)*(tot[c]/g.m2)
	}
	return q
}

func compressLabels(comm []int) []int {
	remap := make(map[int]int)
	next := 0
	out := make([]int, len(comm))
	for i, c := range comm {
		if _, ok := remap[c]; !ok {
			remap[c] = next
			next++
		}
		out[i] = remap[c]
	}
	return out
}

// renumberByFirstSeen reassigns community IDs by first occurrence over
// the sorted node order, so the same partition always gets the same
// IDs regardless of how the optimization labelled it internally.
func renumberByFirstSeen(nodes []string, membership map[string]int) (map[string]int, int) {
	sorted := make([]string, len(nodes))
	copy(sorted, nodes)
	sort.Strings(sorted)

	remap := make(map[int]int)
	next := 0
	out := make(map[string]int, len(membership))
	for _, label := range sorted {
		old := membership[label]
		if _, ok := remap[old]; !ok {
			remap[old] = next
			next++
		}
		out[label] = remap[old]
	}
	return out, next
}
