package table

import (
	"fmt"
	"sort"

	"github.com/dd0wney/flowpanel/pkg/period"
)

// ErrDuplicateRow is returned when a (period key, node) pair is
// appended twice to the same table.
var ErrDuplicateRow = fmt.Errorf("duplicate (period, node) row")

// RowKey is the join key shared by both metric tables.
type RowKey struct {
	Period  period.Key
	Borough string
}

// String renders the key for logs and mismatch-report samples.
func (k RowKey) String() string {
	return k.Period.String() + "/" + k.Borough
}

// Compare orders keys by period fields then node label, the stable
// output order of every table.
func (k RowKey) Compare(other RowKey) int {
	if c := k.Period.Compare(other.Period); c != 0 {
		return c
	}
	if k.Borough < other.Borough {
		return -1
	}
	if k.Borough > other.Borough {
		return 1
	}
	return 0
}

// CentralityRow is one (period, node) centrality record, flattened
// from the engine's tagged outcomes at emission time.
type CentralityRow struct {
	Key         RowKey
	InDegree    float64
	OutDegree   float64
	Betweenness float64
	Closeness   float64
	Eigenvector float64
}

// CommunityRow is one (period, node) community record.
type CommunityRow struct {
	Key           RowKey
	CommunityID   int
	Participation float64
}

// CentralityTable accumulates centrality rows, one per (period, node).
type CentralityTable struct {
	rows []CentralityRow
	seen map[RowKey]struct{}
}

// NewCentralityTable creates an empty centrality table.
func NewCentralityTable() *CentralityTable {
	return &CentralityTable{seen: make(map[RowKey]struct{})}
}

// Append adds one row, rejecting duplicate keys.
func (t *CentralityTable) Append(row CentralityRow) error {
	if _, dup := t.seen[row.Key]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateRow, row.Key)
	}
	t.seen[row.Key] = struct{}{}
	t.rows = append(t.rows, row)
	return nil
}

// Len returns the number of rows.
func (t *CentralityTable) Len() int {
	return len(t.rows)
}

// Rows returns the rows sorted by period key fields then node label.
func (t *CentralityTable) Rows() []CentralityRow {
	sorted := make([]CentralityRow, len(t.rows))
	copy(sorted, t.rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key.Compare(sorted[j].Key) < 0
	})
	return sorted
}

// CommunityTable accumulates community rows, one per (period, node).
type CommunityTable struct {
	rows []CommunityRow
	seen map[RowKey]struct{}
}

// NewCommunityTable creates an empty community table.
func NewCommunityTable() *CommunityTable {
	return &CommunityTable{seen: make(map[RowKey]struct{})}
}

// Append adds one row, rejecting duplicate keys.
func (t *CommunityTable) Append(row CommunityRow) error {
	if _, dup := t.seen[row.Key]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateRow, row.Key)
	}
	t.seen[row.Key] = struct{}{}
	t.rows = append(t.rows, row)
	return nil
}

// Len returns the number of rows.
func (t *CommunityTable) Len() int {
	return len(t.rows)
}

// Rows returns the rows sorted by period key fields then node label.
func (t *CommunityTable) Rows() []CommunityRow {
	sorted := make([]CommunityRow, len(t.rows))
	copy(sorted, t.rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key.Compare(sorted[j].Key) < 0
	})
	return sorted
}
