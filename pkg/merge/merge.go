package merge

import (
	"sort"

	"github.com/dd0wney/flowpanel/pkg/table"
)

// sampleLimit caps how many unmatched keys a report carries verbatim.
const sampleLimit = 10

// Row is one merged panel record. Exactly one side may be nil; a nil
// side is the explicit missing marker and is never coerced to a
// numeric value.
type Row struct {
	Key        table.RowKey
	Centrality *table.CentralityRow
	Community  *table.CommunityRow
}

// Matched reports whether both sides are present.
func (r Row) Matched() bool {
	return r.Centrality != nil && r.Community != nil
}

// Report summarizes join mismatches. Under correct operation both
// engines see the same snapshot set, so any unmatched row signals an
// upstream inconsistency; it is surfaced here rather than dropped.
type Report struct {
	Matched        int
	CentralityOnly int
	CommunityOnly  int
	// Sample keys for diagnostics, capped at sampleLimit per side.
	SampleCentralityOnly []string
	SampleCommunityOnly  []string
}

// Clean reports whether the join had no mismatches.
func (r *Report) Clean() bool {
	return r.CentralityOnly == 0 && r.CommunityOnly == 0
}

// Tables performs the full outer join of the two metric tables on the
// complete (period key, node) tuple. Output order is the same stable
// period-then-node order the tables use, so runs on unchanged input
// are diffable.
func Tables(centrality *table.CentralityTable, community *table.CommunityTable) ([]Row, *Report) {
	centralityRows := centrality.Rows()
	communityRows := community.Rows()

	merged := make(map[table.RowKey]*Row, len(centralityRows))
	for i := range centralityRows {
		row := &centralityRows[i]
		merged[row.Key] = &Row{Key: row.Key, Centrality: row}
	}
	for i := range communityRows {
		row := &communityRows[i]
		if existing, ok := merged[row.Key]; ok {
			existing.Community = row
		} else {
			merged[row.Key] = &Row{Key: row.Key, Community: row}
		}
	}

	rows := make([]Row, 0, len(merged))
	for _, row := range merged {
		rows = append(rows, *row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Key.Compare(rows[j].Key) < 0
	})

	report := &Report{}
	for _, row := range rows {
		switch {
		case row.Matched():
			report.Matched++
		case row.Centrality != nil:
			report.CentralityOnly++
			if len(report.SampleCentralityOnly) < sampleLimit {
				report.SampleCentralityOnly = append(report.SampleCentralityOnly, row.Key.String())
			}
		default:
			report.CommunityOnly++
			if len(report.SampleCommunityOnly) < sampleLimit {
				report.SampleCommunityOnly = append(report.SampleCommunityOnly, row.Key.String())
			}
		}
	}

	return rows, report
}
