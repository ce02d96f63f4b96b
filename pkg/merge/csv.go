package merge

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dd0wney/flowpanel/pkg/table"
)

// MergedHeader is the merged panel schema: join key, centrality
// columns, community columns.
var MergedHeader = []string{
	"Year", "DayType", "TimeBand", "Borough",
	"Weighted_In_Degree", "Weighted_Out_Degree",
	"Betweenness_Centrality", "Closeness_Centrality", "Eigenvector_Centrality",
	"Community_ID", "Participation_Coefficient",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes merged rows in the order given. A missing side is
// written as empty fields, not as zeros, so downstream consumers can
// tell absence from a legitimate zero metric.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MergedHeader); err != nil {
		return fmt.Errorf("write merged header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Key.Period.Year, row.Key.Period.DayType, row.Key.Period.TimeBand, row.Key.Borough,
		}
		record = append(record, centralityFields(row.Centrality)...)
		record = append(record, communityFields(row.Community)...)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write merged row %s: %w", row.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func centralityFields(row *table.CentralityRow) []string {
	if row == nil {
		return []string{"", "", "", "", ""}
	}
	return []string{
		formatFloat(row.InDegree),
		formatFloat(row.OutDegree),
		formatFloat(row.Betweenness),
		formatFloat(row.Closeness),
		formatFloat(row.Eigenvector),
	}
}

func communityFields(row *table.CommunityRow) []string {
	if row == nil {
		return []string{"", ""}
	}
	return []string{
		strconv.Itoa(row.CommunityID),
		formatFloat(row.Participation),
	}
}
