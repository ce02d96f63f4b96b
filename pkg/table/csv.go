package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Output column headers, matching the downstream panel dataset schema.
var (
	CentralityHeader = []string{
		"Year", "DayType", "TimeBand", "Borough",
		"Weighted_In_Degree", "Weighted_Out_Degree",
		"Betweenness_Centrality", "Closeness_Centrality", "Eigenvector_Centrality",
	}
	CommunityHeader = []string{
		"Year", "DayType", "TimeBand", "Borough",
		"Community_ID", "Participation_Coefficient",
	}
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func keyFields(k RowKey) []string {
	return []string{k.Period.Year, k.Period.DayType, k.Period.TimeBand, k.Borough}
}

// WriteCSV writes the table in its deterministic sorted order.
func (t *CentralityTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CentralityHeader); err != nil {
		return fmt.Errorf("write centrality header: %w", err)
	}
	for _, row := range t.Rows() {
		record := append(keyFields(row.Key),
			formatFloat(row.InDegree),
			formatFloat(row.OutDegree),
			formatFloat(row.Betweenness),
			formatFloat(row.Closeness),
			formatFloat(row.Eigenvector),
		)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write centrality row %s: %w", row.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes the table in its deterministic sorted order.
func (t *CommunityTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CommunityHeader); err != nil {
		return fmt.Errorf("write community header: %w", err)
	}
	for _, row := range t.Rows() {
		record := append(keyFields(row.Key),
			strconv.Itoa(row.CommunityID),
			formatFloat(row.Participation),
		)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write community row %s: %w", row.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
