package period

import (
	"fmt"
	"regexp"
	"strings"
)

// Key identifies one graph snapshot in the time series: survey year,
// day-type token, and time band. Keys are parsed from snapshot
// filenames and must be unique across the whole series.
type Key struct {
	Year     string
	DayType  string
	TimeBand string
}

// Sentinel values used when a filename carries no recognisable token.
const (
	UnknownYear    = "Unknown"
	UnknownDayType = "Unknown"
	TotalTimeBand  = "Total"
)

// dayTypes lists the day-type tokens that appear in snapshot filenames,
// in match-priority order. MTT, MTF and TWT are multi-day weekday
// groupings used by the survey data.
var dayTypes = []string{"MTT", "MTF", "FRI", "SAT", "SUN", "MON", "TWT"}

var (
	yearPattern     = regexp.MustCompile(`(\d{4})`)
	timeBandPattern = regexp.MustCompile(`tb_([^_]+)`)
	qhrSlotPattern  = regexp.MustCompile(`qhr_slot-(\d+)_(\d{4}-\d{4})`)
)

// ParseFilename extracts the period key from a snapshot filename.
// The lexical convention is: the first 4-digit run is the year, the
// first day-type token found is the day type, and the time band is
// either a tb_<band> token, a qhr_slot-<n>_<HHMM-HHMM> quarter-hour
// slot, or "Total" for whole-day snapshots.
func ParseFilename(filename string) Key {
	name := filename
	for _, ext := range []string{".sz", ".graphml"} {
		name = strings.TrimSuffix(name, ext)
	}

	key := Key{
		Year:     UnknownYear,
		DayType:  UnknownDayType,
		TimeBand: TotalTimeBand,
	}

	if m := yearPattern.FindStringSubmatch(name); m != nil {
		key.Year = m[1]
	}

	for _, dt := range dayTypes {
		if strings.Contains(name, dt) {
			key.DayType = dt
			break
		}
	}

	if strings.Contains(name, "tb_") {
		if m := timeBandPattern.FindStringSubmatch(name); m != nil {
			key.TimeBand = m[1]
		}
	} else if strings.Contains(name, "qhr_") {
		if m := qhrSlotPattern.FindStringSubmatch(name); m != nil {
			key.TimeBand = fmt.Sprintf("qhr_slot-%s_%s", m[1], m[2])
		}
	}

	return key
}

// String renders the key in Year/DayType/TimeBand form, used for log
// fields and mismatch-report samples.
func (k Key) String() string {
	return k.Year + "/" + k.DayType + "/" + k.TimeBand
}

// Compare orders keys by year, then day type, then time band. The
// ordering is lexical, which keeps output tables stable and diffable
// across runs on unchanged input.
func (k Key) Compare(other Key) int {
	if c := strings.Compare(k.Year, other.Year); c != 0 {
		return c
	}
	if c := strings.Compare(k.DayType, other.DayType); c != 0 {
		return c
	}
	return strings.Compare(k.TimeBand, other.TimeBand)
}
