package logging

import (
	"time"

	"github.com/dd0wney/flowpanel/pkg/period"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain field helpers

// SnapshotFile tags a log line with the snapshot's source filename.
func SnapshotFile(path string) Field {
	return String("snapshot", path)
}

// PeriodKey tags a log line with the snapshot's period key.
func PeriodKey(key period.Key) Field {
	return String("period", key.String())
}

// Borough tags a log line with a geographic-unit label.
func Borough(label string) Field {
	return String("borough", label)
}

// Measure names the metric a message refers to (betweenness,
// eigenvector, participation, ...).
func Measure(name string) Field {
	return String("measure", name)
}

// FallbackReason records why a measure fell back to its default value.
func FallbackReason(reason string) Field {
	return String("fallback_reason", reason)
}

// RunID tags all log lines of one pipeline invocation.
func RunID(id string) Field {
	return String("run_id", id)
}

func Component(name string) Field {
	return String("component", name)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
