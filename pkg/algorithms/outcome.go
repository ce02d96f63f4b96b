package algorithms

// Outcome is the result of one per-snapshot measure: either a value per
// node, or a recorded fallback reason applying to the whole snapshot.
// Representing fallbacks explicitly keeps the policy auditable; the
// flattening to a numeric default happens only at table emission, via
// ValueOr.
type Outcome struct {
	Values map[string]float64
	Reason string // non-empty when the measure fell back
}

// ValueOutcome wraps a successfully computed per-node value map.
func ValueOutcome(values map[string]float64) Outcome {
	return Outcome{Values: values}
}

// FallbackOutcome records a measure-wide fallback with its reason.
func FallbackOutcome(reason string) Outcome {
	return Outcome{Reason: reason}
}

// FellBack reports whether the measure fell back.
func (o Outcome) FellBack() bool {
	return o.Reason != ""
}

// ValueOr returns the node's value, or fallback when the measure fell
// back or the node has no entry.
func (o Outcome) ValueOr(node string, fallback float64) float64 {
	if o.FellBack() {
		return fallback
	}
	if v, ok := o.Values[node]; ok {
		return v
	}
	return fallback
}
