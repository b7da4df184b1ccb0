package record

// Recorder collects state-change and cost-event records during a run.
// A disabled Recorder drops every record; callers never need to check.
type Recorder struct {
	enabled      bool
	StateChanges []StateChangeRecord
	Events       []CostEvent
}

// NewRecorder creates a Recorder. When enabled is false all records are discarded.
func NewRecorder(enabled bool) *Recorder {
	return &Recorder{
		enabled:      enabled,
		StateChanges: make([]StateChangeRecord, 0),
		Events:       make([]CostEvent, 0),
	}
}

// Enabled reports whether records are being stored.
func (r *Recorder) Enabled() bool {
	return r.enabled
}

// RecordStateChange appends a state-change record.
func (r *Recorder) RecordStateChange(rec StateChangeRecord) {
	if !r.enabled {
		return
	}
	r.StateChanges = append(r.StateChanges, rec)
}

// RecordEvent appends a cost event.
func (r *Recorder) RecordEvent(ev CostEvent) {
	if !r.enabled {
		return
	}
	r.Events = append(r.Events, ev)
}

// TotalCost sums the cost of every recorded event.
func (r *Recorder) TotalCost() float64 {
	total := 0.0
	for _, ev := range r.Events {
		total += ev.Cost
	}
	return total
}

// CostByKind sums recorded costs per event kind. Kinds with no events are absent.
func (r *Recorder) CostByKind() map[EventKind]float64 {
	out := make(map[EventKind]float64)
	for _, ev := range r.Events {
		out[ev.Kind] += ev.Cost
	}
	return out
}

// CountStateChanges returns the number of recorded transitions for the named chart.
func (r *Recorder) CountStateChanges(state string) int {
	n := 0
	for _, rec := range r.StateChanges {
		if rec.State == state {
			n++
		}
	}
	return n
}
