// Package record provides append-only logs of state changes and cost-bearing
// events emitted during a simulation run.
// This package has no dependencies on sim/; it stores pure data types.
package record

import "fmt"

// StateChangeRecord captures a single transition of one agent in one state chart.
type StateChangeRecord struct {
	Time  int
	Agent int
	State string // chart identifier, e.g. "cancer", "life", or an HPV strain name
	From  int
	To    int
}

// EventKind identifies a cost-bearing event.
type EventKind int

const (
	ScreeningVIA EventKind = iota + 1
	ScreeningDNA
	ScreeningCancerInspection
	// DiagnosticVIA is part of the event vocabulary of stored outputs. No protocol emits it.
	DiagnosticVIA
	SurveillanceVIA
	SurveillanceDNA
	SurveillanceCancerInspection
	TreatmentLEEP
	TreatmentCryo
	TreatmentCancer
	Vaccination
)

var eventKindNames = map[EventKind]string{
	ScreeningVIA:                 "SCREENING_VIA",
	ScreeningDNA:                 "SCREENING_DNA",
	ScreeningCancerInspection:    "SCREENING_CANCER_INSPECTION",
	DiagnosticVIA:                "DIAGNOSTIC_VIA",
	SurveillanceVIA:              "SURVEILLANCE_VIA",
	SurveillanceDNA:              "SURVEILLANCE_DNA",
	SurveillanceCancerInspection: "SURVEILLANCE_CANCER_INSPECTION",
	TreatmentLEEP:                "TREATMENT_LEEP",
	TreatmentCryo:                "TREATMENT_CRYO",
	TreatmentCancer:              "TREATMENT_CANCER",
	Vaccination:                  "VACCINATION",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// EventKinds returns every known event kind in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, len(eventKindNames))
	for k := ScreeningVIA; k <= Vaccination; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// CostEvent captures a single cost-bearing event for one agent.
type CostEvent struct {
	Time  int
	Agent int
	Kind  EventKind
	Cost  float64
}
