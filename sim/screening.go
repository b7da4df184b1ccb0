package sim

import (
	"errors"
	"fmt"

	"github.com/cervical-sim/cervical-sim/sim/record"
)

// ErrUnknownProtocol is returned when the configured screening protocol has no implementation.
var ErrUnknownProtocol = errors.New("unknown screening protocol")

// ScreeningState is an agent's position in the screening pathway.
type ScreeningState int8

const (
	ScreeningRoutine ScreeningState = iota
	ScreeningReTest
	ScreeningSurveillance
)

func (s ScreeningState) String() string {
	switch s {
	case ScreeningRoutine:
		return "routine"
	case ScreeningReTest:
		return "re_test"
	case ScreeningSurveillance:
		return "surveillance"
	}
	return fmt.Sprintf("ScreeningState(%d)", int8(s))
}

// IsDueForScreening reports whether the agent should be screened this year.
//
// Detected cancer ends screening. ROUTINE screening only happens inside the routine age
// window. The interval depends on the screening state, capped by the HIV interval once
// the agent's HIV is detected. An agent never screened before is always due.
func IsDueForScreening(m *Model, agent int) bool {
	if m.CancerDetection.Values[agent] == Detected {
		return false
	}
	p := m.Params.Screening
	state := m.ScreeningState[agent]
	if state == ScreeningRoutine && (m.Age < p.AgeRoutineStart || m.Age > p.AgeRoutineEnd) {
		return false
	}

	var interval int
	switch state {
	case ScreeningRoutine:
		interval = p.IntervalRoutine
	case ScreeningReTest:
		interval = p.IntervalReTest
	case ScreeningSurveillance:
		interval = p.IntervalSurveillance
	default:
		panic(fmt.Sprintf("unhandled screening state %d", state))
	}
	if m.HIVDetected[agent] {
		interval = min(interval, p.IntervalHIV)
	}

	last, screened := m.LastScreenAge[agent]
	if !screened {
		return true
	}
	return m.Age-last >= interval
}

// IsCompliantWithScreening reports whether the agent attends when due.
// RE_TEST follow-up is always attended.
func IsCompliantWithScreening(m *Model, agent int) bool {
	switch m.ScreeningState[agent] {
	case ScreeningRoutine:
		return m.CompliantRoutine[agent]
	case ScreeningSurveillance:
		return m.CompliantSurveillance[agent]
	}
	return true
}

// ScreeningProtocol applies a screening policy to the cohort once a year.
type ScreeningProtocol interface {
	// Apply screens every living agent that is due and compliant, in agent order.
	Apply() error
	// ApplyAgent screens a single agent if she is due and compliant.
	ApplyAgent(agent int) error
}

// ValidScreeningProtocols is the set of recognized screening protocol names.
// Shared by Parameters.Validate() and NewScreeningProtocol() to avoid duplication.
var ValidScreeningProtocols = map[string]bool{
	"none":               true,
	"via":                true,
	"dna_then_treatment": true,
	"dna_then_via":       true,
	"dna_then_triage":    true,
}

// IsValidScreeningProtocol reports whether name is a recognized protocol.
func IsValidScreeningProtocol(name string) bool {
	return ValidScreeningProtocols[name]
}

// NewScreeningProtocol creates a screening protocol by name.
// Panics on unrecognized names; callers validate parameters first.
func NewScreeningProtocol(name string, m *Model) ScreeningProtocol {
	if !IsValidScreeningProtocol(name) {
		panic(fmt.Sprintf("%s %q", ErrUnknownProtocol, name))
	}
	s := screener{m: m}
	switch name {
	case "none":
		return noScreening{}
	case "via":
		return &viaProtocol{s}
	case "dna_then_treatment":
		return &dnaThenTreatment{s}
	case "dna_then_via":
		return &dnaThenVia{s}
	case "dna_then_triage":
		return &dnaThenTriage{s}
	default:
		panic(fmt.Sprintf("unhandled screening protocol %q", name))
	}
}

// noScreening never screens anyone.
type noScreening struct{}

func (noScreening) Apply() error         { return nil }
func (noScreening) ApplyAgent(int) error { return nil }

// screener holds the steps shared by every active protocol.
type screener struct {
	m *Model
}

func (s screener) applyAll(apply func(agent int) error) error {
	for agent, alive := range s.m.Life.Living {
		if !alive {
			continue
		}
		if err := apply(agent); err != nil {
			return fmt.Errorf("screening agent %d: %w", agent, err)
		}
	}
	return nil
}

// begin checks the due and compliance gates and stamps the screening age.
func (s screener) begin(agent int) bool {
	if !IsDueForScreening(s.m, agent) || !IsCompliantWithScreening(s.m, agent) {
		return false
	}
	s.m.LastScreenAge[agent] = s.m.Age
	return true
}

// recordTest charges a test, as surveillance when the agent is under surveillance.
func (s screener) recordTest(agent int, screening, surveillance record.EventKind, cost float64) {
	kind := screening
	if s.m.ScreeningState[agent] == ScreeningSurveillance {
		kind = surveillance
	}
	s.m.recordEvent(kind, agent, cost)
}

func (s screener) dna(agent int) StrainResults {
	s.recordTest(agent, record.ScreeningDNA, record.SurveillanceDNA, s.m.Params.Screening.DNA.Cost)
	var states StrainStates
	for _, strain := range Strains {
		states[strain] = s.m.HPV[strain].Values[agent]
	}
	return s.m.DNATest.Result(states)
}

// via runs a VIA test: NEGATIVE moves the agent to onNegative, POSITIVE treats CIN,
// CANCER detects cancer; both of the latter move her to SURVEILLANCE.
func (s screener) via(agent int, onNegative ScreeningState) error {
	s.recordTest(agent, record.ScreeningVIA, record.SurveillanceVIA, s.m.Params.Screening.VIA.Cost)
	result, err := s.m.VIATest.Result(s.m.MaxHpvState[agent], s.m.Cancer.Values[agent])
	if err != nil {
		return err
	}
	switch result {
	case TestNegative:
		s.m.ScreeningState[agent] = onNegative
	case TestPositive:
		if err := s.m.TreatCIN(agent); err != nil {
			return err
		}
		s.m.ScreeningState[agent] = ScreeningSurveillance
	case TestCancer:
		if err := s.m.DetectCancer(agent); err != nil {
			return err
		}
		s.m.ScreeningState[agent] = ScreeningSurveillance
	}
	return nil
}

// inspect runs a cancer inspection: NEGATIVE treats CIN, CANCER detects cancer.
// Either way the agent moves to SURVEILLANCE.
func (s screener) inspect(agent int) error {
	s.recordTest(agent, record.ScreeningCancerInspection, record.SurveillanceCancerInspection,
		s.m.Params.Screening.CancerInspection.Cost)
	result, err := s.m.InspectionTest.Result(s.m.Cancer.Values[agent])
	if err != nil {
		return err
	}
	switch result {
	case TestNegative:
		if err := s.m.TreatCIN(agent); err != nil {
			return err
		}
	case TestCancer:
		if err := s.m.DetectCancer(agent); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unexpected cancer inspection result %s", result)
	}
	s.m.ScreeningState[agent] = ScreeningSurveillance
	return nil
}

// viaProtocol screens with VIA alone.
type viaProtocol struct{ screener }

func (p *viaProtocol) Apply() error { return p.applyAll(p.ApplyAgent) }

func (p *viaProtocol) ApplyAgent(agent int) error {
	if !p.begin(agent) {
		return nil
	}
	return p.via(agent, ScreeningRoutine)
}

// dnaThenTreatment treats every DNA-positive woman after a cancer inspection.
type dnaThenTreatment struct{ screener }

func (p *dnaThenTreatment) Apply() error { return p.applyAll(p.ApplyAgent) }

func (p *dnaThenTreatment) ApplyAgent(agent int) error {
	if !p.begin(agent) {
		return nil
	}
	if p.dna(agent).AllNegative() {
		p.m.ScreeningState[agent] = ScreeningRoutine
		return nil
	}
	return p.inspect(agent)
}

// dnaThenVia inspects 16/18-positive women and triages other high-risk positives with VIA.
type dnaThenVia struct{ screener }

func (p *dnaThenVia) Apply() error { return p.applyAll(p.ApplyAgent) }

func (p *dnaThenVia) ApplyAgent(agent int) error {
	if !p.begin(agent) {
		return nil
	}
	result := p.dna(agent)
	switch {
	case result.AllNegative():
		p.m.ScreeningState[agent] = ScreeningRoutine
		return nil
	case result[StrainSixteen] == TestPositive || result[StrainEighteen] == TestPositive:
		return p.inspect(agent)
	default:
		return p.via(agent, ScreeningReTest)
	}
}

// dnaThenTriage inspects 16/18-positive women and sends other high-risk positives to re-test.
type dnaThenTriage struct{ screener }

func (p *dnaThenTriage) Apply() error { return p.applyAll(p.ApplyAgent) }

func (p *dnaThenTriage) ApplyAgent(agent int) error {
	if !p.begin(agent) {
		return nil
	}
	result := p.dna(agent)
	switch {
	case result.AllNegative():
		p.m.ScreeningState[agent] = ScreeningRoutine
		return nil
	case result[StrainSixteen] == TestPositive || result[StrainEighteen] == TestPositive:
		return p.inspect(agent)
	default:
		p.m.ScreeningState[agent] = ScreeningReTest
		return nil
	}
}
