package sim

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/cervical-sim/cervical-sim/sim/record"
)

// Model owns the simulation clock, the cohort, and every state machine.
// All machines read each other through the Model they were built with.
type Model struct {
	Params   *Parameters
	Tables   *Tables
	Recorder *record.Recorder

	key SimulationKey
	rng *rand.Rand

	Time int // months since start
	Age  int // shared cohort age in years

	Life            *Life
	HIV             *Hiv
	Cancer          *Cancer
	CancerDetection *CancerDetection
	HPV             [NumStrains]*Hpv
	MaxHpvState     []HpvState

	ScreeningState        []ScreeningState
	CompliantRoutine      []bool
	CompliantSurveillance []bool

	LastScreenAge       map[int]int
	CancerDetectionTime map[int]int
	TimeSinceDetection  map[int]TimeSinceDetection
	CinTreatmentMethods map[int]int
	CancerCause         map[int]HpvStrain
	HIVDetected         map[int]bool
	Vaccinated          map[int]bool

	VIATest        *ViaTest
	DNATest        *DnaTest
	InspectionTest *CancerInspectionTest
	Treatments     *CinTreatmentMethods
	Screening      ScreeningProtocol
	Vaccination    *VaccinationProtocol

	progress func(year, years int)
}

// ModelOption configures optional Model collaborators.
type ModelOption func(*Model)

// WithRecorder sets the recorder receiving state changes and cost events.
// Without it, a disabled recorder is used.
func WithRecorder(r *record.Recorder) ModelOption {
	return func(m *Model) { m.Recorder = r }
}

// WithSimulationKey overrides the key derived from Parameters.Seed.
func WithSimulationKey(key SimulationKey) ModelOption {
	return func(m *Model) { m.key = key }
}

// WithProgress registers fn to be called after every simulated year.
func WithProgress(fn func(year, years int)) ModelOption {
	return func(m *Model) { m.progress = fn }
}

// NewModel validates params and tables, builds every machine, and loads the cohort.
// Loading consumes draws for the compliance flags, so two models built from the
// same key start from the same RNG position.
func NewModel(params *Parameters, tables *Tables, opts ...ModelOption) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	m := &Model{
		Params:              params,
		Tables:              tables,
		key:                 NewSimulationKey(params.Seed),
		LastScreenAge:       make(map[int]int),
		CancerDetectionTime: make(map[int]int),
		TimeSinceDetection:  make(map[int]TimeSinceDetection),
		CinTreatmentMethods: make(map[int]int),
		CancerCause:         make(map[int]HpvStrain),
		HIVDetected:         make(map[int]bool),
		Vaccinated:          make(map[int]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.Recorder == nil {
		m.Recorder = record.NewRecorder(false)
	}
	m.rng = m.key.NewRNG()

	m.Life = newLife(m)
	m.HIV = newHiv(m)
	m.CancerDetection = newCancerDetection(m)
	m.Cancer = newCancer(m)
	for _, strain := range Strains {
		m.HPV[strain] = newHpv(m, strain)
	}

	if err := m.loadAgents(); err != nil {
		return nil, fmt.Errorf("loading agents: %w", err)
	}

	m.Treatments = NewCinTreatmentMethods(params.Treatment)
	m.VIATest = NewViaTest(params.Screening.VIA, m.rng)
	m.DNATest = NewDnaTest(params.Screening.DNA, m.rng)
	m.InspectionTest = NewCancerInspectionTest(params.Screening.CancerInspection, m.rng)
	m.Screening = NewScreeningProtocol(params.Screening.Protocol, m)
	m.Vaccination = NewVaccinationProtocol(m)
	return m, nil
}

// loadAgents sets the cohort's initial probabilities and intervention state.
// Order matters: later machines key on values set by earlier ones.
func (m *Model) loadAgents() error {
	n := m.Params.NumAgents
	m.Age = m.Params.InitialAge

	if err := m.Cancer.InitiateProbabilities(); err != nil {
		return err
	}
	for _, strain := range Strains {
		if err := m.HPV[strain].UpdateProbabilities(); err != nil {
			return err
		}
	}
	m.MaxHpvState = make([]HpvState, n)
	m.UpdateMaxHpvState()

	if err := m.Life.UpdateProbabilities(); err != nil {
		return err
	}
	if err := m.HIV.UpdateProbabilities(); err != nil {
		return err
	}

	m.ScreeningState = make([]ScreeningState, n)
	m.CompliantRoutine = make([]bool, n)
	for agent := range m.CompliantRoutine {
		m.CompliantRoutine[agent] = m.rng.Float64() >= m.Params.Screening.Compliance.Never
	}
	m.CompliantSurveillance = make([]bool, n)
	for agent := range m.CompliantSurveillance {
		m.CompliantSurveillance[agent] = m.rng.Float64() >= m.Params.Screening.Compliance.NeverSurveillance
	}
	return nil
}

// Key returns the SimulationKey the model's RNG was seeded from.
func (m *Model) Key() SimulationKey {
	return m.key
}

// Run executes Params.NumSteps monthly steps.
func (m *Model) Run() error {
	logrus.Infof("Random seed: %d", int64(m.key))
	logrus.Debugf("Model parameters:\n%s", m.Params)
	years := (m.Params.NumSteps + m.Params.StepsPerYear - 1) / m.Params.StepsPerYear
	for i := 0; i < m.Params.NumSteps; i++ {
		if err := m.Step(); err != nil {
			return fmt.Errorf("month %d: %w", m.Time, err)
		}
		if m.progress != nil && m.Time%m.Params.StepsPerYear == 0 {
			m.progress(m.Time/m.Params.StepsPerYear, years)
		}
	}
	if m.progress != nil && m.Time%m.Params.StepsPerYear != 0 {
		m.progress(years, years)
	}
	logrus.Infof("[month %04d] Simulation ended: %d of %d agents living", m.Time, m.Living(), m.Params.NumAgents)
	return nil
}

// Step advances the model by one month. At the start of each year the age-dependent
// probabilities are refreshed and the screening and vaccination campaigns run.
// Machines then step in a fixed order: HPV strains, HIV, cancer, cancer detection, life.
func (m *Model) Step() error {
	if m.Time%m.Params.StepsPerYear == 0 {
		if err := m.yearlyUpdate(); err != nil {
			return fmt.Errorf("yearly update: %w", err)
		}
	}

	m.Life.UpdateLiving()
	for _, strain := range strainStepOrder {
		if err := m.HPV[strain].Step(); err != nil {
			return fmt.Errorf("stepping %s: %w", strain, err)
		}
	}
	m.UpdateMaxHpvState()

	if err := m.HIV.Step(); err != nil {
		return fmt.Errorf("stepping hiv: %w", err)
	}
	if err := m.Cancer.Step(); err != nil {
		return fmt.Errorf("stepping cancer: %w", err)
	}
	if err := m.CancerDetection.Step(); err != nil {
		return fmt.Errorf("stepping cancer detection: %w", err)
	}
	if err := m.Life.Step(); err != nil {
		return fmt.Errorf("stepping life: %w", err)
	}
	m.Time++
	return nil
}

// yearlyUpdate ages the cohort, refreshes age-dependent probabilities and runs the
// campaigns. The living mask is refreshed before the campaigns, so women who died in
// the previous month are neither screened nor vaccinated. This consumes fewer draws
// than running the campaigns on the previous month's mask, and the two orderings do
// not replay draw-for-draw after a year boundary that follows a death.
func (m *Model) yearlyUpdate() error {
	if m.Time != 0 {
		m.Age++
	}
	logrus.Debugf("[month %04d] Yearly update, age %d", m.Time, m.Age)

	if err := m.Life.UpdateProbabilities(); err != nil {
		return err
	}
	if err := m.HIV.UpdateProbabilities(); err != nil {
		return err
	}
	for _, strain := range Strains {
		if err := m.HPV[strain].UpdateProbabilities(); err != nil {
			return err
		}
	}

	m.Life.UpdateLiving()
	if err := m.Screening.Apply(); err != nil {
		return fmt.Errorf("screening: %w", err)
	}
	if err := m.Vaccination.Apply(); err != nil {
		return fmt.Errorf("vaccination: %w", err)
	}
	return nil
}

// UpdateMaxHpvState recomputes every agent's most advanced state across strains.
func (m *Model) UpdateMaxHpvState() {
	for agent := range m.MaxHpvState {
		m.updateMaxHpvState(agent)
	}
}

func (m *Model) updateMaxHpvState(agent int) {
	s := HpvNormal
	for _, h := range m.HPV {
		s = max(s, h.Values[agent])
	}
	m.MaxHpvState[agent] = s
}

// Vaccinate records the vaccination cost and grants vaccine immunity against every
// strain except LOW_RISK.
func (m *Model) Vaccinate(agent int) error {
	m.recordEvent(record.Vaccination, agent, m.Params.Vaccination.Cost)
	m.Vaccinated[agent] = true
	for _, strain := range Strains {
		if strain == StrainLowRisk {
			continue
		}
		h := m.HPV[strain]
		h.Immunity[agent] = ImmunityVaccine
		if err := h.RecomputeProbability(agent); err != nil {
			return err
		}
	}
	return nil
}

// TreatCIN treats a CIN lesion with the agent's treatment method, chosen on her first
// treatment. The cost is always recorded; an effective treatment returns every
// infected strain to NORMAL.
func (m *Model) TreatCIN(agent int) error {
	idx, ok := m.CinTreatmentMethods[agent]
	if !ok {
		idx = m.Treatments.Choose(m.rng)
		m.CinTreatmentMethods[agent] = idx
	}
	method := m.Treatments.Methods[idx]
	m.recordEvent(method.Kind, agent, method.Params.Cost)
	if !method.IsEffective(m.rng) {
		return nil
	}

	for _, strain := range Strains {
		h := m.HPV[strain]
		current := h.Values[agent]
		if current == HpvNormal {
			continue
		}
		m.recordStateChange(h.ID, agent, int(current), int(HpvNormal))
		h.Values[agent] = HpvNormal
		if err := h.RecomputeProbability(agent); err != nil {
			return err
		}
	}
	m.updateMaxHpvState(agent)
	return nil
}

// DetectCancer marks the agent's cancer as detected by screening.
// Already-detected agents are left unchanged.
func (m *Model) DetectCancer(agent int) error {
	d := m.CancerDetection
	if d.Values[agent] == Detected {
		return nil
	}
	m.recordStateChange(d.ID, agent, int(d.Values[agent]), int(Detected))
	d.Values[agent] = Detected
	return m.Cancer.RecomputeProbability(agent)
}

// YearsSince returns the fractional number of years between month t and now.
func (m *Model) YearsSince(t int) float64 {
	return float64(m.Time-t) / float64(m.Params.StepsPerYear)
}

// Living returns the number of agents currently alive.
func (m *Model) Living() int {
	n := 0
	for _, v := range m.Life.Values {
		if v == Alive {
			n++
		}
	}
	return n
}

func (m *Model) recordStateChange(chart string, agent, from, to int) {
	m.Recorder.RecordStateChange(record.StateChangeRecord{
		Time: m.Time, Agent: agent, State: chart, From: from, To: to,
	})
}

func (m *Model) recordEvent(kind record.EventKind, agent int, cost float64) {
	m.Recorder.RecordEvent(record.CostEvent{Time: m.Time, Agent: agent, Kind: kind, Cost: cost})
}

// Summary is an end-of-run snapshot of the cohort.
type Summary struct {
	Months         int
	Age            int
	Agents         int
	Living         int
	CancerCases    int
	CancerDetected int
	CancerDeaths   int
	HIVPositive    int
	Vaccinated     int
	StateChanges   int
	Events         int
	TotalCost      float64
}

// Summary tallies the cohort's current state.
func (m *Model) Summary() Summary {
	s := Summary{
		Months:       m.Time,
		Age:          m.Age,
		Agents:       m.Params.NumAgents,
		Living:       m.Living(),
		Vaccinated:   len(m.Vaccinated),
		StateChanges: len(m.Recorder.StateChanges),
		Events:       len(m.Recorder.Events),
		TotalCost:    m.Recorder.TotalCost(),
	}
	for agent := range m.Params.NumAgents {
		switch c := m.Cancer.Values[agent]; {
		case c == CancerDead:
			s.CancerDeaths++
			s.CancerCases++
		case c != CancerNormal:
			s.CancerCases++
		}
		if m.CancerDetection.Values[agent] == Detected {
			s.CancerDetected++
		}
		if m.HIV.Values[agent] == HivPositive {
			s.HIVPositive++
		}
	}
	return s
}
