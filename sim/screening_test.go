package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cervical-sim/cervical-sim/sim/record"
)

// screeningModel builds a static cohort aged 30 with perfect tests and treatment.
func screeningModel(t *testing.T, protocol string) *Model {
	t.Helper()
	p := testParameters()
	p.NumAgents = 4
	p.InitialAge = 30
	p.Screening.Protocol = protocol
	p.Screening.VIA = ScreeningTestParameters{Cost: 1, Sensitivity: 1, Specificity: 1}
	p.Screening.DNA = ScreeningTestParameters{Cost: 10, Sensitivity: 1, Specificity: 1}
	p.Screening.CancerInspection = ScreeningTestParameters{Cost: 100, Sensitivity: 1, Specificity: 1}
	p.Treatment.LEEP.Effectiveness = 1
	p.Treatment.Cryo.Effectiveness = 1
	return newTestModel(t, p, zeroTables())
}

func eventKinds(r *record.Recorder) []record.EventKind {
	out := make([]record.EventKind, 0, len(r.Events))
	for _, ev := range r.Events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestIsDueForScreening(t *testing.T) {
	tests := []struct {
		name     string
		age      int
		lastAge  int
		screened bool
		state    ScreeningState
		hiv      bool
		want     bool
	}{
		{"routine below the age window", 19, 0, false, ScreeningRoutine, false, false},
		{"routine at window start, never screened", 20, 0, false, ScreeningRoutine, false, true},
		{"routine within interval", 20, 11, true, ScreeningRoutine, false, false},
		{"routine after interval", 21, 11, true, ScreeningRoutine, false, true},
		{"routine above the age window", 50, 0, false, ScreeningRoutine, false, false},
		{"re-test ignores the age window", 60, 59, true, ScreeningReTest, false, true},
		{"surveillance within a year", 60, 60, true, ScreeningSurveillance, false, false},
		{"hiv detection shortens the interval", 30, 27, true, ScreeningRoutine, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN routine window [20, 49] with a 10-year routine interval
			p := testParameters()
			p.NumAgents = 1
			p.Screening.AgeRoutineStart = 20
			p.Screening.AgeRoutineEnd = 49
			p.Screening.IntervalRoutine = 10
			p.Screening.IntervalHIV = 3
			m := newTestModel(t, p, zeroTables())
			m.Age = tt.age
			m.ScreeningState[0] = tt.state
			if tt.screened {
				m.LastScreenAge[0] = tt.lastAge
			}
			if tt.hiv {
				m.HIVDetected[0] = true
			}

			// WHEN eligibility is checked
			// THEN it matches the expected gate
			assert.Equal(t, tt.want, IsDueForScreening(m, 0))
		})
	}
}

func TestIsDueForScreening_DetectedNeverDue(t *testing.T) {
	m := screeningModel(t, "via")
	m.CancerDetection.Values[0] = Detected
	assert.False(t, IsDueForScreening(m, 0))
}

func TestIsCompliantWithScreening(t *testing.T) {
	m := screeningModel(t, "via")
	m.CompliantRoutine[0] = false
	m.CompliantSurveillance[0] = true

	assert.False(t, IsCompliantWithScreening(m, 0))
	m.ScreeningState[0] = ScreeningSurveillance
	assert.True(t, IsCompliantWithScreening(m, 0))
	m.CompliantSurveillance[0] = false
	assert.False(t, IsCompliantWithScreening(m, 0))
	m.ScreeningState[0] = ScreeningReTest
	assert.True(t, IsCompliantWithScreening(m, 0), "re-test is always attended")
}

func TestNewScreeningProtocol_Registry(t *testing.T) {
	m := screeningModel(t, "none")
	for name := range ValidScreeningProtocols {
		assert.NotNil(t, NewScreeningProtocol(name, m), name)
	}
	assert.Panics(t, func() { NewScreeningProtocol("pap_smear", m) })
	assert.False(t, IsValidScreeningProtocol(""))
}

func TestNoScreening_RecordsNothing(t *testing.T) {
	m := screeningModel(t, "none")
	m.HPV[StrainSixteen].Values[0] = HpvCin23
	require.NoError(t, m.Screening.Apply())
	assert.Empty(t, m.Recorder.Events)
	assert.Empty(t, m.LastScreenAge)
}

func TestViaProtocol_TreatsAndMovesToSurveillance(t *testing.T) {
	// GIVEN a woman with CIN_2_3 on strain 16
	m := screeningModel(t, "via")
	m.HPV[StrainSixteen].Values[0] = HpvCin23
	m.UpdateMaxHpvState()

	// WHEN she is screened
	require.NoError(t, m.Screening.ApplyAgent(0))

	// THEN VIA is charged, CIN is treated and cleared, and she enters surveillance
	kinds := eventKinds(m.Recorder)
	require.Len(t, kinds, 2)
	assert.Equal(t, record.ScreeningVIA, kinds[0])
	assert.Contains(t, []record.EventKind{record.TreatmentLEEP, record.TreatmentCryo}, kinds[1])
	assert.Equal(t, HpvNormal, m.HPV[StrainSixteen].Values[0])
	assert.Equal(t, HpvNormal, m.MaxHpvState[0])
	assert.Equal(t, ScreeningSurveillance, m.ScreeningState[0])
	assert.Equal(t, 30, m.LastScreenAge[0])
	assert.Equal(t, 1, m.Recorder.CountStateChanges(StrainSixteen.String()))

	// WHEN screened again the same year
	require.NoError(t, m.Screening.ApplyAgent(0))
	// THEN nothing happens
	assert.Len(t, m.Recorder.Events, 2)

	// WHEN a year passes
	m.Age++
	require.NoError(t, m.Screening.ApplyAgent(0))
	// THEN the follow-up is charged as surveillance and returns her to routine
	assert.Equal(t, record.SurveillanceVIA, eventKinds(m.Recorder)[2])
	assert.Equal(t, ScreeningRoutine, m.ScreeningState[0])
}

func TestViaProtocol_DetectsCancer(t *testing.T) {
	// GIVEN a woman with regional cancer
	m := screeningModel(t, "via")
	m.HPV[StrainEighteen].Values[1] = HpvCancer
	m.Cancer.Values[1] = CancerRegional
	m.UpdateMaxHpvState()

	// WHEN the cohort is screened
	require.NoError(t, m.Screening.Apply())

	// THEN her cancer is detected and she will never be screened again
	assert.Equal(t, Detected, m.CancerDetection.Values[1])
	assert.Equal(t, ScreeningSurveillance, m.ScreeningState[1])
	assert.Equal(t, 1, m.Recorder.CountStateChanges(ChartCancerDetection))
	assert.False(t, IsDueForScreening(m, 1))

	// AND every healthy woman screened negative and stayed in routine
	assert.Len(t, m.Recorder.Events, 4)
	for _, agent := range []int{0, 2, 3} {
		assert.Equal(t, ScreeningRoutine, m.ScreeningState[agent])
	}
}

func TestDnaThenTreatment(t *testing.T) {
	// GIVEN one infected and one uninfected woman
	m := screeningModel(t, "dna_then_treatment")
	m.HPV[StrainHighRisk].Values[0] = HpvInfected

	// WHEN both are screened
	require.NoError(t, m.Screening.ApplyAgent(0))
	require.NoError(t, m.Screening.ApplyAgent(1))

	// THEN the infected woman is inspected and treated, the other returns to routine
	kinds := eventKinds(m.Recorder)
	require.Len(t, kinds, 4)
	assert.Equal(t, record.ScreeningDNA, kinds[0])
	assert.Equal(t, record.ScreeningCancerInspection, kinds[1])
	assert.Equal(t, record.ScreeningDNA, kinds[3])
	assert.Equal(t, ScreeningSurveillance, m.ScreeningState[0])
	assert.Equal(t, HpvNormal, m.HPV[StrainHighRisk].Values[0])
	assert.Equal(t, ScreeningRoutine, m.ScreeningState[1])
}

func TestDnaThenVia_Routing(t *testing.T) {
	// GIVEN a 16-positive woman and a high-risk CIN_1 woman
	m := screeningModel(t, "dna_then_via")
	m.HPV[StrainSixteen].Values[0] = HpvInfected
	m.HPV[StrainHighRisk].Values[1] = HpvCin1
	m.UpdateMaxHpvState()

	// WHEN both are screened
	require.NoError(t, m.Screening.ApplyAgent(0))
	require.NoError(t, m.Screening.ApplyAgent(1))

	// THEN 16 goes to inspection and treatment, high-risk goes to VIA and re-test
	kinds := eventKinds(m.Recorder)
	require.Len(t, kinds, 5)
	assert.Equal(t, []record.EventKind{record.ScreeningDNA, record.ScreeningCancerInspection}, kinds[:2])
	assert.Equal(t, []record.EventKind{record.ScreeningDNA, record.ScreeningVIA}, kinds[3:])
	assert.Equal(t, ScreeningSurveillance, m.ScreeningState[0])
	assert.Equal(t, ScreeningReTest, m.ScreeningState[1])
}

func TestDnaThenTriage_Routing(t *testing.T) {
	m := screeningModel(t, "dna_then_triage")
	m.HPV[StrainEighteen].Values[0] = HpvCin1
	m.HPV[StrainHighRisk].Values[1] = HpvInfected

	require.NoError(t, m.Screening.Apply())

	assert.Equal(t, ScreeningSurveillance, m.ScreeningState[0])
	assert.Equal(t, ScreeningReTest, m.ScreeningState[1])
	assert.Equal(t, HpvInfected, m.HPV[StrainHighRisk].Values[1], "triage does not treat")
	assert.Equal(t, ScreeningRoutine, m.ScreeningState[2])
}

func TestScreening_SkipsDeadAgents(t *testing.T) {
	m := screeningModel(t, "via")
	m.Life.Values[2] = Dead
	m.Life.UpdateLiving()

	require.NoError(t, m.Screening.Apply())

	_, screened := m.LastScreenAge[2]
	assert.False(t, screened)
	assert.Len(t, m.LastScreenAge, 3)
}

func TestScreeningState_String(t *testing.T) {
	assert.Equal(t, "routine", ScreeningRoutine.String())
	assert.Equal(t, "re_test", ScreeningReTest.String())
	assert.Equal(t, "surveillance", ScreeningSurveillance.String())
}
