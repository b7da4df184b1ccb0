package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cervical-sim/cervical-sim/sim/record"
)

func TestModel_ZeroProbabilitiesChangeNothing(t *testing.T) {
	// GIVEN 100 agents over 120 months with every transition probability zero
	m := newTestModel(t, testParameters(), zeroTables())

	// WHEN the model runs
	require.NoError(t, m.Run())

	// THEN no state changes are recorded and everyone is alive
	assert.Empty(t, m.Recorder.StateChanges)
	assert.Empty(t, m.Recorder.Events)
	assert.Equal(t, 100, m.Living())
	assert.Equal(t, 120, m.Time)
	assert.Equal(t, 9+9, m.Age, "age advances at every year boundary after month 0")
}

func TestModel_ForcedProgressionStartsLocalCancer(t *testing.T) {
	// GIVEN strain 16 at CIN_2_3 for everyone, with all mass on CANCER
	tables := zeroTables()
	setAll(tables.HPV, func(k HpvKey) bool {
		return k.Strain == StrainSixteen && k.State == HpvCin23
	}, []float64{0, 0, 0, 0, 1})
	setAll(tables.Cancer, func(k CancerKey) bool {
		return k.State == CancerLocal
	}, []float64{0, 0.9, 0.1, 0, 0})
	m := newTestModel(t, testParameters(), tables)
	hpv16 := m.HPV[StrainSixteen]
	for agent := range hpv16.Values {
		hpv16.Values[agent] = HpvCin23
	}
	require.NoError(t, hpv16.UpdateProbabilities())
	for _, p := range hpv16.Probabilities {
		require.Equal(t, 1.0, p)
	}

	// WHEN the strain steps once
	m.Life.UpdateLiving()
	require.NoError(t, hpv16.Step())

	// THEN every agent is at CANCER with LOCAL cancer and a positive progression probability
	for agent := range hpv16.Values {
		assert.Equal(t, HpvCancer, hpv16.Values[agent])
		assert.Equal(t, CancerLocal, m.Cancer.Values[agent])
		assert.Greater(t, m.Cancer.Probabilities[agent], 0.0)
		assert.Equal(t, StrainSixteen, m.CancerCause[agent])
	}
	assert.Equal(t, 100, m.Recorder.CountStateChanges(StrainSixteen.String()))
	assert.Equal(t, 100, m.Recorder.CountStateChanges(ChartCancer))
}

func TestModel_SameSeedSameHistory(t *testing.T) {
	run := func(seed int64) *record.Recorder {
		p := testParameters()
		p.Seed = seed
		p.Screening.Protocol = "dna_then_via"
		p.Vaccination.Schedule = map[int]float64{9: 0.5, 10: 0.5}
		m := newTestModel(t, p, defaultTables())
		require.NoError(t, m.Run())
		return m.Recorder
	}

	// GIVEN two runs with the same seed
	a, b := run(7), run(7)

	// THEN their logs are identical
	require.NotEmpty(t, a.StateChanges)
	assert.Equal(t, a.StateChanges, b.StateChanges)
	assert.Equal(t, a.Events, b.Events)

	// AND a different seed diverges
	c := run(8)
	assert.NotEqual(t, a.StateChanges, c.StateChanges)
}

func TestModel_StatesStayDeclaredAndAbsorbing(t *testing.T) {
	// GIVEN aggressive rates so that deaths and detections happen early
	rates := DefaultTableRates()
	rates.Death = 0.01
	rates.HPVInfection = 0.2
	rates.HPVProgression = 0.2
	rates.CancerProgression = 0.3
	rates.CancerDetection = 0.2
	p := testParameters()
	p.NumAgents = 300
	p.Screening.Protocol = "via"
	m := newTestModel(t, p, GenerateTables(0, 110, rates))

	dead := make(map[int]bool)
	detected := make(map[int]bool)
	for range p.NumSteps {
		require.NoError(t, m.Step())

		for agent := range p.NumAgents {
			// THEN values stay within their enums
			assert.Less(t, m.Life.Values[agent], LifeState(NumLifeStates))
			assert.Less(t, m.Cancer.Values[agent], CancerState(NumCancerStates))
			for _, h := range m.HPV {
				assert.Less(t, h.Values[agent], HpvState(NumHpvStates))
			}
			// AND death and detection are never undone
			if dead[agent] {
				assert.Equal(t, Dead, m.Life.Values[agent])
			}
			if detected[agent] {
				assert.Equal(t, Detected, m.CancerDetection.Values[agent])
			}
			dead[agent] = m.Life.Values[agent] == Dead
			detected[agent] = m.CancerDetection.Values[agent] == Detected
		}
	}
	assert.Less(t, m.Living(), p.NumAgents)
	assert.Greater(t, m.Summary().CancerCases, 0)
}

func TestModel_CancerDeathKillsAgent(t *testing.T) {
	// GIVEN an agent at REGIONAL cancer with all mass on DEAD
	tables := zeroTables()
	setAll(tables.Cancer, func(k CancerKey) bool { return k.State == CancerRegional }, []float64{0, 0, 0, 0, 1})
	p := testParameters()
	p.NumAgents = 2
	m := newTestModel(t, p, tables)
	m.Cancer.Values[0] = CancerLocal
	require.NoError(t, m.Cancer.RecomputeProbability(0))
	m.Cancer.Values[1] = CancerRegional
	require.NoError(t, m.Cancer.RecomputeProbability(1))

	// WHEN a month passes
	require.NoError(t, m.Step())

	// THEN the regional agent dies of cancer without a life draw
	assert.Equal(t, CancerDead, m.Cancer.Values[1])
	assert.Equal(t, Dead, m.Life.Values[1])
	assert.Equal(t, 1, m.Recorder.CountStateChanges(ChartLife))
	assert.Equal(t, 1.0, m.Life.Probabilities[1])
	// AND an agent with zero progression probability stays LOCAL
	assert.Equal(t, CancerLocal, m.Cancer.Values[0])
	assert.Equal(t, 1, m.Living())
}

func TestModel_CancerDeathIsNotDetectedSameMonth(t *testing.T) {
	// GIVEN a regional agent with all mass on DEAD and certain regional detection
	tables := zeroTables()
	setAll(tables.Cancer, func(k CancerKey) bool { return k.State == CancerRegional }, []float64{0, 0, 0, 0, 1})
	tables.CancerDetection.Entries[CancerDetectionKey{State: CancerRegional}] = 1
	p := testParameters()
	p.NumAgents = 1
	m := newTestModel(t, p, tables)
	m.Cancer.Values[0] = CancerRegional
	require.NoError(t, m.Cancer.RecomputeProbability(0))
	require.NoError(t, m.CancerDetection.RecomputeProbability(0))

	// WHEN a month passes
	require.NoError(t, m.Step())

	// THEN she dies of cancer and is neither detected nor charged for treatment
	assert.Equal(t, CancerDead, m.Cancer.Values[0])
	assert.Equal(t, Dead, m.Life.Values[0])
	assert.Equal(t, Undetected, m.CancerDetection.Values[0])
	assert.Equal(t, 0.0, m.CancerDetection.Probabilities[0])
	assert.Empty(t, m.Recorder.Events)
}

func TestNewModel_RejectsDetectableDeath(t *testing.T) {
	// GIVEN tables where a cancer death is detectable
	tables := zeroTables()
	setAll(tables.Cancer, func(k CancerKey) bool { return k.State == CancerRegional }, []float64{0, 0, 0, 0, 1})
	tables.CancerDetection.Entries[CancerDetectionKey{State: CancerDead}] = 1

	// WHEN a model is built on them
	_, err := NewModel(testParameters(), tables)

	// THEN construction fails before any month is simulated
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancer_detection")
}

func TestModel_DetectionStartsTimerAndCharges(t *testing.T) {
	// GIVEN an agent with local cancer and certain detection
	tables := zeroTables()
	tables.CancerDetection.Entries[CancerDetectionKey{State: CancerLocal}] = 1
	p := testParameters()
	p.NumAgents = 1
	m := newTestModel(t, p, tables)
	m.Cancer.Values[0] = CancerLocal
	require.NoError(t, m.CancerDetection.RecomputeProbability(0))

	// WHEN a month passes
	require.NoError(t, m.Step())

	// THEN detection charges local treatment and starts the five-year timer
	assert.Equal(t, Detected, m.CancerDetection.Values[0])
	require.Len(t, m.Recorder.Events, 1)
	assert.Equal(t, record.TreatmentCancer, m.Recorder.Events[0].Kind)
	assert.Equal(t, p.Treatment.CancerCostLocal, m.Recorder.Events[0].Cost)
	assert.Equal(t, 0, m.CancerDetectionTime[0])
	assert.Equal(t, Within5Years, m.TimeSinceDetection[0])

	// WHEN just over five years pass
	for range 5*p.StepsPerYear + 1 {
		require.NoError(t, m.Step())
	}

	// THEN the timer moves on
	assert.Equal(t, Beyond5Years, m.TimeSinceDetection[0])
}

func TestModel_Vaccinate(t *testing.T) {
	m := newTestModel(t, testParameters(), defaultTables())

	// WHEN an agent is vaccinated
	require.NoError(t, m.Vaccinate(3))

	// THEN every strain but LOW_RISK is protected and the cost is recorded
	for _, strain := range Strains {
		want := ImmunityVaccine
		if strain == StrainLowRisk {
			want = ImmunityNone
		}
		assert.Equal(t, want, m.HPV[strain].Immunity[3], strain.String())
	}
	assert.Equal(t, 0.0, m.HPV[StrainSixteen].Probabilities[3], "vaccine blocks infection")
	assert.True(t, m.Vaccinated[3])
	require.Len(t, m.Recorder.Events, 1)
	assert.Equal(t, record.Vaccination, m.Recorder.Events[0].Kind)
	assert.Equal(t, 15.0, m.Recorder.Events[0].Cost)
}

func TestVaccinationProtocol_FullCoverage(t *testing.T) {
	// GIVEN full coverage at the initial age
	p := testParameters()
	p.NumAgents = 10
	p.NumSteps = 1
	p.Vaccination.Schedule = map[int]float64{9: 1}
	m := newTestModel(t, p, zeroTables())
	m.Life.Values[4] = Dead

	// WHEN the first month runs
	require.NoError(t, m.Run())

	// THEN every living agent is vaccinated once
	assert.Len(t, m.Vaccinated, 9)
	assert.False(t, m.Vaccinated[4])
	assert.Len(t, m.Recorder.Events, 9)
}

func TestVaccinationProtocol_UnscheduledAgeDrawsNothing(t *testing.T) {
	p := testParameters()
	p.Vaccination.Schedule = map[int]float64{12: 1}
	a := newTestModel(t, p, zeroTables())
	b := newTestModel(t, p, zeroTables())

	require.NoError(t, a.Vaccination.Apply())

	assert.Equal(t, b.rng.Float64(), a.rng.Float64())
	assert.Empty(t, a.Vaccinated)
}

func TestModel_TreatCIN(t *testing.T) {
	// GIVEN certain LEEP that always works
	p := testParameters()
	p.Treatment.LEEP = CinTreatmentParameters{Cost: 32, Effectiveness: 1, Proportion: 1}
	p.Treatment.Cryo = CinTreatmentParameters{Cost: 1.52, Effectiveness: 1, Proportion: 0}
	m := newTestModel(t, p, defaultTables())
	m.HPV[StrainSixteen].Values[0] = HpvCin23
	m.HPV[StrainLowRisk].Values[0] = HpvInfected
	m.UpdateMaxHpvState()

	// WHEN the agent is treated
	require.NoError(t, m.TreatCIN(0))

	// THEN LEEP is charged and both infected strains are cleared and recorded
	require.Len(t, m.Recorder.Events, 1)
	assert.Equal(t, record.TreatmentLEEP, m.Recorder.Events[0].Kind)
	assert.Equal(t, 0, m.CinTreatmentMethods[0])
	assert.Len(t, m.Recorder.StateChanges, 2)
	for _, h := range m.HPV {
		assert.Equal(t, HpvNormal, h.Values[0])
	}
	assert.Equal(t, HpvNormal, m.MaxHpvState[0])
}

func TestModel_TreatCINKeepsMethod(t *testing.T) {
	// GIVEN an agent already assigned cryotherapy that never works
	p := testParameters()
	p.Treatment.Cryo.Effectiveness = 0
	m := newTestModel(t, p, defaultTables())
	m.CinTreatmentMethods[0] = 1
	m.HPV[StrainEighteen].Values[0] = HpvCin1

	// WHEN she is treated twice
	require.NoError(t, m.TreatCIN(0))
	require.NoError(t, m.TreatCIN(0))

	// THEN both treatments are cryo, charged, and ineffective
	require.Len(t, m.Recorder.Events, 2)
	for _, ev := range m.Recorder.Events {
		assert.Equal(t, record.TreatmentCryo, ev.Kind)
	}
	assert.Equal(t, HpvCin1, m.HPV[StrainEighteen].Values[0])
	assert.Empty(t, m.Recorder.StateChanges)
}

func TestModel_DetectCancerIsIdempotent(t *testing.T) {
	m := newTestModel(t, testParameters(), zeroTables())
	m.Cancer.Values[0] = CancerLocal

	require.NoError(t, m.DetectCancer(0))
	require.NoError(t, m.DetectCancer(0))

	assert.Equal(t, Detected, m.CancerDetection.Values[0])
	assert.Equal(t, 1, m.Recorder.CountStateChanges(ChartCancerDetection))
}

func TestModel_HIVDisabledDrawsNothing(t *testing.T) {
	// GIVEN certain seroconversion but HIV switched off
	tables := zeroTables()
	for k := range tables.HIV.Entries {
		tables.HIV.Entries[k] = 1
	}
	p := testParameters()
	p.IncludeHIV = false
	m := newTestModel(t, p, tables)

	// WHEN the model runs
	require.NoError(t, m.Run())

	// THEN nobody seroconverts
	assert.Zero(t, m.Recorder.CountStateChanges(ChartHIV))
	assert.Zero(t, m.Summary().HIVPositive)
}

func TestModel_HIVSeroconversionIsDetected(t *testing.T) {
	tables := zeroTables()
	for k := range tables.HIV.Entries {
		tables.HIV.Entries[k] = 1
	}
	p := testParameters()
	p.NumSteps = 1
	m := newTestModel(t, p, tables)

	require.NoError(t, m.Run())

	assert.Equal(t, 100, m.Summary().HIVPositive)
	assert.Len(t, m.HIVDetected, 100, "detection rate 1 detects every seroconversion")
	assert.Equal(t, 100, m.Recorder.CountStateChanges(ChartHIV))
}

func TestModel_HIVSeroconversionRefreshesHPVAndLife(t *testing.T) {
	// GIVEN certain seroconversion, HPV infection and mortality only under HIV
	tables := zeroTables()
	for k := range tables.HIV.Entries {
		tables.HIV.Entries[k] = 1
	}
	setAll(tables.HPV, func(k HpvKey) bool {
		return k.HIV == HivPositive && k.State == HpvNormal && k.Immunity == ImmunityNone
	}, []float64{0.5, 0.5, 0, 0, 0})
	setAll(tables.Life, func(k LifeKey) bool {
		return k.HIV == HivPositive && k.Cancer == CancerNormal
	}, []float64{0.75, 0.25})
	p := testParameters()
	p.NumSteps = 1
	m := newTestModel(t, p, tables)
	for _, strain := range Strains {
		require.Equal(t, 0.0, m.HPV[strain].Probabilities[0])
	}
	require.Equal(t, 0.0, m.Life.Probabilities[0])

	// WHEN one month passes
	require.NoError(t, m.Run())

	// THEN every agent's HPV probability for every strain reflects her new HIV status
	for agent := 0; agent < p.NumAgents; agent++ {
		require.Equal(t, HivPositive, m.HIV.Values[agent])
		for _, strain := range Strains {
			assert.Equal(t, 0.5, m.HPV[strain].Probabilities[agent], "agent %d strain %s", agent, strain)
		}
		// AND so does her probability of dying
		assert.Equal(t, 0.25, m.Life.Probabilities[agent], "agent %d", agent)
	}
}

func TestModel_MissingTableEntryAbortsRun(t *testing.T) {
	// GIVEN tables that stop at age 10
	p := testParameters()
	tables := GenerateTables(9, 10, DefaultTableRates())

	// WHEN the cohort turns 11
	m := newTestModel(t, p, tables)
	err := m.Run()

	// THEN the run fails with the missing key
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingKey))
	assert.Equal(t, 2*p.StepsPerYear, m.Time)
}

func TestNewModel_RejectsInvalidInputs(t *testing.T) {
	p := testParameters()
	p.Screening.Protocol = "unknown"
	_, err := NewModel(p, zeroTables())
	assert.True(t, errors.Is(err, ErrUnknownProtocol))

	_, err = NewModel(testParameters(), &Tables{})
	assert.Error(t, err)

	_, err = NewModel(testParameters(), GenerateTables(20, 30, TableRates{}))
	assert.True(t, errors.Is(err, ErrMissingKey), "initial age 9 is not covered")
}

func TestModel_ComplianceDraws(t *testing.T) {
	p := testParameters()
	p.Screening.Compliance = ComplianceParameters{Never: 1, NeverSurveillance: 0}
	m := newTestModel(t, p, zeroTables())

	for agent := range p.NumAgents {
		assert.False(t, m.CompliantRoutine[agent])
		assert.True(t, m.CompliantSurveillance[agent])
	}
}

func TestModel_YearsSince(t *testing.T) {
	m := newTestModel(t, testParameters(), zeroTables())
	m.Time = 30
	assert.Equal(t, 2.5, m.YearsSince(0))
	assert.Equal(t, 0.0, m.YearsSince(30))
}

func TestModel_ProgressCallback(t *testing.T) {
	p := testParameters()
	p.NumSteps = 30
	var years []int
	m, err := NewModel(p, zeroTables(), WithProgress(func(year, total int) {
		years = append(years, year)
		assert.Equal(t, 3, total)
	}))
	require.NoError(t, err)

	require.NoError(t, m.Run())

	assert.Equal(t, []int{1, 2, 3}, years)
	assert.False(t, m.Recorder.Enabled(), "default recorder drops records")
}
