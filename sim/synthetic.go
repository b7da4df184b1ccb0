package sim

// TableRates are the monthly rates used to generate a flat set of transition tables.
// Every rate is a probability per month and is not age-dependent.
type TableRates struct {
	Death             float64 `yaml:"death"`
	HIV               float64 `yaml:"hiv"`
	HPVInfection      float64 `yaml:"hpv_infection"`
	HPVProgression    float64 `yaml:"hpv_progression"`
	HPVClearance      float64 `yaml:"hpv_clearance"`
	CancerProgression float64 `yaml:"cancer_progression"`
	CancerDetection   float64 `yaml:"cancer_detection"`
}

// DefaultTableRates returns rates that produce a few cancers per thousand women over
// a typical screening horizon.
func DefaultTableRates() TableRates {
	return TableRates{
		Death:             0.0008,
		HIV:               0.0005,
		HPVInfection:      0.01,
		HPVProgression:    0.01,
		HPVClearance:      0.02,
		CancerProgression: 0.02,
		CancerDetection:   0.015,
	}
}

// GenerateTables builds tables covering every reachable key for ages in
// [minAge, maxAge]. HIV doubles HPV progression, natural immunity halves infection,
// and vaccine immunity blocks infection. DISTANT cancer adds the progression rate to
// the death rate. All zero rates give tables in which no
// agent ever leaves her initial state.
func GenerateTables(minAge, maxAge int, r TableRates) *Tables {
	t := NewTables()
	for age := minAge; age <= maxAge; age++ {
		t.HIV.Entries[HivKey{Age: age}] = r.HIV
		for _, hiv := range []HivState{HivNegative, HivPositive} {
			for c := CancerState(0); c < NumCancerStates; c++ {
				t.Life.Entries[LifeKey{Age: age, HIV: hiv, Cancer: c}] = lifeWeights(c, r)
			}
			for _, strain := range Strains {
				for imm := ImmunityNone; imm <= ImmunityVaccine; imm++ {
					for s := HpvState(0); s < NumHpvStates; s++ {
						key := HpvKey{Age: age, Strain: strain, Immunity: imm, State: s, HIV: hiv}
						t.HPV.Entries[key] = hpvWeights(s, imm, hiv, r)
					}
				}
			}
		}
	}
	for _, d := range []CancerDetectionState{Undetected, Detected} {
		for c := CancerState(0); c < NumCancerStates; c++ {
			t.Cancer.Entries[CancerKey{Detection: d, State: c}] = cancerWeights(c, r)
		}
	}
	for c := CancerState(0); c < NumCancerStates; c++ {
		p := 0.0
		if c != CancerNormal && c != CancerDead {
			p = min(1, r.CancerDetection*float64(c))
		}
		t.CancerDetection.Entries[CancerDetectionKey{State: c}] = p
	}
	return t
}

func lifeWeights(c CancerState, r TableRates) []float64 {
	switch c {
	case CancerDead:
		return []float64{0, 1}
	case CancerDistant:
		death := min(1, r.Death+r.CancerProgression)
		return []float64{1 - death, death}
	}
	return []float64{1 - r.Death, r.Death}
}

func hpvWeights(s HpvState, imm HpvImmunity, hiv HivState, r TableRates) []float64 {
	w := make([]float64, NumHpvStates)
	switch s {
	case HpvNormal:
		infection := r.HPVInfection
		switch imm {
		case ImmunityNatural:
			infection /= 2
		case ImmunityVaccine:
			infection = 0
		}
		w[HpvInfected] = infection
	case HpvCancer:
	default:
		progression := r.HPVProgression
		if hiv == HivPositive {
			progression = min(1, 2*progression)
		}
		w[s+1] = progression
		w[HpvNormal] = min(1-progression, r.HPVClearance)
	}
	stay := 1.0
	for _, v := range w {
		stay -= v
	}
	w[s] = max(0, stay)
	return w
}

func cancerWeights(c CancerState, r TableRates) []float64 {
	w := make([]float64, NumCancerStates)
	switch c {
	case CancerLocal, CancerRegional, CancerDistant:
		w[c+1] = r.CancerProgression
		w[c] = 1 - r.CancerProgression
	default:
		w[c] = 1
	}
	return w
}
