package sim

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInvalidTestInput is returned when a diagnostic test is asked about an impossible
// disease state. It signals a state-machine bug upstream, not a user error.
var ErrInvalidTestInput = errors.New("invalid screening test input")

// TestResult is the observed outcome of a diagnostic test.
type TestResult int8

const (
	TestNegative TestResult = iota
	TestPositive
	TestCancer
)

func (r TestResult) String() string {
	switch r {
	case TestNegative:
		return "negative"
	case TestPositive:
		return "positive"
	case TestCancer:
		return "cancer"
	}
	return fmt.Sprintf("TestResult(%d)", int8(r))
}

// StrainResults holds one DNA test result per strain, indexed by HpvStrain.
type StrainResults [NumStrains]TestResult

// AllNegative reports whether no strain tested positive.
func (r StrainResults) AllNegative() bool {
	for _, v := range r {
		if v != TestNegative {
			return false
		}
	}
	return true
}

// StrainStates holds one HPV state per strain, indexed by HpvStrain.
type StrainStates [NumStrains]HpvState

// ViaTest is visual inspection with acetic acid, applied to a woman's most
// advanced HPV state and her cancer stage. Each call consumes at most one draw.
type ViaTest struct {
	params ScreeningTestParameters
	rng    *rand.Rand
}

// NewViaTest creates a VIA test drawing from rng.
func NewViaTest(params ScreeningTestParameters, rng *rand.Rand) *ViaTest {
	return &ViaTest{params: params, rng: rng}
}

// Result returns the observed VIA outcome.
//
//   - NORMAL, HPV, CIN_1: POSITIVE when the test is not specific.
//   - CIN_2_3: POSITIVE when the test is sensitive.
//   - CANCER with LOCAL cancer: CANCER when sensitive, otherwise NEGATIVE.
//   - CANCER with REGIONAL or DISTANT cancer: always CANCER.
func (t *ViaTest) Result(hpv HpvState, cancer CancerState) (TestResult, error) {
	switch {
	case cancer == CancerDead:
		return TestNegative, fmt.Errorf("%w: VIA on a dead agent", ErrInvalidTestInput)
	case hpv == HpvCancer && cancer == CancerNormal:
		return TestNegative, fmt.Errorf("%w: VIA with HPV cancer but no cancer stage", ErrInvalidTestInput)
	case hpv == HpvNormal || hpv == HpvInfected || hpv == HpvCin1:
		if t.rng.Float64() > t.params.Specificity {
			return TestPositive, nil
		}
		return TestNegative, nil
	case hpv == HpvCin23:
		if t.rng.Float64() < t.params.Sensitivity {
			return TestPositive, nil
		}
		return TestNegative, nil
	case cancer == CancerLocal:
		if t.rng.Float64() < t.params.Sensitivity {
			return TestCancer, nil
		}
		return TestNegative, nil
	default:
		return TestCancer, nil
	}
}

// dnaDetectable lists the strains a DNA test can see.
var dnaDetectable = []HpvStrain{StrainSixteen, StrainEighteen, StrainHighRisk}

// DnaTest is an HPV DNA panel. One draw decides the overall result; strain-level
// results then follow deterministically. Each call consumes exactly one draw.
type DnaTest struct {
	params ScreeningTestParameters
	rng    *rand.Rand
}

// NewDnaTest creates a DNA test drawing from rng.
func NewDnaTest(params ScreeningTestParameters, rng *rand.Rand) *DnaTest {
	return &DnaTest{params: params, rng: rng}
}

// Result returns a per-strain outcome. LOW_RISK is never detected. A positive panel
// flags every detectable strain the woman carries; a false positive is attributed
// to HIGH_RISK.
func (t *DnaTest) Result(states StrainStates) StrainResults {
	carries := false
	for _, s := range dnaDetectable {
		if states[s] != HpvNormal {
			carries = true
		}
	}

	var out StrainResults
	if !carries {
		if t.rng.Float64() > t.params.Specificity {
			out[StrainHighRisk] = TestPositive
		}
		return out
	}
	if t.rng.Float64() < t.params.Sensitivity {
		for _, s := range dnaDetectable {
			if states[s] != HpvNormal {
				out[s] = TestPositive
			}
		}
	}
	return out
}

// CancerInspectionTest is a visual inspection for advanced cancer. REGIONAL and
// DISTANT cancer are detectable. Each call consumes exactly one draw.
type CancerInspectionTest struct {
	params ScreeningTestParameters
	rng    *rand.Rand
}

// NewCancerInspectionTest creates a cancer inspection test drawing from rng.
func NewCancerInspectionTest(params ScreeningTestParameters, rng *rand.Rand) *CancerInspectionTest {
	return &CancerInspectionTest{params: params, rng: rng}
}

// Result returns CANCER when the stage is detectable and the test sensitive, or when
// it is not detectable and the test not specific; NEGATIVE otherwise.
func (t *CancerInspectionTest) Result(cancer CancerState) (TestResult, error) {
	switch cancer {
	case CancerDead:
		return TestNegative, fmt.Errorf("%w: cancer inspection on a dead agent", ErrInvalidTestInput)
	case CancerNormal, CancerLocal:
		if t.rng.Float64() > t.params.Specificity {
			return TestCancer, nil
		}
		return TestNegative, nil
	default:
		if t.rng.Float64() < t.params.Sensitivity {
			return TestCancer, nil
		}
		return TestNegative, nil
	}
}
