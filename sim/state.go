package sim

import "fmt"

// State is the constraint satisfied by every categorical per-agent state.
type State interface {
	~int8
	fmt.Stringer
}

// HpvState is the disease state of one HPV strain in one agent.
type HpvState int8

const (
	HpvNormal HpvState = iota
	HpvInfected
	HpvCin1
	HpvCin23
	HpvCancer
)

// NumHpvStates is the length of every HPV weight vector.
const NumHpvStates = 5

func (s HpvState) String() string {
	switch s {
	case HpvNormal:
		return "normal"
	case HpvInfected:
		return "hpv"
	case HpvCin1:
		return "cin_1"
	case HpvCin23:
		return "cin_2_3"
	case HpvCancer:
		return "cancer"
	}
	return fmt.Sprintf("HpvState(%d)", int8(s))
}

// HpvStrain identifies one modeled HPV genotype group.
type HpvStrain int8

const (
	StrainSixteen HpvStrain = iota
	StrainEighteen
	StrainHighRisk
	StrainLowRisk
)

// NumStrains is the number of modeled strains.
const NumStrains = 4

// Strains lists every strain in declaration order.
var Strains = []HpvStrain{StrainSixteen, StrainEighteen, StrainHighRisk, StrainLowRisk}

// strainStepOrder is the fixed order in which strains are stepped each month.
var strainStepOrder = []HpvStrain{StrainLowRisk, StrainHighRisk, StrainSixteen, StrainEighteen}

func (s HpvStrain) String() string {
	switch s {
	case StrainSixteen:
		return "SIXTEEN"
	case StrainEighteen:
		return "EIGHTEEN"
	case StrainHighRisk:
		return "HIGH_RISK"
	case StrainLowRisk:
		return "LOW_RISK"
	}
	return fmt.Sprintf("HpvStrain(%d)", int8(s))
}

// HpvImmunity is an agent's immunity against one strain.
type HpvImmunity int8

const (
	ImmunityNone HpvImmunity = iota
	ImmunityNatural
	ImmunityVaccine
)

func (s HpvImmunity) String() string {
	switch s {
	case ImmunityNone:
		return "normal"
	case ImmunityNatural:
		return "natural"
	case ImmunityVaccine:
		return "vaccine"
	}
	return fmt.Sprintf("HpvImmunity(%d)", int8(s))
}

// HivState is an agent's HIV status. HIV is never cleared once acquired.
type HivState int8

const (
	HivNegative HivState = iota
	HivPositive
)

func (s HivState) String() string {
	switch s {
	case HivNegative:
		return "normal"
	case HivPositive:
		return "hiv"
	}
	return fmt.Sprintf("HivState(%d)", int8(s))
}

// CancerState is the stage of an agent's cervical cancer.
type CancerState int8

const (
	CancerNormal CancerState = iota
	CancerLocal
	CancerRegional
	CancerDistant
	CancerDead
)

// NumCancerStates is the length of every cancer weight vector.
const NumCancerStates = 5

func (s CancerState) String() string {
	switch s {
	case CancerNormal:
		return "normal"
	case CancerLocal:
		return "local"
	case CancerRegional:
		return "regional"
	case CancerDistant:
		return "distant"
	case CancerDead:
		return "dead"
	}
	return fmt.Sprintf("CancerState(%d)", int8(s))
}

// CancerDetectionState records whether an agent's cancer has been detected. Detected is absorbing.
type CancerDetectionState int8

const (
	Undetected CancerDetectionState = iota
	Detected
)

func (s CancerDetectionState) String() string {
	switch s {
	case Undetected:
		return "undetected"
	case Detected:
		return "detected"
	}
	return fmt.Sprintf("CancerDetectionState(%d)", int8(s))
}

// TimeSinceDetection buckets the time elapsed since an agent's cancer was detected.
type TimeSinceDetection int8

const (
	NotDetected TimeSinceDetection = iota
	Within5Years
	Beyond5Years
)

func (s TimeSinceDetection) String() string {
	switch s {
	case NotDetected:
		return "undetected"
	case Within5Years:
		return "within_5_years"
	case Beyond5Years:
		return "beyond_5_years"
	}
	return fmt.Sprintf("TimeSinceDetection(%d)", int8(s))
}

// LifeState is an agent's vital status. Dead is absorbing.
type LifeState int8

const (
	Alive LifeState = iota
	Dead
)

// NumLifeStates is the length of every life weight vector.
const NumLifeStates = 2

func (s LifeState) String() string {
	switch s {
	case Alive:
		return "alive"
	case Dead:
		return "dead"
	}
	return fmt.Sprintf("LifeState(%d)", int8(s))
}

// Chart identifiers written into state-change records.
const (
	ChartHIV             = "hiv"
	ChartCancer          = "cancer"
	ChartCancerDetection = "cancer_detection"
	ChartLife            = "life"
)
