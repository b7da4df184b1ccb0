package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// paramsValidate checks the range tags on Parameters. Safe for concurrent use.
var paramsValidate = validator.New()

// Parameters is the full parameter tree of one model run, loadable from YAML.
// Fields absent from the file keep the values of DefaultParameters.
type Parameters struct {
	NumAgents        int                   `yaml:"num_agents" validate:"gt=0"`
	NumSteps         int                   `yaml:"num_steps" validate:"gte=0"`
	StepsPerYear     int                   `yaml:"steps_per_year" validate:"gt=0"`
	InitialAge       int                   `yaml:"initial_age" validate:"gte=0"`
	Seed             int64                 `yaml:"seed"`
	HivDetectionRate float64               `yaml:"hiv_detection_rate" validate:"gte=0,lte=1"`
	IncludeHIV       bool                  `yaml:"include_hiv"`
	Vaccination      VaccinationParameters `yaml:"vaccination"`
	Screening        ScreeningParameters   `yaml:"screening"`
	Treatment        TreatmentParameters   `yaml:"treatment"`
}

// VaccinationParameters configures the age-scheduled vaccination campaign.
type VaccinationParameters struct {
	Cost     float64         `yaml:"cost" validate:"gte=0"`
	Schedule map[int]float64 `yaml:"schedule" validate:"dive,gte=0,lte=1"` // age -> coverage
}

// ScreeningParameters configures the screening protocol and its tests.
type ScreeningParameters struct {
	Protocol             string                  `yaml:"protocol"`
	AgeRoutineStart      int                     `yaml:"age_routine_start" validate:"gte=0"`
	AgeRoutineEnd        int                     `yaml:"age_routine_end" validate:"gte=0"`
	IntervalRoutine      int                     `yaml:"interval_routine" validate:"gte=0"`
	IntervalReTest       int                     `yaml:"interval_re_test" validate:"gte=0"`
	IntervalSurveillance int                     `yaml:"interval_surveillance" validate:"gte=0"`
	IntervalHIV          int                     `yaml:"interval_hiv" validate:"gte=0"`
	VIA                  ScreeningTestParameters `yaml:"via"`
	DNA                  ScreeningTestParameters `yaml:"dna"`
	CancerInspection     ScreeningTestParameters `yaml:"cancer_inspection"`
	Compliance           ComplianceParameters    `yaml:"compliance"`
}

// ScreeningTestParameters describes one diagnostic test.
type ScreeningTestParameters struct {
	Cost        float64 `yaml:"cost" validate:"gte=0"`
	Sensitivity float64 `yaml:"sensitivity" validate:"gte=0,lte=1"`
	Specificity float64 `yaml:"specificity" validate:"gte=0,lte=1"`
}

// ComplianceParameters gives the fraction of women who never attend routine
// screening and never attend surveillance follow-up.
type ComplianceParameters struct {
	Never             float64 `yaml:"never" validate:"gte=0,lte=1"`
	NeverSurveillance float64 `yaml:"never_surveillance" validate:"gte=0,lte=1"`
}

// TreatmentParameters configures CIN treatment methods and cancer treatment costs.
type TreatmentParameters struct {
	LEEP               CinTreatmentParameters `yaml:"leep"`
	Cryo               CinTreatmentParameters `yaml:"cryo"`
	CancerCostLocal    float64                `yaml:"cancer_cost_local" validate:"gte=0"`
	CancerCostRegional float64                `yaml:"cancer_cost_regional" validate:"gte=0"`
	CancerCostDistant  float64                `yaml:"cancer_cost_distant" validate:"gte=0"`
}

// CinTreatmentParameters describes one CIN treatment method.
type CinTreatmentParameters struct {
	Cost          float64 `yaml:"cost" validate:"gte=0"`
	Effectiveness float64 `yaml:"effectiveness" validate:"gte=0,lte=1"`
	Proportion    float64 `yaml:"proportion" validate:"gte=0,lte=1"`
}

// DefaultParameters returns the built-in parameter values.
func DefaultParameters() *Parameters {
	return &Parameters{
		NumAgents:        100,
		NumSteps:         120,
		StepsPerYear:     12,
		InitialAge:       9,
		Seed:             1111,
		HivDetectionRate: 1,
		IncludeHIV:       true,
		Vaccination: VaccinationParameters{
			Cost:     15.00,
			Schedule: map[int]float64{},
		},
		Screening: ScreeningParameters{
			Protocol:             "none",
			AgeRoutineStart:      25,
			AgeRoutineEnd:        49,
			IntervalRoutine:      3,
			IntervalReTest:       1,
			IntervalSurveillance: 1,
			IntervalHIV:          3,
			VIA:                  ScreeningTestParameters{Cost: 2.52, Sensitivity: 0.73, Specificity: 0.67},
			DNA:                  ScreeningTestParameters{Cost: 18.00, Sensitivity: 0.88, Specificity: 0.60},
			CancerInspection:     ScreeningTestParameters{Cost: 2.52, Sensitivity: 1.00, Specificity: 1.00},
		},
		Treatment: TreatmentParameters{
			LEEP:               CinTreatmentParameters{Cost: 32.00, Effectiveness: 0.94, Proportion: 0.15},
			Cryo:               CinTreatmentParameters{Cost: 1.52, Effectiveness: 0.88, Proportion: 0.85},
			CancerCostLocal:    1186,
			CancerCostRegional: 1389,
			CancerCostDistant:  1146,
		},
	}
}

// LoadParameters reads a YAML parameter file on top of DefaultParameters.
// Uses strict parsing: unrecognized keys are rejected.
// A missing file is not an error; the defaults are returned with a warning.
func LoadParameters(path string) (*Parameters, error) {
	params := DefaultParameters()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("parameter file %s not found; using defaults", path)
		return params, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading parameters: %w", err)
	}
	if err := DecodeParameters(data, params); err != nil {
		return nil, err
	}
	return params, nil
}

// DecodeParameters strictly decodes YAML data into params, keeping values for absent keys.
func DecodeParameters(data []byte, params *Parameters) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(params); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing parameters: %w", err)
	}
	return nil
}

// Validate checks parameter ranges and cross-field constraints.
func (p *Parameters) Validate() error {
	if err := paramsValidate.Struct(p); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	if !IsValidScreeningProtocol(p.Screening.Protocol) {
		return fmt.Errorf("%w %q", ErrUnknownProtocol, p.Screening.Protocol)
	}
	if p.Screening.AgeRoutineStart > p.Screening.AgeRoutineEnd {
		return fmt.Errorf("screening.age_routine_start (%d) must not exceed age_routine_end (%d)",
			p.Screening.AgeRoutineStart, p.Screening.AgeRoutineEnd)
	}
	sum := p.Treatment.LEEP.Proportion + p.Treatment.Cryo.Proportion
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("treatment proportions must sum to 1, got %v", sum)
	}
	return nil
}

// Export writes the parameter tree to path as YAML.
func (p *Parameters) Export(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding parameters: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing parameters: %w", err)
	}
	return nil
}

func (p *Parameters) String() string {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%+v", *p)
	}
	return string(data)
}
