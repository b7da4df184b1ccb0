package sim

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/cervical-sim/cervical-sim/sim/record"
)

// CinTreatmentMethod is one way of treating a CIN lesion.
type CinTreatmentMethod struct {
	Name   string
	Kind   record.EventKind
	Params CinTreatmentParameters
}

// IsEffective draws whether one application of the method clears the lesion.
func (c CinTreatmentMethod) IsEffective(rng *rand.Rand) bool {
	return rng.Float64() < c.Params.Effectiveness
}

// CinTreatmentMethods is the mix of CIN treatment methods available to the program.
type CinTreatmentMethods struct {
	Methods []CinTreatmentMethod
	cdf     []float64
}

// NewCinTreatmentMethods builds the LEEP/cryotherapy mix from treatment parameters.
func NewCinTreatmentMethods(p TreatmentParameters) *CinTreatmentMethods {
	methods := []CinTreatmentMethod{
		{Name: "leep", Kind: record.TreatmentLEEP, Params: p.LEEP},
		{Name: "cryo", Kind: record.TreatmentCryo, Params: p.Cryo},
	}
	proportions := make([]float64, len(methods))
	for i, m := range methods {
		proportions[i] = m.Params.Proportion
	}
	cdf := make([]float64, len(methods))
	floats.CumSum(cdf, proportions)
	cdf[len(cdf)-1] = 1
	return &CinTreatmentMethods{Methods: methods, cdf: cdf}
}

// Choose draws a method index according to the configured proportions.
// Consumes exactly one draw.
func (c *CinTreatmentMethods) Choose(rng *rand.Rand) int {
	u := rng.Float64()
	for i, p := range c.cdf {
		if p > u {
			return i
		}
	}
	return len(c.cdf) - 1
}
