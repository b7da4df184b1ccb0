package sim

// Hiv tracks HIV status. The probability of seroconversion depends only on age.
// When include_hiv is off the machine never draws and every agent stays negative.
type Hiv struct {
	*StateChart[HivState]
	m *Model
}

func newHiv(m *Model) *Hiv {
	h := &Hiv{StateChart: NewStateChart[HivState](ChartHIV), m: m}
	h.Initiate(m.Params.NumAgents, HivNegative)
	return h
}

// Step draws seroconversions among living HIV-negative agents. A seroconversion may be
// detected, and always refreshes the agent's HPV and life probabilities.
func (h *Hiv) Step() error {
	if !h.m.Params.IncludeHIV {
		return nil
	}
	life := h.m.Life
	candidates := eligible(h.Len(), func(agent int) bool {
		return life.Living[agent] && h.Values[agent] == HivNegative
	})
	for _, agent := range h.Select(candidates, h.m.rng) {
		h.m.recordStateChange(h.ID, agent, int(HivNegative), int(HivPositive))
		h.Values[agent] = HivPositive
		if h.m.rng.Float64() < h.m.Params.HivDetectionRate {
			h.m.HIVDetected[agent] = true
		}
		for _, strain := range Strains {
			if err := h.m.HPV[strain].RecomputeProbability(agent); err != nil {
				return err
			}
		}
		if err := life.RecomputeProbability(agent); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProbabilities sets every agent's seroconversion probability for the current age.
func (h *Hiv) UpdateProbabilities() error {
	if !h.m.Params.IncludeHIV {
		return nil
	}
	return bulkLookup(h.Probabilities, h.m.Tables.HIV, func(int) HivKey { return HivKey{Age: h.m.Age} })
}

// RecomputeProbability refreshes one agent's seroconversion probability.
func (h *Hiv) RecomputeProbability(agent int) error {
	if !h.m.Params.IncludeHIV {
		return nil
	}
	p, err := h.m.Tables.HIV.Probability(HivKey{Age: h.m.Age})
	if err != nil {
		return err
	}
	h.Probabilities[agent] = p
	return nil
}
