package sim

import "fmt"

// Hpv tracks one HPV strain across the cohort.
//
// The probability of transition depends on age, strain, immunity, the current state of
// this strain, and HIV status. It is refreshed yearly, whenever this strain's state
// changes, whenever immunity changes, and when the agent seroconverts.
type Hpv struct {
	*StateChart[HpvState]
	m        *Model
	Strain   HpvStrain
	Immunity []HpvImmunity
	weights  *WeightTable[HpvKey]
	leave    *ProbabilityTable[HpvKey]

	// agentsWithCancer holds the agents this strain has already pushed into cancer.
	// It is local to the strain; see DESIGN.md for the cross-strain consequence.
	agentsWithCancer map[int]struct{}
}

func newHpv(m *Model, strain HpvStrain) *Hpv {
	weights := m.Tables.HPV.Filter(func(k HpvKey) bool { return k.Strain == strain })
	h := &Hpv{
		StateChart:       NewStateChart[HpvState](strain.String()),
		m:                m,
		Strain:           strain,
		weights:          weights,
		leave:            weights.LeaveProbabilities(func(k HpvKey) int { return int(k.State) }),
		agentsWithCancer: make(map[int]struct{}),
	}
	h.Initiate(m.Params.NumAgents, HpvNormal)
	h.Immunity = make([]HpvImmunity, m.Params.NumAgents)
	return h
}

func (h *Hpv) key(agent int) HpvKey {
	return HpvKey{
		Age:      h.m.Age,
		Strain:   h.Strain,
		Immunity: h.Immunity[agent],
		State:    h.Values[agent],
		HIV:      h.m.HIV.Values[agent],
	}
}

// Step draws transitions for living agents without cancer.
// Clearing the strain grants natural immunity; reaching CANCER starts LOCAL cancer
// the first time this strain does so for the agent.
func (h *Hpv) Step() error {
	life := h.m.Life
	cancer := h.m.Cancer
	candidates := eligible(h.Len(), func(agent int) bool {
		return life.Living[agent] && cancer.Values[agent] == CancerNormal
	})

	for _, agent := range h.Select(candidates, h.m.rng) {
		current := h.Values[agent]
		key := h.key(agent)
		w, err := h.weights.Weights(key)
		if err != nil {
			return err
		}
		next, err := SelectTarget(w, current, h.m.rng.Float64())
		if err != nil {
			return fmt.Errorf("%s table, key %+v: %w", h.weights.Name, key, err)
		}
		h.m.recordStateChange(h.ID, agent, int(current), int(next))
		h.Values[agent] = next

		switch next {
		case HpvNormal:
			h.Immunity[agent] = max(h.Immunity[agent], ImmunityNatural)
		case HpvCancer:
			if err := h.startCancer(agent); err != nil {
				return err
			}
		}

		if err := h.RecomputeProbability(agent); err != nil {
			return err
		}
	}
	return nil
}

// startCancer moves the agent to LOCAL cancer unless this strain already did so.
func (h *Hpv) startCancer(agent int) error {
	if _, seen := h.agentsWithCancer[agent]; seen {
		return nil
	}
	h.agentsWithCancer[agent] = struct{}{}
	if _, ok := h.m.CancerCause[agent]; !ok {
		h.m.CancerCause[agent] = h.Strain
	}

	cancer := h.m.Cancer
	h.m.recordStateChange(cancer.ID, agent, int(CancerNormal), int(CancerLocal))
	cancer.Values[agent] = CancerLocal
	if err := cancer.RecomputeProbability(agent); err != nil {
		return err
	}
	// Onset changes the detection key, so LOCAL cancer is detectable from this month.
	if err := h.m.CancerDetection.RecomputeProbability(agent); err != nil {
		return err
	}
	return h.m.Life.RecomputeProbability(agent)
}

// UpdateProbabilities recomputes every agent's transition probability. Called once a year.
func (h *Hpv) UpdateProbabilities() error {
	return bulkLookup(h.Probabilities, h.leave, h.key)
}

// RecomputeProbability refreshes one agent's transition probability.
func (h *Hpv) RecomputeProbability(agent int) error {
	p, err := h.leave.Probability(h.key(agent))
	if err != nil {
		return err
	}
	h.Probabilities[agent] = p
	return nil
}
