package sim

import (
	"errors"
	"fmt"
)

// ErrUnknownCancerStage is returned when a cancer stage has no treatment cost.
var ErrUnknownCancerStage = errors.New("unexpected cancer stage")

// Cancer tracks cancer progression (LOCAL -> REGIONAL -> DISTANT -> DEAD).
// Onset (NORMAL -> LOCAL) is driven only by the HPV machines.
// The progression probability depends on detection status and the current stage.
type Cancer struct {
	*StateChart[CancerState]
	m       *Model
	weights *WeightTable[CancerKey]
	leave   *ProbabilityTable[CancerKey]
}

func newCancer(m *Model) *Cancer {
	c := &Cancer{
		StateChart: NewStateChart[CancerState](ChartCancer),
		m:          m,
		weights:    m.Tables.Cancer,
		leave:      m.Tables.Cancer.LeaveProbabilities(func(k CancerKey) int { return int(k.State) }),
	}
	c.Initiate(m.Params.NumAgents, CancerNormal)
	return c
}

func (c *Cancer) key(agent int) CancerKey {
	return CancerKey{Detection: c.m.CancerDetection.Values[agent], State: c.Values[agent]}
}

// InitiateProbabilities looks up every agent's progression probability.
func (c *Cancer) InitiateProbabilities() error {
	return bulkLookup(c.Probabilities, c.leave, c.key)
}

// RecomputeProbability refreshes one agent's progression probability.
func (c *Cancer) RecomputeProbability(agent int) error {
	p, err := c.leave.Probability(c.key(agent))
	if err != nil {
		return err
	}
	c.Probabilities[agent] = p
	return nil
}

// Step progresses living, undetected agents in LOCAL or REGIONAL. Progression to DEAD
// kills the agent directly, bypassing the life machine's draw. Afterwards the
// time-since-detection timers are advanced.
func (c *Cancer) Step() error {
	life := c.m.Life
	detection := c.m.CancerDetection
	candidates := eligible(c.Len(), func(agent int) bool {
		s := c.Values[agent]
		return life.Living[agent] && (s == CancerLocal || s == CancerRegional) &&
			detection.Values[agent] == Undetected
	})

	for _, agent := range c.Select(candidates, c.m.rng) {
		current := c.Values[agent]
		key := c.key(agent)
		w, err := c.weights.Weights(key)
		if err != nil {
			return err
		}
		next, err := SelectTarget(w, current, c.m.rng.Float64())
		if err != nil {
			return fmt.Errorf("%s table, key %+v: %w", c.weights.Name, key, err)
		}
		c.m.recordStateChange(c.ID, agent, int(current), int(next))
		c.Values[agent] = next

		if err := detection.RecomputeProbability(agent); err != nil {
			return err
		}
		if err := c.RecomputeProbability(agent); err != nil {
			return err
		}
		if err := life.RecomputeProbability(agent); err != nil {
			return err
		}
		if next == CancerDead {
			c.m.recordStateChange(life.ID, agent, int(Alive), int(Dead))
			life.Values[agent] = Dead
		}
	}

	c.m.advanceDetectionTimers()
	return nil
}

// advanceDetectionTimers moves agents detected more than five years ago out of the
// recently-detected bucket.
func (m *Model) advanceDetectionTimers() {
	for agent, bucket := range m.TimeSinceDetection {
		if bucket == Within5Years && m.YearsSince(m.CancerDetectionTime[agent]) > 5 {
			m.TimeSinceDetection[agent] = Beyond5Years
		}
	}
}
