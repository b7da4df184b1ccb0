package sim

import (
	"fmt"

	"github.com/cervical-sim/cervical-sim/sim/record"
)

// CancerDetection tracks symptomatic detection of cancer. The detection probability
// depends on how advanced the cancer is. Detected is absorbing.
type CancerDetection struct {
	*StateChart[CancerDetectionState]
	m *Model
}

func newCancerDetection(m *Model) *CancerDetection {
	d := &CancerDetection{StateChart: NewStateChart[CancerDetectionState](ChartCancerDetection), m: m}
	d.Initiate(m.Params.NumAgents, Undetected)
	return d
}

// RecomputeProbability refreshes one agent's detection probability from her cancer stage.
func (d *CancerDetection) RecomputeProbability(agent int) error {
	p, err := d.m.Tables.CancerDetection.Probability(CancerDetectionKey{State: d.m.Cancer.Values[agent]})
	if err != nil {
		return err
	}
	d.Probabilities[agent] = p
	return nil
}

// Step detects cancer among living, undetected agents who have it. Detection records
// the treatment cost for the current stage and starts the five-year timer.
func (d *CancerDetection) Step() error {
	life := d.m.Life
	cancer := d.m.Cancer
	candidates := eligible(d.Len(), func(agent int) bool {
		return life.Living[agent] && d.Values[agent] == Undetected && cancer.Values[agent] != CancerNormal
	})
	for _, agent := range d.Select(candidates, d.m.rng) {
		d.m.recordStateChange(d.ID, agent, int(Undetected), int(Detected))
		d.Values[agent] = Detected
		if err := d.treatCancer(agent); err != nil {
			return err
		}
		d.m.CancerDetectionTime[agent] = d.m.Time
		d.m.TimeSinceDetection[agent] = Within5Years
		if err := cancer.RecomputeProbability(agent); err != nil {
			return err
		}
	}
	return nil
}

// treatCancer records the cost of treating the agent's current cancer stage.
// Treatment has no effect on the disease beyond its cost.
func (d *CancerDetection) treatCancer(agent int) error {
	var cost float64
	switch stage := d.m.Cancer.Values[agent]; stage {
	case CancerLocal:
		cost = d.m.Params.Treatment.CancerCostLocal
	case CancerRegional:
		cost = d.m.Params.Treatment.CancerCostRegional
	case CancerDistant:
		cost = d.m.Params.Treatment.CancerCostDistant
	default:
		return fmt.Errorf("%w %s", ErrUnknownCancerStage, stage)
	}
	d.m.recordEvent(record.TreatmentCancer, agent, cost)
	return nil
}
