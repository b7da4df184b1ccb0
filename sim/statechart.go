package sim

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// ErrNoTarget is returned when a weight vector puts no weight outside the current state.
var ErrNoTarget = errors.New("weight vector has no target besides the current state")

// StateChart holds one categorical state per agent plus the cached probability
// of leaving that state in the current step. Every disease and life machine embeds one.
//
// Values and Probabilities are indexed by agent id and never resized after Initiate.
type StateChart[S State] struct {
	ID            string
	Values        []S
	Probabilities []float64
}

// NewStateChart creates an empty chart whose transitions are recorded under id.
func NewStateChart[S State](id string) *StateChart[S] {
	return &StateChart[S]{ID: id}
}

// Initiate sizes the chart for count agents, all in state, with zero leave-probability.
func (sc *StateChart[S]) Initiate(count int, state S) {
	sc.Values = make([]S, count)
	for i := range sc.Values {
		sc.Values[i] = state
	}
	sc.Probabilities = make([]float64, count)
}

// Len returns the number of agents in the chart.
func (sc *StateChart[S]) Len() int {
	return len(sc.Values)
}

// Select draws one uniform number per eligible agent, in the order given, and
// returns the agents whose cached leave-probability exceeds their draw.
// Exactly len(eligible) numbers are consumed from rng.
func (sc *StateChart[S]) Select(eligible []int, rng *rand.Rand) []int {
	draws := make([]float64, len(eligible))
	for i := range draws {
		draws[i] = rng.Float64()
	}
	selected := make([]int, 0)
	for i, agent := range eligible {
		if sc.Probabilities[agent] > draws[i] {
			selected = append(selected, agent)
		}
	}
	return selected
}

// SelectTarget picks the next state for an agent leaving current.
// The current state's weight is zeroed, the rest renormalized into a CDF, and the
// first positive-weight state whose cumulative weight exceeds draw is returned.
func SelectTarget[S State](weights []float64, current S, draw float64) (S, error) {
	w := make([]float64, len(weights))
	copy(w, weights)
	w[current] = 0
	total := floats.Sum(w)
	if total <= 0 {
		return current, ErrNoTarget
	}
	floats.Scale(1/total, w)
	cdf := make([]float64, len(w))
	floats.CumSum(cdf, w)
	cdf[len(cdf)-1] = 1

	last := int(current)
	for i, c := range cdf {
		if w[i] == 0 {
			continue
		}
		last = i
		if c > draw {
			return S(i), nil
		}
	}
	return S(last), nil
}

// eligible returns, in increasing order, every agent in [0, n) accepted by keep.
func eligible(n int, keep func(agent int) bool) []int {
	out := make([]int, 0)
	for agent := 0; agent < n; agent++ {
		if keep(agent) {
			out = append(out, agent)
		}
	}
	return out
}
