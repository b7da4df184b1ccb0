package sim

// Life tracks vital status. The probability of dying depends on age, HIV status,
// and cancer stage, and is refreshed yearly and whenever either of those changes.
type Life struct {
	*StateChart[LifeState]
	m      *Model
	leave  *ProbabilityTable[LifeKey]
	Living []bool
}

func newLife(m *Model) *Life {
	l := &Life{
		StateChart: NewStateChart[LifeState](ChartLife),
		m:          m,
		leave:      m.Tables.Life.LeaveProbabilities(func(LifeKey) int { return int(Alive) }),
	}
	l.Initiate(m.Params.NumAgents, Alive)
	l.Living = make([]bool, m.Params.NumAgents)
	l.UpdateLiving()
	return l
}

func (l *Life) key(agent int) LifeKey {
	return LifeKey{Age: l.m.Age, HIV: l.m.HIV.Values[agent], Cancer: l.m.Cancer.Values[agent]}
}

// UpdateLiving refreshes the living mask from the current life states.
func (l *Life) UpdateLiving() {
	for agent, v := range l.Values {
		l.Living[agent] = v == Alive
	}
}

// CountLiving returns the number of agents in the living mask.
func (l *Life) CountLiving() int {
	n := 0
	for _, alive := range l.Living {
		if alive {
			n++
		}
	}
	return n
}

// Step draws deaths among living agents. Dead is the only target.
func (l *Life) Step() error {
	l.UpdateLiving()
	alive := eligible(l.Len(), func(agent int) bool { return l.Living[agent] })
	for _, agent := range l.Select(alive, l.m.rng) {
		l.m.recordStateChange(l.ID, agent, int(Alive), int(Dead))
		l.Values[agent] = Dead
	}
	return nil
}

// UpdateProbabilities recomputes every agent's probability of dying. Called once a year.
func (l *Life) UpdateProbabilities() error {
	return bulkLookup(l.Probabilities, l.leave, l.key)
}

// RecomputeProbability refreshes one agent's probability of dying.
func (l *Life) RecomputeProbability(agent int) error {
	p, err := l.leave.Probability(l.key(agent))
	if err != nil {
		return err
	}
	l.Probabilities[agent] = p
	return nil
}

// bulkLookup fills probs for every agent, looking each distinct key up once.
func bulkLookup[K comparable](probs []float64, table *ProbabilityTable[K], key func(agent int) K) error {
	cache := make(map[K]float64)
	for agent := range probs {
		k := key(agent)
		p, ok := cache[k]
		if !ok {
			var err error
			if p, err = table.Probability(k); err != nil {
				return err
			}
			cache[k] = p
		}
		probs[agent] = p
	}
	return nil
}
