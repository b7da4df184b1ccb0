package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the seed of one reproducible run. Two runs with the same key,
// parameters and tables produce identical state-change and event logs.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// IterationKey derives the key for one iteration of a scenario.
// Iteration 0 uses the seed unchanged so a single run and the first batch
// iteration agree; later iterations mix in an fnv hash of the iteration name.
func IterationKey(seed int64, iteration int) SimulationKey {
	if iteration == 0 {
		return SimulationKey(seed)
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "iteration_%d", iteration)
	return SimulationKey(seed ^ int64(h.Sum64()))
}

// NewRNG returns the run's only random stream. The draw order on it is fixed
// by Model.Step, so it must not be shared across goroutines or models.
func (k SimulationKey) NewRNG() *rand.Rand {
	return rand.New(rand.NewSource(int64(k)))
}
