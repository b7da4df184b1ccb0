// Package tables reads and writes transition tables as YAML files, one per table.
//
// Each file lists entries whose key is the table's context tuple of integers and whose
// value is either a weight vector or a scalar probability:
//
//	table: cancer
//	entries:
//	  - key: [0, 1]
//	    weights: [0, 0.98, 0.02, 0, 0]
package tables

import (
	"fmt"

	"github.com/cervical-sim/cervical-sim/sim"
)

// keyCodec converts a context key to and from its integer tuple.
// limits bounds each position exclusively; zero means unbounded (ages).
type keyCodec[K comparable] struct {
	limits []int
	encode func(K) []int
	decode func([]int) K
}

func (c keyCodec[K]) parse(tuple []int) (K, error) {
	var zero K
	if len(tuple) != len(c.limits) {
		return zero, fmt.Errorf("key %v: expected %d elements, got %d", tuple, len(c.limits), len(tuple))
	}
	for i, v := range tuple {
		if v < 0 || (c.limits[i] > 0 && v >= c.limits[i]) {
			return zero, fmt.Errorf("key %v: element %d out of range", tuple, i)
		}
	}
	return c.decode(tuple), nil
}

var lifeKeys = keyCodec[sim.LifeKey]{
	limits: []int{0, 2, sim.NumCancerStates},
	encode: func(k sim.LifeKey) []int { return []int{k.Age, int(k.HIV), int(k.Cancer)} },
	decode: func(t []int) sim.LifeKey {
		return sim.LifeKey{Age: t[0], HIV: sim.HivState(t[1]), Cancer: sim.CancerState(t[2])}
	},
}

var hivKeys = keyCodec[sim.HivKey]{
	limits: []int{0},
	encode: func(k sim.HivKey) []int { return []int{k.Age} },
	decode: func(t []int) sim.HivKey { return sim.HivKey{Age: t[0]} },
}

var hpvKeys = keyCodec[sim.HpvKey]{
	limits: []int{0, sim.NumStrains, 3, sim.NumHpvStates, 2},
	encode: func(k sim.HpvKey) []int {
		return []int{k.Age, int(k.Strain), int(k.Immunity), int(k.State), int(k.HIV)}
	},
	decode: func(t []int) sim.HpvKey {
		return sim.HpvKey{
			Age:      t[0],
			Strain:   sim.HpvStrain(t[1]),
			Immunity: sim.HpvImmunity(t[2]),
			State:    sim.HpvState(t[3]),
			HIV:      sim.HivState(t[4]),
		}
	},
}

var cancerKeys = keyCodec[sim.CancerKey]{
	limits: []int{2, sim.NumCancerStates},
	encode: func(k sim.CancerKey) []int { return []int{int(k.Detection), int(k.State)} },
	decode: func(t []int) sim.CancerKey {
		return sim.CancerKey{Detection: sim.CancerDetectionState(t[0]), State: sim.CancerState(t[1])}
	},
}

var cancerDetectionKeys = keyCodec[sim.CancerDetectionKey]{
	limits: []int{sim.NumCancerStates},
	encode: func(k sim.CancerDetectionKey) []int { return []int{int(k.State)} },
	decode: func(t []int) sim.CancerDetectionKey {
		return sim.CancerDetectionKey{State: sim.CancerState(t[0])}
	},
}
