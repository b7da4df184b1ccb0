package sim

import (
	"errors"
	"fmt"
	"math"
)

// ErrMissingKey is returned when a transition table has no entry for a reachable context key.
// Tables must be exhaustive; there is no default.
var ErrMissingKey = errors.New("transition table has no entry for key")

// MissingKeyError reports the table and key of a failed lookup.
type MissingKeyError struct {
	Table string
	Key   any
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s: %s table, key %+v", ErrMissingKey, e.Table, e.Key)
}

func (e *MissingKeyError) Unwrap() error { return ErrMissingKey }

// Context keys. Field order matches the tuple shape of each table file.

// LifeKey is the context of the life table: (age, hiv, cancer).
type LifeKey struct {
	Age    int
	HIV    HivState
	Cancer CancerState
}

// HivKey is the context of the HIV table: (age,).
type HivKey struct {
	Age int
}

// HpvKey is the context of the HPV table: (age, strain, immunity, hpv_state, hiv).
type HpvKey struct {
	Age      int
	Strain   HpvStrain
	Immunity HpvImmunity
	State    HpvState
	HIV      HivState
}

// CancerKey is the context of the cancer progression table: (detection, cancer_state).
type CancerKey struct {
	Detection CancerDetectionState
	State     CancerState
}

// CancerDetectionKey is the context of the cancer detection table: (cancer_state,).
type CancerDetectionKey struct {
	State CancerState
}

// WeightTable maps a context key to a vector of target-state weights.
type WeightTable[K comparable] struct {
	Name    string
	Entries map[K][]float64
}

// NewWeightTable creates an empty named WeightTable.
func NewWeightTable[K comparable](name string) *WeightTable[K] {
	return &WeightTable[K]{Name: name, Entries: make(map[K][]float64)}
}

// Weights returns the weight vector for key. The returned slice must not be modified.
func (t *WeightTable[K]) Weights(key K) ([]float64, error) {
	w, ok := t.Entries[key]
	if !ok {
		return nil, &MissingKeyError{Table: t.Name, Key: key}
	}
	return w, nil
}

// LeaveProbabilities derives, once per key, the probability of leaving the key's
// current state: 1 - weights[current(key)].
func (t *WeightTable[K]) LeaveProbabilities(current func(K) int) *ProbabilityTable[K] {
	out := NewProbabilityTable[K](t.Name)
	for k, w := range t.Entries {
		out.Entries[k] = 1 - w[current(k)]
	}
	return out
}

// Filter returns a new table holding only the entries accepted by keep.
func (t *WeightTable[K]) Filter(keep func(K) bool) *WeightTable[K] {
	out := NewWeightTable[K](t.Name)
	for k, w := range t.Entries {
		if keep(k) {
			out.Entries[k] = w
		}
	}
	return out
}

func (t *WeightTable[K]) validate(width int) error {
	for k, w := range t.Entries {
		if len(w) != width {
			return fmt.Errorf("%s table, key %+v: expected %d weights, got %d", t.Name, k, width, len(w))
		}
		for _, v := range w {
			if math.IsNaN(v) || v < 0 {
				return fmt.Errorf("%s table, key %+v: weights must be non-negative, got %v", t.Name, k, w)
			}
		}
	}
	return nil
}

// ProbabilityTable maps a context key to a scalar probability.
type ProbabilityTable[K comparable] struct {
	Name    string
	Entries map[K]float64
}

// NewProbabilityTable creates an empty named ProbabilityTable.
func NewProbabilityTable[K comparable](name string) *ProbabilityTable[K] {
	return &ProbabilityTable[K]{Name: name, Entries: make(map[K]float64)}
}

// Probability returns the probability stored for key.
func (t *ProbabilityTable[K]) Probability(key K) (float64, error) {
	p, ok := t.Entries[key]
	if !ok {
		return 0, &MissingKeyError{Table: t.Name, Key: key}
	}
	return p, nil
}

func (t *ProbabilityTable[K]) validate() error {
	for k, p := range t.Entries {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%s table, key %+v: probability must be in [0, 1], got %v", t.Name, k, p)
		}
	}
	return nil
}

// Table names, also used as file stems by the table codec.
const (
	TableLife            = "life"
	TableHIV             = "hiv"
	TableHPV             = "hpv"
	TableCancer          = "cancer"
	TableCancerDetection = "cancer_detection"
)

// Tables bundles the immutable transition tables consumed by a Model.
// Life, HPV and Cancer map to weight vectors; HIV and CancerDetection map to probabilities.
type Tables struct {
	Life            *WeightTable[LifeKey]
	HIV             *ProbabilityTable[HivKey]
	HPV             *WeightTable[HpvKey]
	Cancer          *WeightTable[CancerKey]
	CancerDetection *ProbabilityTable[CancerDetectionKey]
}

// NewTables creates an empty bundle ready to be filled.
func NewTables() *Tables {
	return &Tables{
		Life:            NewWeightTable[LifeKey](TableLife),
		HIV:             NewProbabilityTable[HivKey](TableHIV),
		HPV:             NewWeightTable[HpvKey](TableHPV),
		Cancer:          NewWeightTable[CancerKey](TableCancer),
		CancerDetection: NewProbabilityTable[CancerDetectionKey](TableCancerDetection),
	}
}

// Validate checks vector widths and value ranges. It does not check exhaustiveness;
// missing keys surface as MissingKeyError when first reached.
func (t *Tables) Validate() error {
	if t.Life == nil || t.HIV == nil || t.HPV == nil || t.Cancer == nil || t.CancerDetection == nil {
		return errors.New("tables: all five transition tables are required")
	}
	if err := t.Life.validate(NumLifeStates); err != nil {
		return err
	}
	if err := t.HPV.validate(NumHpvStates); err != nil {
		return err
	}
	if err := t.Cancer.validate(NumCancerStates); err != nil {
		return err
	}
	if err := t.HIV.validate(); err != nil {
		return err
	}
	if err := t.CancerDetection.validate(); err != nil {
		return err
	}
	// An agent killed by cancer stays in the detection candidates until the next
	// living-mask refresh, so she must not be detectable.
	dead := CancerDetectionKey{State: CancerDead}
	if p := t.CancerDetection.Entries[dead]; p != 0 {
		return fmt.Errorf("%s table, key %+v: detection probability of a dead agent must be 0, got %v",
			t.CancerDetection.Name, dead, p)
	}
	return nil
}

// TableLoader deserializes the transition tables of a scenario.
type TableLoader interface {
	Load() (*Tables, error)
}
