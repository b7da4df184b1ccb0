package sim

import (
	"testing"

	"github.com/cervical-sim/cervical-sim/sim/record"
)

// testParameters returns a small, fully valid parameter set with screening off.
func testParameters() *Parameters {
	p := DefaultParameters()
	p.NumAgents = 100
	p.NumSteps = 120
	p.Seed = 42
	return p
}

// newTestModel builds a model over generated tables with an enabled recorder.
func newTestModel(t *testing.T, params *Parameters, tables *Tables) *Model {
	t.Helper()
	m, err := NewModel(params, tables, WithRecorder(record.NewRecorder(true)))
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

// zeroTables returns tables in which no agent ever leaves her state.
func zeroTables() *Tables {
	return GenerateTables(0, 110, TableRates{})
}

// defaultTables returns tables with DefaultTableRates.
func defaultTables() *Tables {
	return GenerateTables(0, 110, DefaultTableRates())
}

// setAll overwrites the weights of every key accepted by match.
func setAll[K comparable](table *WeightTable[K], match func(K) bool, weights []float64) {
	for k := range table.Entries {
		if match(k) {
			table.Entries[k] = weights
		}
	}
}
