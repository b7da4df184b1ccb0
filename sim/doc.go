// Package sim provides the per-agent cervical cancer micro-simulation kernel.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - statechart.go: the generic StateChart, agent selection, and target selection
//   - table.go: context keys and the transition tables every machine looks up
//   - model.go: the Model, its monthly step order, and the yearly update
//
// # Architecture
//
// Agents are indices into parallel arrays. Each disease or life machine (Hpv per
// strain, Hiv, Cancer, CancerDetection, Life) embeds a StateChart and holds a
// pointer to the Model so it can read its siblings' values and push probability
// invalidations through RecomputeProbability.
//
// Interventions run once a year:
//   - screening.go: the ScreeningProtocol registry and its five protocols
//   - diagnostic.go: VIA, HPV DNA, and cancer inspection test models
//   - treatment.go: the CIN treatment method mix
//   - vaccine.go: the age-scheduled vaccination campaign
//
// Sub-packages:
//   - sim/record/: state-change and cost-event logs
//   - sim/tables/: transition table files
//   - sim/scenario/: scenario directory layout
//   - sim/output/: run-end writers
//   - sim/batch/: concurrent multi-run execution
//
// # Reproducibility
//
// Every draw of a run comes from the single stream returned by SimulationKey.NewRNG.
// The draw order is fixed by Model.Step; reordering machines or campaigns changes
// results for the same seed.
package sim
