// Package batch runs many independent model runs concurrently. Each run owns its
// model, RNG, and output; a failing run is reported and never stops its siblings.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cervical-sim/cervical-sim/sim"
	"github.com/cervical-sim/cervical-sim/sim/output"
	"github.com/cervical-sim/cervical-sim/sim/record"
	"github.com/cervical-sim/cervical-sim/sim/scenario"
)

// Task is one scenario iteration.
type Task struct {
	Scenario  *scenario.Scenario
	Iteration int
	// Seed, when set, replaces the seed derived from the scenario parameters.
	Seed *int64
}

// Tasks expands every scenario into iterations 0..iterations-1.
func Tasks(scenarios []*scenario.Scenario, iterations int) []Task {
	tasks := make([]Task, 0, len(scenarios)*iterations)
	for _, s := range scenarios {
		for i := 0; i < iterations; i++ {
			tasks = append(tasks, Task{Scenario: s, Iteration: i})
		}
	}
	return tasks
}

// Result is the outcome of one Task.
type Result struct {
	Task
	RunID    uuid.UUID
	Seed     int64
	Summary  sim.Summary
	Duration time.Duration
	Err      error
}

// Config controls how tasks are run.
type Config struct {
	// Workers bounds concurrent runs. Zero means GOMAXPROCS.
	Workers int
	// StoreEvents enables recording and writes the logs to the iteration directory.
	StoreEvents bool
	// Format is the output format used when StoreEvents is set.
	Format string
	// OnResult, if set, is called once per finished task. Calls are serialized.
	OnResult func(Result)
	// Progress, if set, is passed to every model as its yearly progress callback.
	Progress func(year, years int)
}

// Runner executes tasks with bounded concurrency.
type Runner struct {
	cfg     Config
	metrics *Metrics
	mu      sync.Mutex
}

// NewRunner creates a Runner. metrics may be nil.
func NewRunner(cfg Config, metrics *Metrics) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Format == "" {
		cfg.Format = output.FormatParquet
	}
	return &Runner{cfg: cfg, metrics: metrics}
}

// Run executes every task and returns one Result per task, in task order.
// Failures are recorded in the results; Run itself only fails if ctx is canceled.
func (r *Runner) Run(ctx context.Context, tasks []Task) ([]Result, error) {
	results := make([]Result, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Task: task, Err: err}
				return nil
			}
			results[i] = r.runIsolated(gctx, task)
			r.report(results[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// RunOne executes a single task synchronously.
func (r *Runner) RunOne(ctx context.Context, task Task) Result {
	res := r.runIsolated(ctx, task)
	r.report(res)
	return res
}

func (r *Runner) report(res Result) {
	r.metrics.observe(res)
	log := logrus.WithFields(logrus.Fields{
		"scenario":  res.Scenario.Name(),
		"iteration": res.Iteration,
		"run_id":    res.RunID.String(),
	})
	if res.Err != nil {
		log.Errorf("Run failed: %v", res.Err)
	} else {
		log.Infof("Run finished in %s: %d of %d agents living", res.Duration.Round(time.Millisecond),
			res.Summary.Living, res.Summary.Agents)
	}
	if r.cfg.OnResult != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.cfg.OnResult(res)
	}
}

// runIsolated runs a task, converting a panic into the task's error.
func (r *Runner) runIsolated(ctx context.Context, task Task) (res Result) {
	res = Result{Task: task, RunID: uuid.New()}
	started := time.Now()
	r.metrics.start()
	defer func() {
		r.metrics.done()
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
		res.Duration = time.Since(started)
	}()
	res.Seed, res.Summary, res.Err = r.execute(ctx, task, res.RunID, started)
	return res
}

func (r *Runner) execute(ctx context.Context, task Task, runID uuid.UUID, started time.Time) (int64, sim.Summary, error) {
	s := task.Scenario
	params, err := s.LoadParameters()
	if err != nil {
		return 0, sim.Summary{}, err
	}
	key := sim.IterationKey(params.Seed, task.Iteration)
	if task.Seed != nil {
		key = sim.NewSimulationKey(*task.Seed)
	}
	tables, err := s.LoadTables(task.Iteration)
	if err != nil {
		return int64(key), sim.Summary{}, err
	}

	rec := record.NewRecorder(r.cfg.StoreEvents)
	opts := []sim.ModelOption{sim.WithRecorder(rec), sim.WithSimulationKey(key)}
	if r.cfg.Progress != nil {
		opts = append(opts, sim.WithProgress(r.cfg.Progress))
	}
	m, err := sim.NewModel(params, tables, opts...)
	if err != nil {
		return int64(key), sim.Summary{}, err
	}
	if err := m.Run(); err != nil {
		return int64(key), m.Summary(), err
	}
	summary := m.Summary()

	if r.cfg.StoreEvents {
		dir, err := s.PrepareIteration(task.Iteration)
		if err != nil {
			return int64(key), summary, err
		}
		run := output.Run{
			ID:        runID,
			Scenario:  s.Name(),
			Iteration: task.Iteration,
			Seed:      int64(key),
			Started:   started,
			Finished:  time.Now(),
			Summary:   summary,
		}
		if err := output.NewWriter(r.cfg.Format, dir).Write(ctx, run, rec); err != nil {
			return int64(key), summary, fmt.Errorf("writing output: %w", err)
		}
	}
	return int64(key), summary, nil
}
