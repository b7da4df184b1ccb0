// Package scenario resolves the on-disk layout of a scenario:
//
//	<scenario>/parameters.yml
//	<scenario>/transition_dictionaries/<table>.yaml
//	<scenario>/iteration_<n>/transition_dictionaries/   (optional override)
//	<scenario>/iteration_<n>/                            (run output)
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/cervical-sim/cervical-sim/sim"
	"github.com/cervical-sim/cervical-sim/sim/tables"
)

// Layout names.
const (
	ParametersFile = "parameters.yml"
	TablesDir      = "transition_dictionaries"
)

// Scenario is a directory holding parameters, transition tables, and run outputs.
type Scenario struct {
	Dir string
}

// Open returns the scenario rooted at dir, which must exist.
func Open(dir string) (*Scenario, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening scenario: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening scenario: %s is not a directory", dir)
	}
	return &Scenario{Dir: dir}, nil
}

// Name returns the scenario's directory name.
func (s *Scenario) Name() string {
	return filepath.Base(s.Dir)
}

// ParametersPath returns the scenario's parameter file.
func (s *Scenario) ParametersPath() string {
	return filepath.Join(s.Dir, ParametersFile)
}

// IterationDir returns the output directory of an iteration.
func (s *Scenario) IterationDir(iteration int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("iteration_%d", iteration))
}

// PrepareIteration creates the iteration's output directory.
func (s *Scenario) PrepareIteration(iteration int) (string, error) {
	dir := s.IterationDir(iteration)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating iteration directory: %w", err)
	}
	return dir, nil
}

// TablesDir returns the table directory for an iteration: the iteration's own
// transition_dictionaries when present, otherwise the scenario's.
func (s *Scenario) TablesDir(iteration int) string {
	override := filepath.Join(s.IterationDir(iteration), TablesDir)
	if info, err := os.Stat(override); err == nil && info.IsDir() {
		return override
	}
	return filepath.Join(s.Dir, TablesDir)
}

// LoadParameters reads the scenario's parameters on top of the defaults.
// A missing parameter file yields the defaults.
func (s *Scenario) LoadParameters() (*sim.Parameters, error) {
	return sim.LoadParameters(s.ParametersPath())
}

// LoadTables reads the transition tables used by an iteration.
func (s *Scenario) LoadTables(iteration int) (*sim.Tables, error) {
	dir := s.TablesDir(iteration)
	logrus.Debugf("Using transition tables from %s", dir)
	t, err := tables.NewLoader(dir).Load()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name(), err)
	}
	return t, nil
}

// ErrExists is returned by Scaffold when the target already holds a parameter file.
var ErrExists = errors.New("scenario already exists")

// Scaffold writes a runnable scenario: params exported as parameters.yml and tables
// generated from rates for every age the run can reach.
func Scaffold(dir string, params *sim.Parameters, rates sim.TableRates) (*Scenario, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(dir, ParametersFile)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating scenario: %w", err)
	}
	s := &Scenario{Dir: dir}
	if err := params.Export(s.ParametersPath()); err != nil {
		return nil, err
	}
	maxAge := params.InitialAge + params.NumSteps/params.StepsPerYear + 1
	generated := sim.GenerateTables(params.InitialAge, maxAge, rates)
	if err := tables.Write(filepath.Join(dir, TablesDir), generated); err != nil {
		return nil, err
	}
	return s, nil
}
