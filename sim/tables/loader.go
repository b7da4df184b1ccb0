package tables

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/cervical-sim/cervical-sim/sim"
)

var _ sim.TableLoader = (*Loader)(nil)

// Loader reads the five transition tables from a directory.
type Loader struct {
	Dir string
}

// NewLoader creates a Loader for dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// Path returns the file holding the named table.
func (l *Loader) Path(name string) string {
	return filepath.Join(l.Dir, name+Extension)
}

// Load reads and validates every table.
func (l *Loader) Load() (*sim.Tables, error) {
	t := sim.NewTables()
	steps := []struct {
		name   string
		decode func([]byte) error
	}{
		{sim.TableLife, func(b []byte) error { return decodeWeights(b, t.Life, lifeKeys) }},
		{sim.TableHIV, func(b []byte) error { return decodeProbabilities(b, t.HIV, hivKeys) }},
		{sim.TableHPV, func(b []byte) error { return decodeWeights(b, t.HPV, hpvKeys) }},
		{sim.TableCancer, func(b []byte) error { return decodeWeights(b, t.Cancer, cancerKeys) }},
		{sim.TableCancerDetection, func(b []byte) error {
			return decodeProbabilities(b, t.CancerDetection, cancerDetectionKeys)
		}},
	}
	for _, s := range steps {
		data, err := readFile(l.Path(s.name))
		if err != nil {
			return nil, err
		}
		if err := s.decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", l.Path(s.name), err)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	logrus.Debugf("Loaded transition tables from %s: %d life, %d hiv, %d hpv, %d cancer, %d detection entries",
		l.Dir, len(t.Life.Entries), len(t.HIV.Entries), len(t.HPV.Entries),
		len(t.Cancer.Entries), len(t.CancerDetection.Entries))
	return t, nil
}

// Write stores every table under dir, creating it if needed.
func Write(dir string, t *sim.Tables) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating table directory: %w", err)
	}
	steps := []struct {
		name   string
		encode func() ([]byte, error)
	}{
		{sim.TableLife, func() ([]byte, error) { return encodeWeights(t.Life, lifeKeys) }},
		{sim.TableHIV, func() ([]byte, error) { return encodeProbabilities(t.HIV, hivKeys) }},
		{sim.TableHPV, func() ([]byte, error) { return encodeWeights(t.HPV, hpvKeys) }},
		{sim.TableCancer, func() ([]byte, error) { return encodeWeights(t.Cancer, cancerKeys) }},
		{sim.TableCancerDetection, func() ([]byte, error) {
			return encodeProbabilities(t.CancerDetection, cancerDetectionKeys)
		}},
	}
	loader := NewLoader(dir)
	for _, s := range steps {
		data, err := s.encode()
		if err != nil {
			return err
		}
		if err := os.WriteFile(loader.Path(s.name), data, 0o644); err != nil {
			return fmt.Errorf("writing %s table: %w", s.name, err)
		}
	}
	return nil
}
