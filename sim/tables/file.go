package tables

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/cervical-sim/cervical-sim/sim"
)

// Extension is the file extension of a table file.
const Extension = ".yaml"

type tableFile struct {
	Table   string  `yaml:"table"`
	Entries []entry `yaml:"entries"`
}

type entry struct {
	Key         []int     `yaml:"key,flow"`
	Weights     []float64 `yaml:"weights,omitempty,flow"`
	Probability *float64  `yaml:"probability,omitempty"`
}

// decodeFile strictly parses a table file and checks its name.
func decodeFile(data []byte, name string) (*tableFile, error) {
	var f tableFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s table: %w", name, err)
	}
	if f.Table != name {
		return nil, fmt.Errorf("table file declares %q, want %q", f.Table, name)
	}
	return &f, nil
}

func decodeWeights[K comparable](data []byte, table *sim.WeightTable[K], codec keyCodec[K]) error {
	f, err := decodeFile(data, table.Name)
	if err != nil {
		return err
	}
	for i, e := range f.Entries {
		key, err := codec.parse(e.Key)
		if err != nil {
			return fmt.Errorf("%s table, entry %d: %w", table.Name, i, err)
		}
		if e.Weights == nil || e.Probability != nil {
			return fmt.Errorf("%s table, entry %d: expected weights only", table.Name, i)
		}
		if _, dup := table.Entries[key]; dup {
			return fmt.Errorf("%s table, entry %d: duplicate key %v", table.Name, i, e.Key)
		}
		table.Entries[key] = e.Weights
	}
	return nil
}

func decodeProbabilities[K comparable](data []byte, table *sim.ProbabilityTable[K], codec keyCodec[K]) error {
	f, err := decodeFile(data, table.Name)
	if err != nil {
		return err
	}
	for i, e := range f.Entries {
		key, err := codec.parse(e.Key)
		if err != nil {
			return fmt.Errorf("%s table, entry %d: %w", table.Name, i, err)
		}
		if e.Probability == nil || e.Weights != nil {
			return fmt.Errorf("%s table, entry %d: expected probability only", table.Name, i)
		}
		if _, dup := table.Entries[key]; dup {
			return fmt.Errorf("%s table, entry %d: duplicate key %v", table.Name, i, e.Key)
		}
		table.Entries[key] = *e.Probability
	}
	return nil
}

func encodeWeights[K comparable](table *sim.WeightTable[K], codec keyCodec[K]) ([]byte, error) {
	f := tableFile{Table: table.Name, Entries: make([]entry, 0, len(table.Entries))}
	for k, w := range table.Entries {
		f.Entries = append(f.Entries, entry{Key: codec.encode(k), Weights: w})
	}
	return marshal(&f)
}

func encodeProbabilities[K comparable](table *sim.ProbabilityTable[K], codec keyCodec[K]) ([]byte, error) {
	f := tableFile{Table: table.Name, Entries: make([]entry, 0, len(table.Entries))}
	for k, p := range table.Entries {
		f.Entries = append(f.Entries, entry{Key: codec.encode(k), Probability: &p})
	}
	return marshal(&f)
}

// marshal writes entries in key order so that files are stable across runs.
func marshal(f *tableFile) ([]byte, error) {
	slices.SortFunc(f.Entries, func(a, b entry) int { return slices.Compare(a.Key, b.Key) })
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(f); err != nil {
		return nil, fmt.Errorf("encoding %s table: %w", f.Table, err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transition table: %w", err)
	}
	return data, nil
}
