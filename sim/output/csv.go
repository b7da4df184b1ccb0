package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cervical-sim/cervical-sim/sim/record"
)

const timeLayout = time.RFC3339

// CSV file names written by CSVWriter.
const (
	StateChangesFile = "state_changes.csv"
	EventsFile       = "events.csv"
)

// CSVWriter writes one state_changes.csv and one events.csv per run directory.
// Existing files are replaced.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a writer storing files under dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// Write stores both logs. The run's identity is not written; the directory identifies it.
func (w *CSVWriter) Write(ctx context.Context, _ Run, rec *record.Recorder) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	changes := make([][]string, 0, len(rec.StateChanges)+1)
	changes = append(changes, []string{"time", "agent", "state", "from", "to"})
	for _, c := range rec.StateChanges {
		changes = append(changes, []string{
			strconv.Itoa(c.Time), strconv.Itoa(c.Agent), c.State, strconv.Itoa(c.From), strconv.Itoa(c.To),
		})
	}
	if err := writeCSV(filepath.Join(w.dir, StateChangesFile), changes); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	events := make([][]string, 0, len(rec.Events)+1)
	events = append(events, []string{"time", "agent", "event", "cost"})
	for _, ev := range rec.Events {
		events = append(events, []string{
			strconv.Itoa(ev.Time), strconv.Itoa(ev.Agent), ev.Kind.String(),
			strconv.FormatFloat(ev.Cost, 'f', -1, 64),
		})
	}
	return writeCSV(filepath.Join(w.dir, EventsFile), events)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
