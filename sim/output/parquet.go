package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/cervical-sim/cervical-sim/sim/record"
)

// Parquet file names written by ParquetWriter.
const (
	ParquetStateChangesFile = "state_changes.parquet"
	ParquetEventsFile       = "events.parquet"
)

// StateChangeRow is the columnar layout of one state change.
type StateChangeRow struct {
	Time  int64  `parquet:"time"`
	Agent int64  `parquet:"agent"`
	State string `parquet:"state,dict"`
	From  int64  `parquet:"from"`
	To    int64  `parquet:"to"`
}

// EventRow is the columnar layout of one cost event.
type EventRow struct {
	Time  int64   `parquet:"time"`
	Agent int64   `parquet:"agent"`
	Event string  `parquet:"event,dict"`
	Cost  float64 `parquet:"cost"`
}

// ParquetWriter writes state_changes.parquet and events.parquet per run directory.
// Existing files are replaced.
type ParquetWriter struct {
	dir string
}

// NewParquetWriter creates a writer storing files under dir.
func NewParquetWriter(dir string) *ParquetWriter {
	return &ParquetWriter{dir: dir}
}

// Write stores both logs. The run's identity is not written; the directory identifies it.
func (w *ParquetWriter) Write(ctx context.Context, _ Run, rec *record.Recorder) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	changes := make([]StateChangeRow, len(rec.StateChanges))
	for i, c := range rec.StateChanges {
		changes[i] = StateChangeRow{
			Time:  int64(c.Time),
			Agent: int64(c.Agent),
			State: c.State,
			From:  int64(c.From),
			To:    int64(c.To),
		}
	}
	path := filepath.Join(w.dir, ParquetStateChangesFile)
	if err := parquet.WriteFile(path, changes); err != nil {
		return fmt.Errorf("writing %s: %w", ParquetStateChangesFile, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	events := make([]EventRow, len(rec.Events))
	for i, ev := range rec.Events {
		events[i] = EventRow{
			Time:  int64(ev.Time),
			Agent: int64(ev.Agent),
			Event: ev.Kind.String(),
			Cost:  ev.Cost,
		}
	}
	path = filepath.Join(w.dir, ParquetEventsFile)
	if err := parquet.WriteFile(path, events); err != nil {
		return fmt.Errorf("writing %s: %w", ParquetEventsFile, err)
	}
	return nil
}

// ReadStateChanges loads a state_changes.parquet file.
func ReadStateChanges(path string) ([]StateChangeRow, error) {
	return parquet.ReadFile[StateChangeRow](path)
}

// ReadEvents loads an events.parquet file.
func ReadEvents(path string) ([]EventRow, error) {
	return parquet.ReadFile[EventRow](path)
}
