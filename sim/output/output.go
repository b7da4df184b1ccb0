// Package output materializes a run's state-change and event logs once the run ends.
package output

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cervical-sim/cervical-sim/sim"
	"github.com/cervical-sim/cervical-sim/sim/record"
)

// Format names accepted by NewWriter.
const (
	FormatParquet = "parquet"
	FormatSQLite  = "sqlite"
	FormatCSV     = "csv"
)

// ValidFormats is the set of recognized output formats.
var ValidFormats = map[string]bool{
	FormatParquet: true,
	FormatSQLite:  true,
	FormatCSV:     true,
}

// IsValidFormat reports whether name is a recognized output format.
func IsValidFormat(name string) bool {
	return ValidFormats[name]
}

// Run identifies one model run and carries its end-of-run summary.
type Run struct {
	ID        uuid.UUID
	Scenario  string
	Iteration int
	Seed      int64
	Started   time.Time
	Finished  time.Time
	Summary   sim.Summary
}

// Writer stores the logs of a finished run.
type Writer interface {
	Write(ctx context.Context, run Run, rec *record.Recorder) error
}

// NewWriter creates a writer of the given format storing files under dir.
// Panics on unrecognized formats; callers validate the name first.
func NewWriter(format, dir string) Writer {
	switch format {
	case FormatParquet:
		return NewParquetWriter(dir)
	case FormatSQLite:
		return NewSQLiteWriter(filepath.Join(dir, "output.db"))
	case FormatCSV:
		return NewCSVWriter(dir)
	default:
		panic(fmt.Sprintf("unhandled output format %q", format))
	}
}
