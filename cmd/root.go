package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cervical-sim/cervical-sim/sim/batch"
	"github.com/cervical-sim/cervical-sim/sim/output"
	"github.com/cervical-sim/cervical-sim/sim/scenario"
)

var (
	// CLI flags shared by run and batch
	logLevel    string // Log verbosity level
	storeEvents bool   // Record state changes and events and write them at run end
	format      string // Output format for stored events

	// CLI flags for run
	scenarioDir string // Scenario directory
	iteration   int    // Iteration number within the scenario
	seed        int64  // Seed override; the scenario seed is used when unset
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cervical-sim",
	Short: "Per-agent stochastic micro-simulation of HPV, cervical cancer, screening, and vaccination",
}

// setupLogging applies the --log flag.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runCmd executes one iteration of one scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one iteration of a scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		if scenarioDir == "" {
			logrus.Fatalf("--scenario is required")
		}
		if !output.IsValidFormat(format) {
			logrus.Fatalf("Unknown output format %q", format)
		}
		s, err := scenario.Open(scenarioDir)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		task := batch.Task{Scenario: s, Iteration: iteration}
		if cmd.Flags().Changed("seed") {
			task.Seed = &seed
		}
		cfg := batch.Config{StoreEvents: storeEvents, Format: format}
		progress := newProgress(os.Stderr)
		cfg.Progress = progress.year

		logrus.Infof("Starting scenario %s, iteration %d", s.Name(), iteration)
		res := batch.NewRunner(cfg, nil).RunOne(context.Background(), task)
		progress.finish()
		if res.Err != nil {
			logrus.Fatalf("Run failed: %v", res.Err)
		}
		printSummary(os.Stdout, res)
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.Flags().BoolVar(&storeEvents, "store-events", false, "Write state changes and events to the iteration directory")
	cmd.Flags().StringVar(&format, "format", output.FormatParquet,
		fmt.Sprintf("Output format (%s, %s, %s)", output.FormatParquet, output.FormatSQLite, output.FormatCSV))
}

// init sets up CLI flags and subcommands
func init() {
	addOutputFlags(runCmd)
	runCmd.Flags().StringVar(&scenarioDir, "scenario", "", "Scenario directory")
	runCmd.Flags().IntVar(&iteration, "iteration", 0, "Iteration number")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed override (default: scenario seed, derived per iteration)")

	rootCmd.AddCommand(runCmd)
}
