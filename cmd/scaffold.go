package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cervical-sim/cervical-sim/sim"
	"github.com/cervical-sim/cervical-sim/sim/scenario"
)

var (
	// CLI flags for scaffold
	scaffoldAgents   int    // Cohort size written to parameters.yml
	scaffoldSteps    int    // Months to simulate
	scaffoldProtocol string // Screening protocol written to parameters.yml
)

// scaffoldCmd writes a runnable scenario with default parameters and generated tables
var scaffoldCmd = &cobra.Command{
	Use:   "scaffold DIR",
	Short: "Create a runnable scenario directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		params := sim.DefaultParameters()
		params.NumAgents = scaffoldAgents
		params.NumSteps = scaffoldSteps
		params.Screening.Protocol = scaffoldProtocol
		s, err := scenario.Scaffold(args[0], params, sim.DefaultTableRates())
		if err != nil {
			logrus.Fatalf("Scaffold failed: %v", err)
		}
		fmt.Fprintf(os.Stdout, "Created scenario %s\n", s.Dir)
	},
}

func init() {
	scaffoldCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	scaffoldCmd.Flags().IntVar(&scaffoldAgents, "agents", sim.DefaultParameters().NumAgents, "Number of agents")
	scaffoldCmd.Flags().IntVar(&scaffoldSteps, "steps", sim.DefaultParameters().NumSteps, "Months to simulate")
	scaffoldCmd.Flags().StringVar(&scaffoldProtocol, "protocol", "none", "Screening protocol")

	rootCmd.AddCommand(scaffoldCmd)
}
