// Command aimsim runs the intersection-management microsimulator from a
// scenario file, promoting the teacher's flag-parsing entrypoint to a cobra
// CLI with "run" and "validate" subcommands.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"aimsim/config"
	"aimsim/report"
	"aimsim/simulator"
)

var (
	scenarioPath string
	configPath   string
	logLevel     string
)

func main() {
	root := &cobra.Command{
		Use:           "aimsim",
		Short:         "Autonomous intersection management microsimulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("aimsim: invalid log level %q: %w", logLevel, err)
			}
			logrus.SetLevel(level)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "path to the scenario YAML file (required)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the tuning-parameter YAML file (required)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "logrus level: debug, info, warn, error")

	root.AddCommand(runCmd())
	root.AddCommand(validateCmd())

	if err := root.Execute(); err != nil {
		logrus.WithField("component", "cmd").Error(err)
		os.Exit(2)
	}
}

func runCmd() *cobra.Command {
	var steps int64
	var seed int64
	var reportPath string
	var console bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Construct a simulator from a scenario and step it to completion or a step budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scenarioPath == "" || configPath == "" {
				return fmt.Errorf("aimsim: --scenario and --config are required")
			}
			scenario, err := config.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			rng := rand.New(rand.NewSource(seed))

			sim, err := simulator.New(scenario, configPath, nil, rng)
			if err != nil {
				return fmt.Errorf("aimsim: constructing simulator: %w", err)
			}
			logrus.WithFields(logrus.Fields{"component": "cmd", "run_id": sim.RunID, "seed": seed}).Info("simulator constructed")

			if steps <= 0 {
				return fmt.Errorf("aimsim: --steps must be positive")
			}
			for i := int64(0); i < steps; i++ {
				if err := sim.Step(); err != nil {
					return fmt.Errorf("aimsim: step %d: %w", sim.Now(), err)
				}
			}

			entries := sim.FetchLog()
			if reportPath != "" {
				outPath, err := report.WriteCSVReport(reportPath, entries)
				if err != nil {
					return fmt.Errorf("aimsim: writing report: %w", err)
				}
				logrus.WithFields(logrus.Fields{"component": "cmd", "path": outPath}).Info("report written")
			}
			if console || reportPath == "" {
				report.PrintConsoleReport(entries)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&steps, "steps", 1000, "number of timesteps to run")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks a time-based seed)")
	cmd.Flags().StringVar(&reportPath, "report", "", "if set, write a CSV report to this file or directory (timestamp appended)")
	cmd.Flags().BoolVar(&console, "console", false, "also print the console summary when --report is set")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a scenario and config without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scenarioPath == "" || configPath == "" {
				return fmt.Errorf("aimsim: --scenario and --config are required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			scenario, err := config.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			if err := scenario.Validate(cfg); err != nil {
				return err
			}
			fmt.Println("scenario valid")
			return nil
		},
	}
}
