package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags.
	numParties int
	threshold  int
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "secureagg-cli",
		Short: "CLI tool for the secure aggregation protocol",
		Long: `A CLI tool for running, benchmarking, and demonstrating the
Bonawitz-style secure aggregation protocol: clients mask their values
with pairwise and self PRNG draws, the aggregator sums the masked
values, and dropped clients' masks are undone via Shamir reconstruction.`,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run one protocol execution",
		Long:  `Drive N clients and one aggregator through all four rounds over randomly generated secrets and print the reconstructed mean.`,
		RunE:  runRun,
	}

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Benchmark full protocol runs",
		Long:  `Measure wall time of complete four-round runs for the fixed 3-of-5, 5-of-9 and 7-of-11 configurations; the global -N/-t flags do not apply.`,
		RunE:  runBench,
	}

	scenarioCmd = &cobra.Command{
		Use:   "scenario",
		Short: "Run the documented end-to-end scenarios",
		Long:  `Run the fixed scenarios (no dropouts, single dropout, round-2/3 dropout, below-threshold failure, large-N dropout) and report the aggregate alongside the plaintext reference value.`,
		RunE:  runScenario,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&numParties, "parties", "N", 5, "total number of clients")
	rootCmd.PersistentFlags().IntVarP(&threshold, "threshold", "t", 3, "recovery threshold")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	runCmd.Flags().IntSliceP("drop", "d", nil, "client indices (0-based) to drop before round 2")

	benchCmd.Flags().Int("iterations", 10, "number of iterations per configuration")

	scenarioCmd.Flags().StringP("name", "s", "all", "scenario to run: s1, s2, s3, s4, s5, all")

	rootCmd.AddCommand(runCmd, benchCmd, scenarioCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
