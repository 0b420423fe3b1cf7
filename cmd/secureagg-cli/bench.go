package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/driver"
	"github.com/spf13/cobra"
)

func runBench(cmd *cobra.Command, args []string) error {
	iterations, err := cmd.Flags().GetInt("iterations")
	if err != nil {
		return err
	}

	testCases := []struct {
		name string
		n    int
		t    int
	}{
		{"3-of-5", 5, 3},
		{"5-of-9", 9, 5},
		{"7-of-11", 11, 7},
	}

	fmt.Printf("\n=== Full-run benchmark ===\n")
	for _, tc := range testCases {
		fmt.Printf("\nTesting %s:\n", tc.name)

		var totalTime time.Duration
		minTime := time.Hour
		var maxTime time.Duration

		for i := 0; i < iterations; i++ {
			secrets := randomSecrets(tc.n)
			r := driver.New(secrets, tc.t, nil)

			start := time.Now()
			if _, err := r.Execute(context.Background()); err != nil {
				return fmt.Errorf("bench run failed: %w", err)
			}
			elapsed := time.Since(start)

			totalTime += elapsed
			if elapsed < minTime {
				minTime = elapsed
			}
			if elapsed > maxTime {
				maxTime = elapsed
			}
		}

		avgTime := totalTime / time.Duration(iterations)
		fmt.Printf("  Average: %v\n", avgTime)
		fmt.Printf("  Min:     %v\n", minTime)
		fmt.Printf("  Max:     %v\n", maxTime)
		fmt.Printf("  Total:   %v\n", totalTime)
	}

	return nil
}
