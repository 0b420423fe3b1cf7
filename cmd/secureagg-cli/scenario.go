package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggerrors"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/driver"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/party"
	"github.com/spf13/cobra"
)

type scenario struct {
	name        string
	description string
	run         func() error
}

func runScenario(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	scenarios := map[string]scenario{
		"s1": {"S1", "N=4 t=2, no dropouts", scenarioS1},
		"s2": {"S2", "N=4 t=2, client #0 dropped between round 1 and round 2", scenarioS2},
		"s3": {"S3", "N=5 t=3, one dropout between round 2 and round 3", scenarioS3},
		"s4": {"S4", "N=2 t=2, any dropout fails", scenarioS4},
		"s5": {"S5", "N=10 t=5, two dropouts between rounds 1 and 2", scenarioS5},
	}

	if name == "all" {
		for _, key := range []string{"s1", "s2", "s3", "s4", "s5"} {
			s := scenarios[key]
			fmt.Printf("--- %s: %s ---\n", s.name, s.description)
			if err := s.run(); err != nil {
				return fmt.Errorf("%s failed: %w", s.name, err)
			}
			fmt.Println()
		}
		return nil
	}

	s, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario: %s (want s1, s2, s3, s4, s5, or all)", name)
	}
	fmt.Printf("--- %s: %s ---\n", s.name, s.description)
	return s.run()
}

func printResult(mean float64, r *driver.Run, secrets []float64) {
	reference := driver.AggregateWithoutSecrecy(secrets, r.ClientIDs(), r.Survivors())
	fmt.Printf("survivors: %d/%d\n", len(r.Survivors()), len(secrets))
	fmt.Printf("aggregate (secure):    %.6f\n", mean)
	fmt.Printf("aggregate (reference): %.6f\n", reference)
}

func scenarioS1() error {
	secrets := []float64{131070.2132, 3.14159265, -42, 6}
	r := driver.New(secrets, 2, nil)
	mean, err := r.Execute(context.Background())
	if err != nil {
		return err
	}
	printResult(mean, r, secrets)
	return nil
}

func scenarioS2() error {
	secrets := []float64{131070.2132, 3.14159265, -42, 6}
	ids := driver.New(secrets, 2, nil).ClientIDs()
	r := driver.New(secrets, 2, driver.DropoutSchedule{2: {ids[0]}})
	mean, err := r.Execute(context.Background())
	if err != nil {
		return err
	}
	printResult(mean, r, secrets)
	return nil
}

func scenarioS3() error {
	secrets := []float64{1, 2, 3, 4, 5}
	ids := driver.New(secrets, 3, nil).ClientIDs()
	r := driver.New(secrets, 3, driver.DropoutSchedule{3: {ids[0]}})
	mean, err := r.Execute(context.Background())
	if err != nil {
		if errors.Is(err, aggerrors.ErrBelowThreshold) {
			fmt.Println("result: BelowThreshold (U4 fell below threshold)")
			return nil
		}
		return err
	}
	printResult(mean, r, secrets)
	return nil
}

func scenarioS4() error {
	secrets := []float64{1, 2}
	ids := driver.New(secrets, 2, nil).ClientIDs()
	r := driver.New(secrets, 2, driver.DropoutSchedule{1: {ids[0]}})
	_, err := r.Execute(context.Background())
	if !errors.Is(err, aggerrors.ErrBelowThreshold) {
		return fmt.Errorf("expected BelowThreshold, got %v", err)
	}
	fmt.Println("result: BelowThreshold (as expected for N=t=2 with any dropout)")
	return nil
}

func scenarioS5() error {
	secrets := make([]float64, 10)
	for i := range secrets {
		secrets[i] = float64(i) + 0.5
	}
	ids := driver.New(secrets, 5, nil).ClientIDs()
	dropped := []party.ID{ids[0], ids[1]}
	r := driver.New(secrets, 5, driver.DropoutSchedule{2: dropped})
	mean, err := r.Execute(context.Background())
	if err != nil {
		return err
	}
	printResult(mean, r, secrets)
	return nil
}
