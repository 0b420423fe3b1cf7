package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/driver"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/party"
	"github.com/spf13/cobra"
)

func runRun(cmd *cobra.Command, args []string) error {
	dropIdx, err := cmd.Flags().GetIntSlice("drop")
	if err != nil {
		return err
	}

	secrets := randomSecrets(numParties)
	r := driver.New(secrets, threshold, nil)

	if len(dropIdx) > 0 {
		ids := r.ClientIDs()
		dropped := make([]party.ID, 0, len(dropIdx))
		for _, i := range dropIdx {
			if i < 0 || i >= len(ids) {
				return fmt.Errorf("drop index %d out of range [0,%d)", i, len(ids))
			}
			dropped = append(dropped, ids[i])
		}
		r = driver.New(secrets, threshold, driver.DropoutSchedule{2: dropped})
	}

	if verbose {
		fmt.Printf("running N=%d t=%d secrets=%v\n", numParties, threshold, secrets)
	}

	mean, err := r.Execute(context.Background())
	if err != nil {
		return fmt.Errorf("protocol run failed: %w", err)
	}

	reference := driver.AggregateWithoutSecrecy(secrets, r.ClientIDs(), r.Survivors())
	fmt.Printf("survivors: %d/%d\n", len(r.Survivors()), numParties)
	fmt.Printf("aggregate (secure):  %.6f\n", mean)
	fmt.Printf("aggregate (plaintext reference): %.6f\n", reference)
	return nil
}

// randomSecrets draws n uniform values in [-1000, 1000) from crypto/rand,
// matching the fixed-point range the accumulator package is built for.
func randomSecrets(n int) []float64 {
	secrets := make([]float64, n)
	var buf [8]byte
	for i := range secrets {
		rand.Read(buf[:])
		u := binary.BigEndian.Uint64(buf[:])
		frac := float64(u) / float64(1<<64)
		secrets[i] = frac*2000 - 1000
	}
	return secrets
}
