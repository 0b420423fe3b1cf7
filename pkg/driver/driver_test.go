package driver_test

import (
	"context"
	"testing"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggerrors"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioS1NoDropouts runs a full four-round session with no dropouts
// and checks the reconstructed mean against the plaintext mean.
func TestScenarioS1NoDropouts(t *testing.T) {
	secrets := []float64{131070.2132, 3.14159265, -42, 6}
	run := driver.New(secrets, 2, nil)

	mean, err := run.Execute(context.Background())
	require.NoError(t, err)

	expected := driver.AggregateWithoutSecrecy(secrets, run.ClientIDs(), run.Survivors())
	assert.InDelta(t, expected, mean, 1e-4)
	assert.InDelta(t, 32759.339, mean, 1e-2)
}

// TestScenarioS2DropoutBetweenRound1And2 drops one client between round 1
// and round 2 and checks the run still reconstructs the correct mean over
// the survivors.
func TestScenarioS2DropoutBetweenRound1And2(t *testing.T) {
	secrets := []float64{131070.2132, 3.14159265, -42, 6}
	dropped := (driver.New(secrets, 2, nil)).ClientIDs()[0]
	run := driver.New(secrets, 2, driver.DropoutSchedule{2: {dropped}})

	mean, err := run.Execute(context.Background())
	require.NoError(t, err)

	expected := driver.AggregateWithoutSecrecy(secrets, run.ClientIDs(), run.Survivors())
	assert.InDelta(t, expected, mean, 1e-4)
	assert.InDelta(t, -10.9528, mean, 1e-2)
}

// TestScenarioS4TwoPartyAnyDropoutFails checks that with n=2, t=2, a
// dropout before round 1 takes the surviving set below threshold and aborts
// the run (internal/e2e covers a dropout before each of rounds 1 to 3).
func TestScenarioS4TwoPartyAnyDropoutFails(t *testing.T) {
	secrets := []float64{1, 2}
	ids := (driver.New(secrets, 2, nil)).ClientIDs()
	run := driver.New(secrets, 2, driver.DropoutSchedule{1: {ids[0]}})

	_, err := run.Execute(context.Background())
	assert.ErrorIs(t, err, aggerrors.ErrBelowThreshold)
}

// TestScenarioS5TwoDropoutsOfTen drops two of ten clients and checks the
// run still reconstructs the correct mean over the eight survivors.
func TestScenarioS5TwoDropoutsOfTen(t *testing.T) {
	secrets := make([]float64, 10)
	for i := range secrets {
		secrets[i] = float64(i) + 0.5
	}
	ids := (driver.New(secrets, 5, nil)).ClientIDs()
	run := driver.New(secrets, 5, driver.DropoutSchedule{2: {ids[0], ids[1]}})

	mean, err := run.Execute(context.Background())
	require.NoError(t, err)

	expected := driver.AggregateWithoutSecrecy(secrets, run.ClientIDs(), run.Survivors())
	assert.InDelta(t, expected, mean, 1e-4)
	assert.Len(t, run.Survivors(), 8)
}

// TestScenarioS6IdempotentReruns checks that two independent runs over the
// same inputs — each drawing its own fresh key material from crypto/rand —
// still reconstruct the same mean: the masking and reconstruction math does
// not depend on which randomness happened to be drawn. This run-level
// driver fans per-client round calls out concurrently, so it cannot itself
// exercise byte-for-byte transcript determinism (concurrent reads from a
// shared reader would race); that stronger property — same seeded reader,
// byte-identical ciphertext bundles and summed value across two serial
// runs — is exercised directly in pkg/client's determinism test.
func TestScenarioS6IdempotentReruns(t *testing.T) {
	secrets := []float64{131070.2132, 3.14159265, -42, 6}

	run1 := driver.New(secrets, 2, nil)
	mean1, err := run1.Execute(context.Background())
	require.NoError(t, err)

	run2 := driver.New(secrets, 2, nil)
	mean2, err := run2.Execute(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, mean1, mean2, 1e-9)
}
