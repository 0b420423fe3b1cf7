package aggregator_test

import (
	"testing"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/accumulator"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggerrors"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggregator"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/client"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/party"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run drives n clients and one aggregator through all four rounds.
// dropBeforeRound maps a client index to the round number (1, 2, or 3) it
// is put down immediately before, simulating a fail-stop dropout between
// the previous round and that one; absent entries never drop. It returns
// the aggregator's Round3 result alongside the plaintext mean over the
// clients that actually made it into U3, for comparison.
func run(t *testing.T, n, threshold int, secrets []float64, dropBeforeRound map[int]int) (float64, float64) {
	t.Helper()
	require.Len(t, secrets, n)

	clients := make([]*client.Client, n)
	ids := make([]party.ID, n)
	for i := 0; i < n; i++ {
		ids[i] = party.IDFromUint64(uint64(i + 1))
		clients[i] = client.New(ids[i], secrets[i], n, threshold)
	}
	agg := aggregator.New(n, threshold)

	// Round 0.
	registrations := make([]aggregator.Registration, 0, n)
	for i, c := range clients {
		pk, err := c.Round0()
		require.NoError(t, err)
		registrations = append(registrations, aggregator.Registration{ID: ids[i], SeedPK: pk.SeedPK, EncPK: pk.EncPK})
	}
	broadcast, err := agg.Round0(registrations)
	require.NoError(t, err)
	for _, c := range clients {
		require.NoError(t, c.ReceiveClients(broadcast))
	}

	applyDropouts(clients, dropBeforeRound, 1)

	// Round 1.
	submissions := make(map[party.ID]map[party.ID]wire.CiphertextEntry)
	for _, c := range clients {
		if c.IsDown() {
			continue
		}
		out, err := c.Round1()
		require.NoError(t, err)
		submissions[c.ID()] = out
	}
	bundles, err := agg.Round1(submissions)
	if err != nil {
		return 0, 0
	}
	for _, c := range clients {
		if c.IsDown() {
			continue
		}
		require.NoError(t, c.ReceiveCiphertexts(bundles[c.ID()]))
	}

	applyDropouts(clients, dropBeforeRound, 2)

	// Round 2.
	maskedValues := make(map[party.ID]accumulator.Value)
	for _, c := range clients {
		if c.IsDown() {
			continue
		}
		m, err := c.Round2()
		require.NoError(t, err)
		maskedValues[c.ID()] = m
	}
	survivors, err := agg.Round2(maskedValues)
	if err != nil {
		return 0, 0
	}
	for _, c := range clients {
		if c.IsDown() {
			continue
		}
		require.NoError(t, c.ReceiveSurvivors(survivors))
	}

	applyDropouts(clients, dropBeforeRound, 3)

	// Round 3.
	responses := make(map[party.ID]wire.ShareResponse)
	aliveSecrets := make(map[party.ID]float64)
	var survivorIDs party.List
	for _, key := range survivors {
		id, err := wire.ParsePIDKey(key)
		require.NoError(t, err)
		survivorIDs = append(survivorIDs, id)
		aliveSecrets[id] = secretFor(id, ids, secrets)
	}
	for _, c := range clients {
		if c.IsDown() {
			continue
		}
		resp, err := c.Round3()
		require.NoError(t, err)
		responses[c.ID()] = resp
	}

	result, err := agg.Round3(responses)
	require.NoError(t, err)

	expected := aggregator.AggregateWithoutSecrecy(aliveSecrets, survivorIDs)
	return result, expected
}

func secretFor(id party.ID, ids []party.ID, secrets []float64) float64 {
	for i, candidate := range ids {
		if candidate.Equal(id) {
			return secrets[i]
		}
	}
	return 0
}

func applyDropouts(clients []*client.Client, dropBeforeRound map[int]int, round int) {
	for idx, r := range dropBeforeRound {
		if r == round {
			clients[idx].PutDown()
		}
	}
}

func TestAggregateNoDropouts(t *testing.T) {
	secrets := []float64{131070.2132, 3.14159265, -42, 6}
	result, expected := run(t, 4, 2, secrets, nil)
	assert.InDelta(t, expected, result, 1e-4)
}

func TestAggregateSingleDropoutAfterRound1(t *testing.T) {
	secrets := []float64{131070.2132, 3.14159265, -42, 6}
	result, expected := run(t, 4, 2, secrets, map[int]int{0: 2})
	assert.InDelta(t, expected, result, 1e-4)
}

func TestAggregateDropoutBelowThresholdFails(t *testing.T) {
	secrets := []float64{1, 2}
	clients := make([]*client.Client, 2)
	ids := make([]party.ID, 2)
	for i := 0; i < 2; i++ {
		ids[i] = party.IDFromUint64(uint64(i + 1))
		clients[i] = client.New(ids[i], secrets[i], 2, 2)
	}
	agg := aggregator.New(2, 2)

	registrations := make([]aggregator.Registration, 0, 2)
	for i, c := range clients {
		pk, err := c.Round0()
		require.NoError(t, err)
		registrations = append(registrations, aggregator.Registration{ID: ids[i], SeedPK: pk.SeedPK, EncPK: pk.EncPK})
	}
	broadcast, err := agg.Round0(registrations)
	require.NoError(t, err)
	for _, c := range clients {
		require.NoError(t, c.ReceiveClients(broadcast))
	}

	clients[0].PutDown()
	submissions := make(map[party.ID]map[party.ID]wire.CiphertextEntry)
	out, err := clients[1].Round1()
	require.NoError(t, err)
	submissions[clients[1].ID()] = out

	_, err = agg.Round1(submissions)
	assert.ErrorIs(t, err, aggerrors.ErrBelowThreshold)
}

func TestAggregateTwoDropoutsBeforeRound2Reconstructs(t *testing.T) {
	secrets := make([]float64, 10)
	for i := range secrets {
		secrets[i] = float64(i) + 0.5
	}
	result, expected := run(t, 10, 5, secrets, map[int]int{0: 2, 1: 2})
	assert.InDelta(t, expected, result, 1e-4)
}
