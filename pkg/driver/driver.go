// Package driver sequences the four-round protocol across a fixed set of
// clients and one aggregator, simulating the synchronous transport that a
// real deployment would treat as an external collaborator (the "trivial
// loop"). Per-client round calls within a single round are independent —
// no party observes another's intermediate state within the same round —
// so this package fans them out concurrently with golang.org/x/sync/errgroup,
// the same concurrency primitive the teacher's cmd/threshold-cli benchmark
// and test harnesses build on top of for per-party goroutines.
package driver

import (
	"context"
	"fmt"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/accumulator"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggregator"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/client"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/party"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/wire"
	"golang.org/x/sync/errgroup"
)

// DropoutSchedule maps a round number (1, 2, or 3) to the set of clients
// that should be put down immediately before that round runs, simulating
// fail-stop dropout at a fixed, reproducible point in the run.
type DropoutSchedule map[int][]party.ID

// Run holds one protocol execution: N clients, a recovery threshold t, and
// the aggregator coordinating them.
type Run struct {
	n       int
	t       int
	clients []*client.Client
	byID    map[party.ID]*client.Client
	agg     *aggregator.Aggregator

	dropouts DropoutSchedule
}

// New constructs a run over the given secrets (one per client, in order),
// with recovery threshold t. Party IDs are assigned deterministically
// (IDFromUint64(1..n)) so that scenario definitions and test vectors can
// reference clients by position.
func New(secrets []float64, t int, dropouts DropoutSchedule) *Run {
	n := len(secrets)
	clients := make([]*client.Client, n)
	byID := make(map[party.ID]*client.Client, n)
	for i, secret := range secrets {
		id := party.IDFromUint64(uint64(i + 1))
		c := client.New(id, secret, n, t)
		clients[i] = c
		byID[id] = c
	}
	return &Run{
		n:        n,
		t:        t,
		clients:  clients,
		byID:     byID,
		agg:      aggregator.New(n, t),
		dropouts: dropouts,
	}
}

// ClientIDs returns the run's party IDs in construction order.
func (r *Run) ClientIDs() []party.ID {
	ids := make([]party.ID, len(r.clients))
	for i, c := range r.clients {
		ids[i] = c.ID()
	}
	return ids
}

// Survivors returns U3 as computed by the aggregator; valid only after
// Execute has run past round 2.
func (r *Run) Survivors() []party.ID {
	return r.agg.Survivors()
}

func (r *Run) applyDropouts(round int) {
	for _, id := range r.dropouts[round] {
		if c, ok := r.byID[id]; ok {
			c.PutDown()
		}
	}
}

// Execute runs all four rounds to completion and returns the aggregator's
// reconstructed mean.
func (r *Run) Execute(ctx context.Context) (float64, error) {
	registrations, err := r.round0(ctx)
	if err != nil {
		return 0, err
	}
	broadcast, err := r.agg.Round0(registrations)
	if err != nil {
		return 0, fmt.Errorf("driver: aggregator round0: %w", err)
	}
	if err := r.deliverBroadcast(ctx, broadcast); err != nil {
		return 0, err
	}

	r.applyDropouts(1)
	submissions, err := r.round1(ctx)
	if err != nil {
		return 0, err
	}
	bundles, err := r.agg.Round1(submissions)
	if err != nil {
		return 0, fmt.Errorf("driver: aggregator round1: %w", err)
	}
	if err := r.deliverCiphertexts(ctx, bundles); err != nil {
		return 0, err
	}

	r.applyDropouts(2)
	maskedValues, err := r.round2(ctx)
	if err != nil {
		return 0, err
	}
	survivors, err := r.agg.Round2(maskedValues)
	if err != nil {
		return 0, fmt.Errorf("driver: aggregator round2: %w", err)
	}
	if err := r.deliverSurvivors(ctx, survivors); err != nil {
		return 0, err
	}

	r.applyDropouts(3)
	responses, err := r.round3(ctx)
	if err != nil {
		return 0, err
	}
	mean, err := r.agg.Round3(responses)
	if err != nil {
		return 0, fmt.Errorf("driver: aggregator round3: %w", err)
	}
	return mean, nil
}

func (r *Run) round0(ctx context.Context) ([]aggregator.Registration, error) {
	registrations := make([]aggregator.Registration, len(r.clients))
	g, _ := errgroup.WithContext(ctx)
	for i, c := range r.clients {
		i, c := i, c
		g.Go(func() error {
			pk, err := c.Round0()
			if err != nil {
				return fmt.Errorf("driver: client %s round0: %w", c.ID(), err)
			}
			registrations[i] = aggregator.Registration{ID: c.ID(), SeedPK: pk.SeedPK, EncPK: pk.EncPK}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return registrations, nil
}

func (r *Run) deliverBroadcast(ctx context.Context, broadcast wire.PublicKeyBroadcast) error {
	g, _ := errgroup.WithContext(ctx)
	for _, c := range r.clients {
		c := c
		g.Go(func() error {
			if err := c.ReceiveClients(broadcast); err != nil {
				return fmt.Errorf("driver: client %s receiveClients: %w", c.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Run) round1(ctx context.Context) (map[party.ID]map[party.ID]wire.CiphertextEntry, error) {
	type outcome struct {
		id      party.ID
		payload map[party.ID]wire.CiphertextEntry
	}
	outcomes := make([]outcome, len(r.clients))
	g, _ := errgroup.WithContext(ctx)
	for i, c := range r.clients {
		i, c := i, c
		g.Go(func() error {
			if c.IsDown() {
				return nil
			}
			payload, err := c.Round1()
			if err != nil {
				return fmt.Errorf("driver: client %s round1: %w", c.ID(), err)
			}
			outcomes[i] = outcome{id: c.ID(), payload: payload}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	submissions := make(map[party.ID]map[party.ID]wire.CiphertextEntry, len(r.clients))
	for _, o := range outcomes {
		if o.payload != nil {
			submissions[o.id] = o.payload
		}
	}
	return submissions, nil
}

func (r *Run) deliverCiphertexts(ctx context.Context, bundles map[party.ID]wire.CiphertextBundle) error {
	g, _ := errgroup.WithContext(ctx)
	for _, c := range r.clients {
		c := c
		g.Go(func() error {
			if c.IsDown() {
				return nil
			}
			if err := c.ReceiveCiphertexts(bundles[c.ID()]); err != nil {
				return fmt.Errorf("driver: client %s receiveCiphertexts: %w", c.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Run) round2(ctx context.Context) (map[party.ID]accumulator.Value, error) {
	type outcome struct {
		id    party.ID
		value accumulator.Value
		down  bool
	}
	outcomes := make([]outcome, len(r.clients))
	g, _ := errgroup.WithContext(ctx)
	for i, c := range r.clients {
		i, c := i, c
		g.Go(func() error {
			if c.IsDown() {
				outcomes[i] = outcome{down: true}
				return nil
			}
			m, err := c.Round2()
			if err != nil {
				return fmt.Errorf("driver: client %s round2: %w", c.ID(), err)
			}
			outcomes[i] = outcome{id: c.ID(), value: m}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	maskedValues := make(map[party.ID]accumulator.Value, len(r.clients))
	for _, o := range outcomes {
		if !o.down {
			maskedValues[o.id] = o.value
		}
	}
	return maskedValues, nil
}

func (r *Run) deliverSurvivors(ctx context.Context, survivors wire.SurvivorsList) error {
	g, _ := errgroup.WithContext(ctx)
	for _, c := range r.clients {
		c := c
		g.Go(func() error {
			if c.IsDown() {
				return nil
			}
			if err := c.ReceiveSurvivors(survivors); err != nil {
				return fmt.Errorf("driver: client %s receiveSurvivors: %w", c.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Run) round3(ctx context.Context) (map[party.ID]wire.ShareResponse, error) {
	type outcome struct {
		id   party.ID
		resp wire.ShareResponse
		down bool
	}
	outcomes := make([]outcome, len(r.clients))
	g, _ := errgroup.WithContext(ctx)
	for i, c := range r.clients {
		i, c := i, c
		g.Go(func() error {
			if c.IsDown() {
				outcomes[i] = outcome{down: true}
				return nil
			}
			resp, err := c.Round3()
			if err != nil {
				return fmt.Errorf("driver: client %s round3: %w", c.ID(), err)
			}
			outcomes[i] = outcome{id: c.ID(), resp: resp}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	responses := make(map[party.ID]wire.ShareResponse, len(r.clients))
	for _, o := range outcomes {
		if !o.down {
			responses[o.id] = o.resp
		}
	}
	return responses, nil
}

// AggregateWithoutSecrecy computes the plaintext mean over the given
// secrets (by construction order) restricted to the ids that actually made
// it into U3 after Execute runs, for validation against Execute's result.
func AggregateWithoutSecrecy(secrets []float64, ids []party.ID, u3 []party.ID) float64 {
	byID := make(map[party.ID]float64, len(ids))
	for i, id := range ids {
		byID[id] = secrets[i]
	}
	survivors := party.List(u3)
	plain := make(map[party.ID]float64, len(survivors))
	for _, id := range survivors {
		plain[id] = byID[id]
	}
	return aggregator.AggregateWithoutSecrecy(plain, survivors)
}
