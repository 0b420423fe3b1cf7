// Package aggregator implements the untrusted-but-honest coordinator: it
// never sees a client's raw secret, only collects public material, routes
// ciphertexts, and sums masked values, reconstructing dropped clients'
// masks from Shamir shares rather than from any secret it holds itself.
// Structurally this mirrors the teacher's protocol.MultiHandler driving a
// round sequence against a flat party table (pkg/protocol), collapsed into
// one struct with explicit round methods and flat ownership rather than
// the teacher's back-references between round objects.
package aggregator

import (
	"fmt"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/accumulator"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggcrypto"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggerrors"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/math/curve"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/party"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/shamir"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/wire"
)

// phase names the aggregator's strict state progression:
// Init -> R0 -> R1 -> R2 -> Done. Round3 moves straight from R2 to Done;
// phaseR3 is declared but never entered.
type phase int

const (
	phaseInit phase = iota
	phaseR0
	phaseR1
	phaseR2
	phaseR3
	phaseDone
)

// Registration is one client's round-0 submission.
type Registration struct {
	ID     party.ID
	SeedPK []byte
	EncPK  []byte
}

type peerMaterial struct {
	SeedPK *curve.Point
	EncPK  *curve.Point
}

// Aggregator coordinates one run across N clients with recovery threshold t.
type Aggregator struct {
	n int
	t int

	phase phase

	u1 party.List
	u2 party.List
	u3 party.List
	u4 party.List

	peerPublic map[party.ID]peerMaterial
	broadcast  wire.PublicKeyBroadcast

	sum accumulator.Value
}

// New constructs an aggregator for an N-party run with recovery threshold t.
func New(n, t int) *Aggregator {
	return &Aggregator{n: n, t: t, phase: phaseInit}
}

// Round0 collects every client's public keys and returns the broadcast to
// redistribute to each of them.
func (a *Aggregator) Round0(registrations []Registration) (wire.PublicKeyBroadcast, error) {
	if a.phase != phaseInit {
		return nil, fmt.Errorf("aggregator: round0 called out of sequence")
	}

	peerPublic := make(map[party.ID]peerMaterial, len(registrations))
	broadcast := make(wire.PublicKeyBroadcast, len(registrations))
	ids := make(party.List, 0, len(registrations))
	for _, reg := range registrations {
		seedPK, err := aggcrypto.ImportPublicKey(reg.SeedPK)
		if err != nil {
			return nil, fmt.Errorf("aggregator: round0: %w", err)
		}
		encPK, err := aggcrypto.ImportPublicKey(reg.EncPK)
		if err != nil {
			return nil, fmt.Errorf("aggregator: round0: %w", err)
		}
		peerPublic[reg.ID] = peerMaterial{SeedPK: seedPK, EncPK: encPK}
		broadcast[wire.PIDKey(reg.ID)] = wire.PublicKeyEntry{SeedPK: reg.SeedPK, EncPK: reg.EncPK}
		ids = append(ids, reg.ID)
	}

	a.u1 = ids.Sorted()
	a.peerPublic = peerPublic
	a.broadcast = broadcast
	a.phase = phaseR0
	return broadcast, nil
}

// Round1 accepts each still-alive client's outbound ciphertext map (sender ->
// recipient -> entry) and pivots it per recipient. A client absent from
// submissions is treated as down; U2 is exactly the set of senders present.
func (a *Aggregator) Round1(submissions map[party.ID]map[party.ID]wire.CiphertextEntry) (map[party.ID]wire.CiphertextBundle, error) {
	if a.phase != phaseR0 {
		return nil, fmt.Errorf("aggregator: round1 called out of sequence")
	}

	u2 := make(party.List, 0, len(submissions))
	for id := range submissions {
		if a.u1.Contains(id) {
			u2 = append(u2, id)
		}
	}
	u2 = u2.Sorted()
	if len(u2) < a.t {
		a.phase = phaseDone
		return nil, aggerrors.ErrBelowThreshold
	}

	bundles := make(map[party.ID]wire.CiphertextBundle, len(a.u1))
	for _, recipient := range a.u1 {
		bundles[recipient] = wire.CiphertextBundle{}
	}
	for _, sender := range u2 {
		for recipient, entry := range submissions[sender] {
			if sender.Equal(recipient) {
				continue
			}
			if _, ok := bundles[recipient]; !ok {
				continue
			}
			bundles[recipient][wire.PairKey(sender, recipient)] = entry
		}
	}

	a.u2 = u2
	a.phase = phaseR1
	return bundles, nil
}

// Round2 sums the masked values submitted by still-alive clients and
// returns U3 to distribute. A client absent from maskedValues is treated
// as down.
func (a *Aggregator) Round2(maskedValues map[party.ID]accumulator.Value) (wire.SurvivorsList, error) {
	if a.phase != phaseR1 {
		return nil, fmt.Errorf("aggregator: round2 called out of sequence")
	}

	u3 := make(party.List, 0, len(maskedValues))
	for id := range maskedValues {
		if a.u2.Contains(id) {
			u3 = append(u3, id)
		}
	}
	u3 = u3.Sorted()
	if len(u3) < a.t {
		a.phase = phaseDone
		return nil, aggerrors.ErrBelowThreshold
	}

	var sum accumulator.Value
	for _, id := range u3 {
		sum = sum.Add(maskedValues[id])
	}

	a.u3 = u3
	a.sum = sum
	a.phase = phaseR2

	survivors := make(wire.SurvivorsList, 0, len(u3))
	for _, id := range u3 {
		survivors = append(survivors, wire.PIDKey(id))
	}
	return survivors, nil
}

// Round3 collects every still-alive client's share response, reconstructs
// each dropped peer's seed private key and each surviving peer's self-mask
// seed, removes both mask families from the running sum, and returns the
// mean of the surviving secrets.
func (a *Aggregator) Round3(responses map[party.ID]wire.ShareResponse) (float64, error) {
	if a.phase != phaseR2 {
		return 0, fmt.Errorf("aggregator: round3 called out of sequence")
	}

	u4 := make(party.List, 0, len(responses))
	for id := range responses {
		if a.u3.Contains(id) {
			u4 = append(u4, id)
		}
	}
	u4 = u4.Sorted()
	if len(u4) < a.t {
		a.phase = phaseDone
		return 0, aggerrors.ErrBelowThreshold
	}
	a.u4 = u4

	u3Set := party.NewSet(a.u3...)
	dead := make(party.List, 0)
	for _, id := range a.u2 {
		if !u3Set.Contains(id) {
			dead = append(dead, id)
		}
	}

	sum := a.sum

	for _, d := range dead {
		shares := collectShares(responses, u4, d, wire.ShareKindKey)
		if len(shares) < a.t {
			a.phase = phaseDone
			return 0, aggerrors.ErrReconstructionFailed
		}
		secretScalar, err := shamir.Combine(shares)
		if err != nil {
			a.phase = phaseDone
			return 0, fmt.Errorf("%w: %v", aggerrors.ErrReconstructionFailed, err)
		}
		deadKeys := aggcrypto.ImportPrivateKey(secretScalar.Bytes())

		for _, j := range a.u3 {
			peer, ok := a.peerPublic[j]
			if !ok {
				continue
			}
			prng, err := aggcrypto.NewPairwiseMaskPRNG(deadKeys.Private, peer.SeedPK)
			if err != nil {
				a.phase = phaseDone
				return 0, fmt.Errorf("aggregator: round3: pairwise prng for dead peer %s: %w", d, err)
			}
			draw := accumulator.FromUint32(prng.Next())
			if j.Less(d) {
				sum = sum.Add(draw)
			} else {
				sum = sum.Sub(draw)
			}
		}
	}

	for _, alive := range a.u3 {
		shares := collectShares(responses, u4, alive, wire.ShareKindSeed)
		if len(shares) < a.t {
			a.phase = phaseDone
			return 0, aggerrors.ErrReconstructionFailed
		}
		seedScalar, err := shamir.Combine(shares)
		if err != nil {
			a.phase = phaseDone
			return 0, fmt.Errorf("%w: %v", aggerrors.ErrReconstructionFailed, err)
		}
		seedBytes := seedScalar.Bytes()
		selfMaskSeed := beUint32(seedBytes[len(seedBytes)-4:])

		prng, err := aggcrypto.NewSelfMaskPRNG(selfMaskSeed)
		if err != nil {
			a.phase = phaseDone
			return 0, fmt.Errorf("aggregator: round3: self-mask prng for %s: %w", alive, err)
		}
		sum = sum.Sub(accumulator.FromUint32(prng.Next()))
	}

	a.phase = phaseDone
	return sum.ToFloat() / float64(len(a.u3)), nil
}

// Survivors returns U3, the set of clients whose masked value was folded
// into the running sum, available once Round2 has completed. Callers use
// this to restrict AggregateWithoutSecrecy to the same membership Round3
// produced its result over.
func (a *Aggregator) Survivors() party.List {
	out := make(party.List, len(a.u3))
	copy(out, a.u3)
	return out
}

// AggregateWithoutSecrecy computes the plaintext mean of the given secrets
// over U3, bypassing every cryptographic step; provided for validation
// against Round3's output.
func AggregateWithoutSecrecy(secrets map[party.ID]float64, u3 party.List) float64 {
	var sum float64
	for _, id := range u3 {
		sum += secrets[id]
	}
	return sum / float64(len(u3))
}

// collectShares gathers, from every u4 respondent's share response, the
// entry addressed to target (if present and of the expected kind), keyed by
// the respondent's own share index — exactly the index the original
// Shamir polynomial was evaluated at for that respondent (pkg/client.Round1
// allocates keyShare(j)/selfSeedShare(j) at j's own rank).
func collectShares(responses map[party.ID]wire.ShareResponse, u4 party.List, target party.ID, kind wire.ShareKind) []shamir.Share {
	shares := make([]shamir.Share, 0, len(u4))
	seen := make(map[int]bool, len(u4))
	for _, reporter := range u4 {
		entry, ok := responses[reporter][wire.PIDKey(target)]
		if !ok || entry.Kind != kind {
			continue
		}
		index := int(entry.Index)
		if seen[index] {
			continue
		}
		seen[index] = true
		shares = append(shares, shamir.ShareFromBytes(index, entry.ShareBytes))
	}
	return shares
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
