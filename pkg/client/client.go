// Package client implements the per-participant state machine: one client
// holds a private secret value and four round methods that must be called
// in sequence, matching the teacher's round-object style
// (protocols/lss/sign/round1.go..round3.go) but collapsed into a single
// struct with explicit phase methods rather than a chain of round types,
// since a flat, message-passing shape fits a star-shaped client/aggregator
// topology better than the teacher's cyclic peer-to-peer round objects.
package client

import (
	"fmt"
	"io"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/accumulator"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggcrypto"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggerrors"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/math/curve"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/party"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/shamir"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/wire"
)

// PublicKeys is round0's output: the pair of public keys a client exposes to
// the aggregator, its seed public key and its encryption public key.
type PublicKeys struct {
	SeedPK []byte
	EncPK  []byte
}

// peerMaterial is the public half of a peer's round-0 key pairs, kept as an
// immutable-by-value snapshot rather than a pointer back to a live peer
// object.
type peerMaterial struct {
	SeedPK *curve.Point
	EncPK  *curve.Point
}

// Client is one participant in a run. Its exported methods correspond
// one-to-one with the protocol's per-round client operations; method
// receivers are pointers because each round mutates durable per-run state.
type Client struct {
	id     party.ID
	secret float64
	n      int
	t      int

	seedKeys *aggcrypto.KeyPair
	encKeys  *aggcrypto.KeyPair

	down bool

	u1         party.List
	peerPublic map[party.ID]peerMaterial
	sessionID  [aggcrypto.SessionIDSize]byte

	selfMaskSeed   uint32
	ownIndex       int
	keyShares      map[int]shamir.Share
	selfSeedShares map[int]shamir.Share

	u2Local party.Set
	inbound map[party.ID]aggcrypto.Ciphertext

	u3Local party.List

	maskedValue accumulator.Value
}

// New constructs a client holding secret, configured for an N-party run with
// recovery threshold t. No cryptographic material exists yet; Round0
// generates it.
func New(id party.ID, secret float64, n, t int) *Client {
	return &Client{id: id, secret: secret, n: n, t: t}
}

// ID returns the client's party identifier.
func (c *Client) ID() party.ID { return c.id }

// IsDown reports whether PutDown has been called.
func (c *Client) IsDown() bool { return c.down }

// MaskedValue returns the value Round2 computed, for driver bookkeeping and
// tests.
func (c *Client) MaskedValue() accumulator.Value { return c.maskedValue }

// SelfMaskSeed returns the 32-bit seed Round1 sampled for this client's
// self-mask, useful for tests and diagnostics that want to verify
// cancellation properties directly rather than only through the aggregator's
// reconstruction path.
func (c *Client) SelfMaskSeed() uint32 { return c.selfMaskSeed }

// PutDown marks the client fail-stop. Once down, a client never comes back
// up, and every subsequent round call is a no-op.
func (c *Client) PutDown() {
	c.down = true
}

// Round0 generates the client's two ECDH key pairs and returns the public
// halves to broadcast.
func (c *Client) Round0() (PublicKeys, error) {
	if c.down {
		return PublicKeys{}, nil
	}
	seedKP, err := aggcrypto.GenerateKeyPair(aggcrypto.RandomReader)
	if err != nil {
		return PublicKeys{}, fmt.Errorf("client %s: round0: %w", c.id, err)
	}
	encKP, err := aggcrypto.GenerateKeyPair(aggcrypto.RandomReader)
	if err != nil {
		return PublicKeys{}, fmt.Errorf("client %s: round0: %w", c.id, err)
	}
	c.seedKeys = seedKP
	c.encKeys = encKP
	return PublicKeys{SeedPK: seedKP.ExportPublicKey(), EncPK: encKP.ExportPublicKey()}, nil
}

// ReceiveClients accepts the aggregator's round-0 broadcast of every peer's
// public keys, establishing the client's local U1.
func (c *Client) ReceiveClients(broadcast wire.PublicKeyBroadcast) error {
	if c.down {
		return nil
	}
	if len(broadcast) < c.t {
		return aggerrors.ErrTooFewClients
	}

	peerPublic := make(map[party.ID]peerMaterial, len(broadcast))
	ids := make(party.List, 0, len(broadcast))
	members := make([]aggcrypto.SessionMember, 0, len(broadcast))
	seenSeedPK := make(map[string]party.ID, len(broadcast))
	seenEncPK := make(map[string]party.ID, len(broadcast))

	for key, entry := range broadcast {
		id, err := wire.ParsePIDKey(key)
		if err != nil {
			return fmt.Errorf("client %s: round0 broadcast: %w", c.id, err)
		}
		seedPK, err := aggcrypto.ImportPublicKey(entry.SeedPK)
		if err != nil {
			return fmt.Errorf("client %s: round0 broadcast: %w", c.id, err)
		}
		encPK, err := aggcrypto.ImportPublicKey(entry.EncPK)
		if err != nil {
			return fmt.Errorf("client %s: round0 broadcast: %w", c.id, err)
		}

		if other, dup := seenSeedPK[string(entry.SeedPK)]; dup && !other.Equal(id) {
			return aggerrors.ErrKeyCollision
		}
		if other, dup := seenEncPK[string(entry.EncPK)]; dup && !other.Equal(id) {
			return aggerrors.ErrKeyCollision
		}
		seenSeedPK[string(entry.SeedPK)] = id
		seenEncPK[string(entry.EncPK)] = id

		peerPublic[id] = peerMaterial{SeedPK: seedPK, EncPK: encPK}
		ids = append(ids, id)
		members = append(members, aggcrypto.SessionMember{ID: id, SeedPK: entry.SeedPK, EncPK: entry.EncPK})
	}

	c.u1 = ids.Sorted()
	c.peerPublic = peerPublic
	c.sessionID = aggcrypto.DeriveSessionID(members)

	if idx, ok := c.u1.Index(c.id); ok {
		c.ownIndex = idx
	}
	return nil
}

// Round1 samples the self-mask seed, Shamir-splits both secrets, and
// produces the outbound ciphertext for every peer. The returned map is
// keyed by recipient; the aggregator pivots these into the wire ciphertext
// bundle.
func (c *Client) Round1() (map[party.ID]wire.CiphertextEntry, error) {
	if c.down {
		return nil, nil
	}

	var seedBuf [4]byte
	if err := randomUint32(seedBuf[:]); err != nil {
		return nil, fmt.Errorf("client %s: round1: %w", c.id, err)
	}
	c.selfMaskSeed = beUint32(seedBuf[:])

	keyShares, err := shamir.Split(aggcrypto.RandomReader, c.seedKeys.ExportPrivate(), c.t, c.n)
	if err != nil {
		return nil, fmt.Errorf("client %s: round1: split key: %w", c.id, err)
	}
	selfSeedShares, err := shamir.Split(aggcrypto.RandomReader, seedBuf[:], c.t, c.n)
	if err != nil {
		return nil, fmt.Errorf("client %s: round1: split seed: %w", c.id, err)
	}

	c.keyShares = make(map[int]shamir.Share, len(keyShares))
	for _, s := range keyShares {
		c.keyShares[s.Index] = s
	}
	c.selfSeedShares = make(map[int]shamir.Share, len(selfSeedShares))
	for _, s := range selfSeedShares {
		c.selfSeedShares[s.Index] = s
	}

	outbound := make(map[party.ID]wire.CiphertextEntry, len(c.u1)-1)
	for _, j := range c.u1 {
		if j.Equal(c.id) {
			continue
		}
		peerIndex, ok := c.u1.Index(j)
		if !ok {
			continue
		}
		plaintext := encodeSharePlaintext(sharePlaintext{
			Sender:    c.id,
			Recipient: j,
			KeyShare:  c.keyShares[peerIndex].Bytes(),
			SeedShare: c.selfSeedShares[peerIndex].Bytes(),
			Index:     peerIndex,
		})

		aesKey, err := aggcrypto.PairwiseAESKey(c.encKeys.Private, c.peerPublic[j].EncPK)
		if err != nil {
			return nil, fmt.Errorf("client %s: round1: derive aes key for %s: %w", c.id, j, err)
		}
		aad := aggcrypto.PairAAD(c.sessionID, c.id, j)
		ct, err := aggcrypto.Encrypt(aggcrypto.RandomReader, aesKey, plaintext, aad)
		if err != nil {
			return nil, fmt.Errorf("client %s: round1: encrypt for %s: %w", c.id, j, err)
		}
		outbound[j] = wire.CiphertextEntry{Ciphertext: ct.Data, IV: ct.IV}
	}
	return outbound, nil
}

// ReceiveCiphertexts accepts the aggregator's pivoted bundle of ciphertexts
// addressed to this client, establishing U2_local.
func (c *Client) ReceiveCiphertexts(bundle wire.CiphertextBundle) error {
	if c.down {
		return nil
	}
	inbound := make(map[party.ID]aggcrypto.Ciphertext, len(bundle))
	for key, entry := range bundle {
		sender, recipient, err := wire.ParsePairKey(key)
		if err != nil {
			return fmt.Errorf("client %s: receiveCiphertexts: %w", c.id, err)
		}
		if !recipient.Equal(c.id) {
			continue
		}
		inbound[sender] = aggcrypto.Ciphertext{Data: entry.Ciphertext, IV: entry.IV}
	}
	if len(inbound) < c.t-1 {
		return aggerrors.ErrTooFewCiphertexts
	}
	c.inbound = inbound
	ids := make(party.List, 0, len(inbound))
	for id := range inbound {
		ids = append(ids, id)
	}
	c.u2Local = party.NewSet(ids...)
	return nil
}

// Round2 computes this client's masked value: the fixed-point secret, minus
// one pairwise draw per peer with a greater id, plus one pairwise draw per
// peer with a lesser id, plus the self-mask draw.
func (c *Client) Round2() (accumulator.Value, error) {
	if c.down {
		return 0, nil
	}
	m := accumulator.FromFixedPoint(c.secret)
	for j := range c.u2Local {
		prng, err := aggcrypto.NewPairwiseMaskPRNG(c.seedKeys.Private, c.peerPublic[j].SeedPK)
		if err != nil {
			return 0, fmt.Errorf("client %s: round2: pairwise prng with %s: %w", c.id, j, err)
		}
		draw := accumulator.FromUint32(prng.Next())
		if c.id.Less(j) {
			m = m.Sub(draw)
		} else {
			m = m.Add(draw)
		}
	}
	selfPRNG, err := aggcrypto.NewSelfMaskPRNG(c.selfMaskSeed)
	if err != nil {
		return 0, fmt.Errorf("client %s: round2: self-mask prng: %w", c.id, err)
	}
	m = m.Add(accumulator.FromUint32(selfPRNG.Next()))
	c.maskedValue = m
	return m, nil
}

// ReceiveSurvivors accepts the aggregator's U3, the membership set that
// survived round 2.
func (c *Client) ReceiveSurvivors(survivors wire.SurvivorsList) error {
	if c.down {
		return nil
	}
	if len(survivors) < c.t {
		return aggerrors.ErrTooFewSurvivors
	}
	ids := make(party.List, 0, len(survivors))
	for _, key := range survivors {
		id, err := wire.ParsePIDKey(key)
		if err != nil {
			return fmt.Errorf("client %s: receiveSurvivors: %w", c.id, err)
		}
		if !id.Equal(c.id) && !c.u2Local.Contains(id) {
			return aggerrors.ErrMembershipViolation
		}
		ids = append(ids, id)
	}
	c.u3Local = ids.Sorted()
	return nil
}

// Round3 decrypts every peer ciphertext this client received, verifies its
// sender/recipient metadata, and emits the key share (dead peers) or
// self-seed share (surviving peers), plus this client's own self-seed
// share.
func (c *Client) Round3() (wire.ShareResponse, error) {
	if c.down {
		return nil, nil
	}
	u3Set := party.NewSet(c.u3Local...)
	resp := make(wire.ShareResponse, len(c.u2Local)+1)

	for j := range c.u2Local {
		ct := c.inbound[j]
		aesKey, err := aggcrypto.PairwiseAESKey(c.encKeys.Private, c.peerPublic[j].EncPK)
		if err != nil {
			return nil, fmt.Errorf("client %s: round3: derive aes key for %s: %w", c.id, j, err)
		}
		aad := aggcrypto.PairAAD(c.sessionID, j, c.id)
		plaintext, err := aggcrypto.Decrypt(aesKey, ct, aad)
		if err != nil {
			return nil, err
		}
		parsed, err := decodeSharePlaintext(plaintext)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", aggerrors.ErrCiphertextMisdirected, err)
		}
		if !parsed.Sender.Equal(j) || !parsed.Recipient.Equal(c.id) {
			return nil, aggerrors.ErrCiphertextMisdirected
		}

		entry := wire.ShareEntry{Index: uint8(parsed.Index)}
		if u3Set.Contains(j) {
			entry.ShareBytes = parsed.SeedShare
			entry.Kind = wire.ShareKindSeed
		} else {
			entry.ShareBytes = parsed.KeyShare
			entry.Kind = wire.ShareKindKey
		}
		resp[wire.PIDKey(j)] = entry
	}

	resp[wire.PIDKey(c.id)] = wire.ShareEntry{
		ShareBytes: c.selfSeedShares[c.ownIndex].Bytes(),
		Index:      uint8(c.ownIndex),
		Kind:       wire.ShareKindSeed,
	}
	return resp, nil
}

func randomUint32(buf []byte) error {
	_, err := io.ReadFull(aggcrypto.RandomReader, buf)
	return err
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
