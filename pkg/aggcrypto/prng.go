package aggcrypto

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/math/curve"
	"golang.org/x/crypto/chacha20"
)

// seedPRNGKeyMaterialSize is the width of the HKDF material used to key the
// pairwise mask PRNG (see pairwiseSeedMaterial in derive.go).
const seedPRNGKeyMaterialSize = 32

// PRNG is the seeded deterministic generator the masking layer requires: two
// parties seeding it with the same material obtain the same sequence of
// 32-bit unsigned outputs. It is built on ChaCha20's keystream, the same
// deterministic-generator-from-a-stream-cipher idiom used in the reference
// corpus's chacha-based PRNG. The choice of generator is part of the wire
// contract and must never change without a protocol version bump.
type PRNG struct {
	cipher *chacha20.Cipher
}

// zeroNonce is used because the PRNG's entire security property is
// "deterministic from the key"; per-call freshness is provided by the
// key derivation (a distinct pairwise or self-mask seed per pair/run), not
// by the nonce.
var zeroNonce = make([]byte, chacha20.NonceSize)

// newPRNGFromKey builds a PRNG from a 32-byte ChaCha20 key.
func newPRNGFromKey(key []byte) (*PRNG, error) {
	if len(key) != chacha20.KeySize {
		return nil, fmt.Errorf("aggcrypto: prng key must be %d bytes, got %d", chacha20.KeySize, len(key))
	}
	c, err := chacha20.NewUnauthenticatedCipher(key, zeroNonce)
	if err != nil {
		return nil, fmt.Errorf("aggcrypto: new prng: %w", err)
	}
	return &PRNG{cipher: c}, nil
}

// Next returns the next 32-bit unsigned output of the stream.
func (p *PRNG) Next() uint32 {
	var zero, out [4]byte
	p.cipher.XORKeyStream(out[:], zero[:])
	return binary.LittleEndian.Uint32(out[:])
}

// NewPairwiseMaskPRNG builds the PRNG shared between two parties for a given
// pair. It is keyed from the full HKDF-expanded DH material rather than from
// the narrow 16-bit nominal seed (see the doc comment on
// pairwiseSeedMaterialSize in derive.go) — both parties, and later the
// aggregator reconstructing a dropped peer's key, must call this exact
// function so their streams agree.
func NewPairwiseMaskPRNG(ownPrivate *curve.Scalar, peerPublic *curve.Point) (*PRNG, error) {
	material, err := pairwiseSeedMaterial(ownPrivate, peerPublic)
	if err != nil {
		return nil, err
	}
	return newPRNGFromKey(material)
}

// NewSelfMaskPRNG builds the PRNG for a client's own self-mask seed. The
// 32-bit seed is expanded to a full ChaCha20 key via SHA-256 so the keyspace
// used internally matches the pairwise case, even though the visible seed
// value is only 32 bits.
func NewSelfMaskPRNG(selfMaskSeed uint32) (*PRNG, error) {
	var seedBytes [4]byte
	binary.LittleEndian.PutUint32(seedBytes[:], selfMaskSeed)
	key := sha256.Sum256(append([]byte("secureagg-selfmask-seed-v1"), seedBytes[:]...))
	return newPRNGFromKey(key[:])
}
