package aggcrypto

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/math/curve"
	"golang.org/x/crypto/hkdf"
)

// HKDF info strings provide domain separation (RFC 5869) between the two
// values derived from the same ECDH point, mirroring the one-info-string-
// per-derived-value convention used throughout the reference corpus's HKDF
// call sites.
const (
	hkdfInfoPairwiseSeed = "secureagg-pairwise-seed-v1"
	hkdfInfoPairwiseAES  = "secureagg-pairwise-aeskey-v1"

	// pairwiseSeedMaterialSize is the width of the HKDF-expanded material the
	// nominal 16-bit pairwise seed is windowed out of. A narrow 16-bit DH
	// window is a real weakness for anything keyed directly from it, so this
	// implementation widens the PRNG's actual key material (see
	// seedPRNGKeyMaterialSize in prng.go — the PRNG is keyed from the full
	// shared point, not from this 16-bit window) while still exposing the
	// 16-bit field as part of the wire contract.
	pairwiseSeedMaterialSize = 16

	// aesKeySize is 256 bits.
	aesKeySize = 32
)

// SharedPoint computes the Diffie-Hellman shared point between own private
// scalar and a peer's public point: own.Act(peerPublic) == peer.Act(ownPublic)
// by commutativity of scalar multiplication, which is exactly the symmetry
// invariant the protocol requires — the pairwise seed and AES key derived by
// i and by j must be equal.
func SharedPoint(ownPrivate *curve.Scalar, peerPublic *curve.Point) *curve.Point {
	return ownPrivate.Act(peerPublic)
}

// sharedBytes returns the compressed encoding of the DH shared point, used
// as HKDF input key material for every value derived from a given pair.
func sharedBytes(ownPrivate *curve.Scalar, peerPublic *curve.Point) []byte {
	return SharedPoint(ownPrivate, peerPublic).Bytes()
}

// hkdfExpand derives `length` bytes of output from ikm using HKDF-SHA256
// with the given info string for domain separation and a nil (zero) salt,
// matching the convention in the reference HKDF call sites.
func hkdfExpand(ikm []byte, info string, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, ikm, nil, []byte(info))
	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("aggcrypto: hkdf expand %q: %w", info, err)
	}
	return out, nil
}

// PairwiseSeed derives the 16-bit signed pairwise PRNG seed between two
// parties from their DH shared point. The same fixed byte window (offset 1
// of the HKDF output) is used by every party, so the result is symmetric.
func PairwiseSeed(ownPrivate *curve.Scalar, peerPublic *curve.Point) (int16, error) {
	material, err := hkdfExpand(sharedBytes(ownPrivate, peerPublic), hkdfInfoPairwiseSeed, pairwiseSeedMaterialSize)
	if err != nil {
		return 0, err
	}
	// Fixed two-byte window at offset 1, kept for wire-contract
	// compatibility; see the doc comment on pairwiseSeedMaterialSize for why
	// the PRNG itself does not rely on this narrow window for its security
	// margin.
	window := binary.BigEndian.Uint16(material[1:3])
	return int16(window), nil
}

// PairwiseAESKey derives the 256-bit AES-GCM key shared between two parties
// from their DH shared point.
func PairwiseAESKey(ownPrivate *curve.Scalar, peerPublic *curve.Point) ([]byte, error) {
	return hkdfExpand(sharedBytes(ownPrivate, peerPublic), hkdfInfoPairwiseAES, aesKeySize)
}

// pairwiseSeedMaterial returns the full HKDF-expanded material PairwiseSeed
// windows its 16-bit value out of. The seeded PRNG (prng.go) is keyed from
// this full material rather than from the narrow 16-bit window, so its
// effective keyspace is the DH channel's full strength even though the wire
// contract still carries a 16-bit nominal seed value.
func pairwiseSeedMaterial(ownPrivate *curve.Scalar, peerPublic *curve.Point) ([]byte, error) {
	return hkdfExpand(sharedBytes(ownPrivate, peerPublic), hkdfInfoPairwiseSeed, seedPRNGKeyMaterialSize)
}
