// Package aggcrypto is the protocol's crypto helper layer: ECDH key
// generation, shared-secret derivation, AES-GCM encrypt/decrypt, and a
// seeded pseudo-random generator, all on the single fixed curve
// (pkg/math/curve.Secp256k1).
package aggcrypto

import (
	"fmt"
	"io"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/math/curve"
)

// KeyPair is one of the two independent key pairs each client owns per run
// (K_seed or K_enc). The private half must be exportable to a portable byte
// form so it can be Shamir-split; Scalar's canonical 32-byte encoding
// (pkg/math/curve) is exactly that form, chosen over a JSON-style
// serialization for compactness and determinism.
type KeyPair struct {
	Private *curve.Scalar
	Public  *curve.Point
}

// GenerateKeyPair creates a fresh ECDH key pair from the given randomness
// source.
func GenerateKeyPair(random io.Reader) (*KeyPair, error) {
	priv, err := curve.SampleScalar(random)
	if err != nil {
		return nil, fmt.Errorf("aggcrypto: generate key pair: %w", err)
	}
	return &KeyPair{Private: priv, Public: priv.ActOnBase()}, nil
}

// ExportPrivate returns the private key's portable byte form (32 bytes,
// big-endian scalar encoding), suitable for Shamir-splitting.
func (kp *KeyPair) ExportPrivate() []byte {
	return kp.Private.Bytes()
}

// ImportPrivateKey reconstructs a KeyPair from a previously exported private
// key, re-deriving the public point. Used by the aggregator in round3 after
// Shamir-reconstructing a dropped peer's K_seed private key.
func ImportPrivateKey(b []byte) *KeyPair {
	priv := curve.NewScalar().SetBytes(b)
	return &KeyPair{Private: priv, Public: priv.ActOnBase()}
}

// ExportPublicKey returns the public key's portable byte form (SEC1
// compressed point), used for the public-key broadcast wire message.
func (kp *KeyPair) ExportPublicKey() []byte {
	return kp.Public.Bytes()
}

// ImportPublicKey parses a peer's broadcast public key.
func ImportPublicKey(b []byte) (*curve.Point, error) {
	return curve.PointFromBytes(b)
}
