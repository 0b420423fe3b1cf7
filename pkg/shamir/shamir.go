// Package shamir provides byte-oriented (t, N) secret sharing built on top of
// pkg/math/polynomial. Each client splits two distinct byte secrets per run:
// its exported K_seed private key, and its self-mask seed. Both fit in a
// single 32-byte scalar block, so this package shares one polynomial per
// secret rather than chunking across several.
package shamir

import (
	"fmt"
	"io"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/math/curve"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/math/polynomial"
)

// Share is a single party's share of a secret: the share value at a fixed,
// 1-based index, with share #k always delivered to the k-th peer.
type Share struct {
	Index int
	Value *curve.Scalar
}

// Bytes returns the share value's canonical encoding, used when the share
// must be embedded in a ciphertext or a wire share-response message.
func (s Share) Bytes() []byte {
	return s.Value.Bytes()
}

// ShareFromBytes reconstructs a Share from its wire encoding.
func ShareFromBytes(index int, b []byte) Share {
	return Share{Index: index, Value: curve.NewScalar().SetBytes(b)}
}

// Split produces N shares of secret, any `threshold` of which reconstruct
// it. secret must fit within the curve's scalar field (32 bytes or fewer);
// both an exported secp256k1 private key and a 32-bit self-mask seed satisfy
// this.
func Split(random io.Reader, secret []byte, threshold, n int) ([]Share, error) {
	if threshold < 1 || threshold > n {
		return nil, fmt.Errorf("shamir: invalid threshold %d for %d shares", threshold, n)
	}
	secretScalar := curve.NewScalar().SetBytes(secret)
	poly, err := polynomial.New(random, threshold-1, secretScalar)
	if err != nil {
		return nil, fmt.Errorf("shamir: split: %w", err)
	}
	shares := make([]Share, n)
	for k := 1; k <= n; k++ {
		shares[k-1] = Share{Index: k, Value: poly.EvaluateAtIndex(k)}
	}
	return shares, nil
}

// Combine reconstructs the original secret scalar from >= threshold shares.
// It does not itself enforce a minimum count; callers must check that
// against their own threshold and raise their own typed error before calling
// Combine if fewer than t shares are available.
func Combine(shares []Share) (*curve.Scalar, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("shamir: combine: no shares given")
	}
	indexed := make(map[int]*curve.Scalar, len(shares))
	for _, s := range shares {
		if _, dup := indexed[s.Index]; dup {
			return nil, fmt.Errorf("shamir: combine: duplicate share index %d", s.Index)
		}
		indexed[s.Index] = s.Value
	}
	secret, err := polynomial.Recover(indexed)
	if err != nil {
		return nil, fmt.Errorf("shamir: combine: %w", err)
	}
	return secret, nil
}
