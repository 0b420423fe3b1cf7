// Package curve provides the single elliptic-curve group used throughout the
// protocol (Diffie-Hellman key agreement and Shamir secret sharing over the
// curve's scalar field). Every key pair uses exactly this one curve; mixing
// curves across helper paths would break the symmetry Diffie-Hellman and
// secret reconstruction both depend on.
package curve

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Curve identifies the fixed group. There is only ever one instance of this
// type in the running program; it exists as a value (rather than a bare
// package-level function set) so that callers which thread a "group" through
// their state - exactly as the teacher's round/polynomial code does - have
// something concrete to hold onto.
type Curve struct{}

// Secp256k1 is the curve used for every key pair in the protocol: K_seed and
// K_enc alike.
var Secp256k1 = Curve{}

// Order returns the group order (the modulus every Scalar is reduced under).
func (Curve) Order() *saferith.Modulus {
	return curveOrderModulus
}

// secp256k1GroupOrderHex is the well-known order of the secp256k1 base point,
// n = FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFE BAAEDCE6 AF48A03B BFD25E8C D0364141.
const secp256k1GroupOrderHex = "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141"

var curveOrderModulus = mustOrderModulus()

func mustOrderModulus() *saferith.Modulus {
	raw, err := hex.DecodeString(secp256k1GroupOrderHex)
	if err != nil {
		panic(err)
	}
	return saferith.ModulusFromBytes(raw)
}

// Scalar is an element of the curve's scalar field (integers mod the group
// order). It backs both Shamir polynomial coefficients/evaluations and
// private key material.
type Scalar struct {
	v secp256k1.ModNScalar
}

// NewScalar returns the zero scalar.
func NewScalar() *Scalar {
	return &Scalar{}
}

// SetNat reduces n modulo the curve order and stores the result. This is the
// entry point used by polynomial coefficient sampling and by Shamir's
// byte-to-scalar packing: callers build a saferith.Nat from arbitrary bytes
// (a private key export, a self-mask seed, a Lagrange index) and hand it in
// here.
func (s *Scalar) SetNat(n *saferith.Nat) *Scalar {
	reduced := new(saferith.Nat).Mod(n, curveOrderModulus)
	buf := reduced.Bytes()
	if len(buf) > 32 {
		buf = buf[len(buf)-32:]
	}
	var padded [32]byte
	copy(padded[32-len(buf):], buf)
	s.v.SetBytes(&padded)
	return s
}

// SetUint64 sets the scalar to the given small integer, used for share
// indices (1..N) and other small constants.
func (s *Scalar) SetUint64(n uint64) *Scalar {
	return s.SetNat(new(saferith.Nat).SetUint64(n))
}

// SetBytes reduces a big-endian byte string modulo the curve order. Used to
// reconstruct a scalar from reconstructed Shamir shares / exported key bytes.
func (s *Scalar) SetBytes(b []byte) *Scalar {
	return s.SetNat(new(saferith.Nat).SetBytes(b))
}

// Bytes returns the scalar's canonical 32-byte big-endian encoding.
func (s *Scalar) Bytes() []byte {
	b := s.v.Bytes()
	out := make([]byte, 32)
	copy(out, b[:])
	return out
}

// Add sets s = s + other and returns s.
func (s *Scalar) Add(other *Scalar) *Scalar {
	s.v.Add(&other.v)
	return s
}

// Sub sets s = s - other and returns s.
func (s *Scalar) Sub(other *Scalar) *Scalar {
	var neg secp256k1.ModNScalar
	neg.Set(&other.v).Negate()
	s.v.Add(&neg)
	return s
}

// Mul sets s = s * other and returns s.
func (s *Scalar) Mul(other *Scalar) *Scalar {
	s.v.Mul(&other.v)
	return s
}

// IsZero reports whether the scalar is zero.
func (s *Scalar) IsZero() bool {
	return s.v.IsZero()
}

// Equal reports whether two scalars are the same field element.
func (s *Scalar) Equal(other *Scalar) bool {
	return s.v.Equals(&other.v)
}

// Clone returns an independent copy of s.
func (s *Scalar) Clone() *Scalar {
	out := NewScalar()
	out.v.Set(&s.v)
	return out
}

// SampleScalar draws a uniformly random non-zero scalar from random.
func SampleScalar(random io.Reader) (*Scalar, error) {
	for {
		var buf [40]byte // extra bytes over 32 to keep the mod-order bias negligible
		if _, err := io.ReadFull(random, buf[:]); err != nil {
			return nil, fmt.Errorf("curve: sample scalar: %w", err)
		}
		s := NewScalar().SetBytes(buf[:])
		if !s.IsZero() {
			return s, nil
		}
	}
}

// SampleScalarFromRand is SampleScalar using crypto/rand.
func SampleScalarFromRand() (*Scalar, error) {
	return SampleScalar(rand.Reader)
}

// Point is a point on the curve, used for public keys derived from a Scalar.
type Point struct {
	v secp256k1.JacobianPoint
}

// ErrInvalidPoint is returned when a point fails to parse or lies off-curve.
var ErrInvalidPoint = errors.New("curve: invalid point encoding")

// ActOnBase returns s*G, the public point corresponding to private scalar s.
func (s *Scalar) ActOnBase() *Point {
	p := &Point{}
	secp256k1.ScalarBaseMultNonConst(&s.v, &p.v)
	p.v.ToAffine()
	return p
}

// Act returns s*P, used for Diffie-Hellman: each party multiplies the peer's
// public point by its own private scalar to reach the shared point.
func (s *Scalar) Act(p *Point) *Point {
	out := &Point{}
	secp256k1.ScalarMultNonConst(&s.v, &p.v, &out.v)
	out.v.ToAffine()
	return out
}

// Bytes returns the SEC1 compressed encoding of the point.
func (p *Point) Bytes() []byte {
	affine := p.v
	affine.ToAffine()
	pub := secp256k1.NewPublicKey(&affine.X, &affine.Y)
	return pub.SerializeCompressed()
}

// PointFromBytes parses a SEC1-compressed point.
func PointFromBytes(b []byte) (*Point, error) {
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	p := &Point{}
	pub.AsJacobian(&p.v)
	return p, nil
}
