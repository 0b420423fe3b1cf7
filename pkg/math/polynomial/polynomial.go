// Package polynomial implements the Shamir secret-sharing polynomials used to
// split a client's K_seed private key and self-mask seed into (t, N) shares.
package polynomial

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/math/curve"
)

// secp256k1OrderMinusTwoHex is n-2 for the secp256k1 group order n, used as
// the Fermat's-little-theorem exponent (s^(n-2) == s^-1 mod n) when inverting
// Lagrange denominators.
const secp256k1OrderMinusTwoHex = "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD036413F"

// Polynomial is a degree-d polynomial over the curve's scalar field, with the
// constant term fixed to the secret being shared.
type Polynomial struct {
	coefficients []*curve.Scalar
}

// New samples a random polynomial of the given degree whose constant term is
// secret. degree = threshold - 1, so that exactly `threshold` evaluations
// (shares) are needed to recover secret via Lagrange interpolation at x=0.
func New(random io.Reader, degree int, secret *curve.Scalar) (*Polynomial, error) {
	if degree < 0 {
		return nil, fmt.Errorf("polynomial: degree must be >= 0, got %d", degree)
	}
	coeffs := make([]*curve.Scalar, degree+1)
	coeffs[0] = secret.Clone()
	for i := 1; i <= degree; i++ {
		c, err := curve.SampleScalar(random)
		if err != nil {
			return nil, fmt.Errorf("polynomial: sample coefficient %d: %w", i, err)
		}
		coeffs[i] = c
	}
	return &Polynomial{coefficients: coeffs}, nil
}

// Degree returns the polynomial's degree.
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}

// Constant returns the polynomial's constant term (the shared secret).
func (p *Polynomial) Constant() *curve.Scalar {
	return p.coefficients[0].Clone()
}

// Evaluate computes p(x) using Horner's method.
func (p *Polynomial) Evaluate(x *curve.Scalar) *curve.Scalar {
	result := curve.NewScalar()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		result.Mul(x).Add(p.coefficients[i])
	}
	return result
}

// EvaluateAtIndex evaluates the polynomial at the scalar corresponding to the
// 1-based share index k, matching the "share #k delivered to the k-th peer"
// convention used throughout the package.
func (p *Polynomial) EvaluateAtIndex(k int) *curve.Scalar {
	x := curve.NewScalar().SetUint64(uint64(k))
	return p.Evaluate(x)
}

// Lagrange computes, for each index in indices, the Lagrange basis
// coefficient L_i(0) = prod_{j != i} (0 - x_j) / (x_i - x_j), so that
// secret = sum_i coefficient_i * share_i reconstructs the constant term from
// any >= threshold (index, share) pairs.
func Lagrange(indices []int) (map[int]*curve.Scalar, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("polynomial: lagrange: no indices given")
	}
	xs := make(map[int]*curve.Scalar, len(indices))
	for _, idx := range indices {
		xs[idx] = curve.NewScalar().SetUint64(uint64(idx))
	}

	coefficients := make(map[int]*curve.Scalar, len(indices))
	for _, i := range indices {
		xi := xs[i]
		num := curve.NewScalar().SetUint64(1)
		den := curve.NewScalar().SetUint64(1)
		for _, j := range indices {
			if j == i {
				continue
			}
			xj := xs[j]
			// numerator *= (0 - x_j) = -x_j
			negXj := curve.NewScalar().SetUint64(0).Sub(xj)
			num.Mul(negXj)
			// denominator *= (x_i - x_j)
			diff := xi.Clone().Sub(xj)
			den.Mul(diff)
		}
		denInv, err := invert(den)
		if err != nil {
			return nil, fmt.Errorf("polynomial: lagrange: duplicate index %d: %w", i, err)
		}
		coefficients[i] = num.Mul(denInv)
	}
	return coefficients, nil
}

// invert computes the modular inverse of s using Fermat's little theorem
// (s^(order-2) mod order), since the curve's scalar field has prime order.
func invert(s *curve.Scalar) (*curve.Scalar, error) {
	if s.IsZero() {
		return nil, fmt.Errorf("polynomial: cannot invert zero scalar")
	}
	expBytes, err := hex.DecodeString(secp256k1OrderMinusTwoHex)
	if err != nil {
		panic(err)
	}

	result := curve.NewScalar().SetUint64(1)
	base := s.Clone()
	for _, b := range expBytes {
		for bit := 7; bit >= 0; bit-- {
			result.Mul(result.Clone())
			if (b>>uint(bit))&1 == 1 {
				result.Mul(base)
			}
		}
	}
	return result, nil
}

// Recover reconstructs the shared secret (the polynomial's constant term)
// from a set of (index, share) pairs, which must number at least the
// original threshold.
func Recover(shares map[int]*curve.Scalar) (*curve.Scalar, error) {
	indices := make([]int, 0, len(shares))
	for idx := range shares {
		indices = append(indices, idx)
	}
	coeffs, err := Lagrange(indices)
	if err != nil {
		return nil, err
	}
	secret := curve.NewScalar()
	for _, idx := range indices {
		term := shares[idx].Clone().Mul(coeffs[idx])
		secret.Add(term)
	}
	return secret, nil
}
