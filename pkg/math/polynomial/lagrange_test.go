package polynomial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/math/curve"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/math/polynomial"
)

// TestLagrangeCoefficientsSumToOne checks the reconstruction identity every
// Shamir Combine call in pkg/shamir relies on: Lagrange coefficients for any
// subset of indices, evaluated at x=0, sum to 1 (recovering a degree-0
// polynomial with constant 1 must return 1 regardless of which indices are
// used).
func TestLagrangeCoefficientsSumToOne(t *testing.T) {
	allIDs := make([]int, 10)
	for i := range allIDs {
		allIDs[i] = i + 1
	}

	coefsEven, err := polynomial.Lagrange(allIDs)
	require.NoError(t, err)
	coefsOdd, err := polynomial.Lagrange(allIDs[:len(allIDs)-1])
	require.NoError(t, err)

	sumEven := curve.NewScalar()
	for _, c := range coefsEven {
		sumEven.Add(c)
	}
	sumOdd := curve.NewScalar()
	for _, c := range coefsOdd {
		sumOdd.Add(c)
	}

	one := curve.NewScalar().SetUint64(1)
	assert.True(t, sumEven.Equal(one))
	assert.True(t, sumOdd.Equal(one))
}

func TestPolynomialRecoverMatchesConstant(t *testing.T) {
	secret := curve.NewScalar().SetUint64(424242)
	poly, err := polynomial.New(randReader{}, 3, secret)
	require.NoError(t, err)

	shares := map[int]*curve.Scalar{
		1: poly.EvaluateAtIndex(1),
		3: poly.EvaluateAtIndex(3),
		4: poly.EvaluateAtIndex(4),
		7: poly.EvaluateAtIndex(7),
	}

	recovered, err := polynomial.Recover(shares)
	require.NoError(t, err)
	assert.True(t, recovered.Equal(secret))
}

// randReader is a deterministic, non-cryptographic reader for test polynomial
// coefficient sampling only.
type randReader struct{ n byte }

func (r randReader) Read(p []byte) (int, error) {
	for i := range p {
		r.n++
		p[i] = r.n*31 + byte(i)
	}
	return len(p), nil
}
