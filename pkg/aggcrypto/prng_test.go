package aggcrypto_test

import (
	"crypto/rand"
	"testing"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggcrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(t *testing.T, prng *aggcrypto.PRNG, n int) []uint32 {
	t.Helper()
	out := make([]uint32, n)
	for i := range out {
		out[i] = prng.Next()
	}
	return out
}

func TestPairwiseMaskPRNGMatchesAcrossSwappedRoles(t *testing.T) {
	a, err := aggcrypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	b, err := aggcrypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)

	prngAB, err := aggcrypto.NewPairwiseMaskPRNG(a.Private, b.Public)
	require.NoError(t, err)
	prngBA, err := aggcrypto.NewPairwiseMaskPRNG(b.Private, a.Public)
	require.NoError(t, err)

	assert.Equal(t, sequence(t, prngAB, 8), sequence(t, prngBA, 8))
}

func TestSelfMaskPRNGDeterministicForSameSeed(t *testing.T) {
	const seed = 0xDEADBEEF

	prng1, err := aggcrypto.NewSelfMaskPRNG(seed)
	require.NoError(t, err)
	prng2, err := aggcrypto.NewSelfMaskPRNG(seed)
	require.NoError(t, err)

	assert.Equal(t, sequence(t, prng1, 8), sequence(t, prng2, 8))
}

func TestSelfMaskPRNGDiffersAcrossSeeds(t *testing.T) {
	prng1, err := aggcrypto.NewSelfMaskPRNG(1)
	require.NoError(t, err)
	prng2, err := aggcrypto.NewSelfMaskPRNG(2)
	require.NoError(t, err)

	assert.NotEqual(t, sequence(t, prng1, 8), sequence(t, prng2, 8))
}
