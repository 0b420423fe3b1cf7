package aggcrypto_test

import (
	"crypto/rand"
	"testing"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggcrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPairDistinctEachCall(t *testing.T) {
	a, err := aggcrypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	b, err := aggcrypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)

	assert.NotEqual(t, a.ExportPrivate(), b.ExportPrivate())
	assert.NotEqual(t, a.ExportPublicKey(), b.ExportPublicKey())
}

func TestPrivateKeyExportImportRoundTrip(t *testing.T) {
	kp, err := aggcrypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)

	restored := aggcrypto.ImportPrivateKey(kp.ExportPrivate())
	assert.Equal(t, kp.ExportPrivate(), restored.ExportPrivate())
	assert.Equal(t, kp.ExportPublicKey(), restored.ExportPublicKey())
}

func TestPublicKeyImportRoundTrip(t *testing.T) {
	kp, err := aggcrypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)

	pub, err := aggcrypto.ImportPublicKey(kp.ExportPublicKey())
	require.NoError(t, err)
	assert.Equal(t, kp.Public.Bytes(), pub.Bytes())
}

func TestImportPublicKeyRejectsGarbage(t *testing.T) {
	_, err := aggcrypto.ImportPublicKey([]byte{0x01, 0x02, 0x03})
	assert.Error(t, err)
}
