package aggcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggerrors"
)

// ivSize is 16 bytes: every ciphertext carries a freshly sampled 16-byte IV.
// This is wider than AES-GCM's usual 12-byte nonce; Go's crypto/cipher
// supports arbitrary nonce sizes via NewGCMWithNonceSize, which is the
// standard-library idiom for a non-default nonce width (see DESIGN.md for
// why AES-GCM itself stays on the standard library).
const ivSize = 16

// Ciphertext is the output of Encrypt: the AEAD output plus the IV it was
// produced under, matching the ciphertext-bundle wire format each client
// sends its peers.
type Ciphertext struct {
	Data []byte
	IV   []byte
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aggcrypto: aes cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("aggcrypto: gcm: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext under key with a freshly sampled IV and optional
// additional authenticated data (used for session binding).
func Encrypt(random io.Reader, key, plaintext, aad []byte) (Ciphertext, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return Ciphertext{}, err
	}
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(random, iv); err != nil {
		return Ciphertext{}, fmt.Errorf("aggcrypto: sample iv: %w", err)
	}
	data := aead.Seal(nil, iv, plaintext, aad)
	return Ciphertext{Data: data, IV: iv}, nil
}

// Decrypt opens a Ciphertext under key with the same additional
// authenticated data used at encryption time, returning ErrDecryptionFailed
// on any tag mismatch.
func Decrypt(key []byte, ct Ciphertext, aad []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, ct.IV, ct.Data, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", aggerrors.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// RandomReader is the default randomness source used by the client and
// aggregator packages; a package-level var so tests can swap in a
// deterministic reader and reproduce byte-identical runs (see
// pkg/client's determinism test).
var RandomReader io.Reader = rand.Reader
