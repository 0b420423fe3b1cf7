// Package aggerrors collects the typed error kinds the protocol can raise.
// Every failure aborts the run and surfaces one of these to the driver;
// nothing here is retried internally, because retrying cannot improve a
// cryptographic outcome.
package aggerrors

import "errors"

// Sentinel errors, one per protocol failure kind. Call sites wrap these with
// fmt.Errorf("...: %w", ErrX) to add context while keeping
// errors.Is(err, aggerrors.ErrX) working for the driver and tests.
var (
	// ErrBelowThreshold: any U_k dropped below t.
	ErrBelowThreshold = errors.New("aggerrors: membership set fell below threshold")

	// ErrKeyCollision: two peers reported identical public keys in round 0.
	ErrKeyCollision = errors.New("aggerrors: two parties reported the same public key")

	// ErrTooFewClients: receiveClients saw fewer than t peers.
	ErrTooFewClients = errors.New("aggerrors: fewer than threshold clients in round 0 broadcast")

	// ErrTooFewCiphertexts: a client received fewer than t-1 ciphertexts.
	ErrTooFewCiphertexts = errors.New("aggerrors: fewer than threshold-1 ciphertexts received")

	// ErrTooFewSurvivors: U3 as seen by a client has fewer than t members.
	ErrTooFewSurvivors = errors.New("aggerrors: fewer than threshold survivors reported")

	// ErrMembershipViolation: U3 contains an id the client never heard of in U2.
	ErrMembershipViolation = errors.New("aggerrors: survivor id not present in local U2 view")

	// ErrCiphertextMisdirected: decrypted plaintext's sender/recipient fields
	// do not match the transport metadata it arrived under.
	ErrCiphertextMisdirected = errors.New("aggerrors: ciphertext plaintext addressed to the wrong parties")

	// ErrDecryptionFailed: AES-GCM authentication tag did not verify.
	ErrDecryptionFailed = errors.New("aggerrors: AEAD authentication failed")

	// ErrReconstructionFailed: Shamir recovery produced bytes that failed to
	// parse (self-seed) or import (key), or fewer than t valid shares were
	// available to attempt recovery at all.
	ErrReconstructionFailed = errors.New("aggerrors: shamir reconstruction failed")
)
