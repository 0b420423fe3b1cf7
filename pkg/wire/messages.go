// Package wire defines the canonical, implementation-free message formats
// the protocol exchanges, CBOR-encoded exactly as the teacher's protocol
// messages are (pkg/protocol.Message in the reference corpus).
package wire

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/party"
	"github.com/fxamacker/cbor/v2"
)

// PIDKey renders a party ID as the string form used as a map key on the
// wire (CBOR map keys here are strings, not raw 16-byte arrays, so that any
// CBOR-aware tool can inspect a message without special-casing fixed-size
// byte arrays as keys).
func PIDKey(id party.ID) string {
	return id.String()
}

// ParsePIDKey is the inverse of PIDKey.
func ParsePIDKey(s string) (party.ID, error) {
	var id party.ID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != party.IDSize {
		return party.Zero, fmt.Errorf("wire: invalid party id key %q", s)
	}
	copy(id[:], b)
	return id, nil
}

// PairKey renders the "senderPID|recipientPID" key used for ciphertext
// bundles.
func PairKey(sender, recipient party.ID) string {
	return PIDKey(sender) + "|" + PIDKey(recipient)
}

// ParsePairKey is the inverse of PairKey.
func ParsePairKey(s string) (sender, recipient party.ID, err error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return party.Zero, party.Zero, fmt.Errorf("wire: invalid pair key %q", s)
	}
	sender, err = ParsePIDKey(parts[0])
	if err != nil {
		return party.Zero, party.Zero, err
	}
	recipient, err = ParsePIDKey(parts[1])
	if err != nil {
		return party.Zero, party.Zero, err
	}
	return sender, recipient, nil
}

// PublicKeyEntry is one client's round-0 key material, as broadcast by the
// aggregator to every client.
type PublicKeyEntry struct {
	SeedPK []byte `cbor:"seedPk"`
	EncPK  []byte `cbor:"encPk"`
}

// PublicKeyBroadcast is the map PID -> {seedPk, encPk}.
type PublicKeyBroadcast map[string]PublicKeyEntry

// CiphertextEntry is one sender-to-recipient ciphertext, carrying its IV
// alongside the ciphertext bytes.
type CiphertextEntry struct {
	Ciphertext []byte `cbor:"ciphertext"`
	IV         []byte `cbor:"iv"`
}

// CiphertextBundle is the map "senderPID|recipientPID" -> ciphertext entry.
type CiphertextBundle map[string]CiphertextEntry

// SurvivorsList is the list of PIDs making up U3.
type SurvivorsList []string

// ShareKind distinguishes the two kinds of round-3 share disclosure: a dead
// peer's K_seed private-key share, or a surviving peer's self-mask-seed
// share.
type ShareKind string

const (
	ShareKindKey  ShareKind = "key"
	ShareKindSeed ShareKind = "seed"
)

// ShareEntry is one peer's disclosed share in round 3.
type ShareEntry struct {
	ShareBytes []byte    `cbor:"shareBytes"`
	Index      uint8     `cbor:"index"`
	Kind       ShareKind `cbor:"kind"`
}

// ShareResponse is the map peerPID -> share entry.
type ShareResponse map[string]ShareEntry

// Marshal CBOR-encodes any of the above message types.
func Marshal(v interface{}) ([]byte, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal: %w", err)
	}
	return b, nil
}

// Unmarshal CBOR-decodes into v, which must be a pointer to one of the
// message types above.
func Unmarshal(data []byte, v interface{}) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return nil
}
