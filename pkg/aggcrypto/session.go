package aggcrypto

import (
	"sort"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/party"
	"github.com/zeebo/blake3"
)

// SessionIDSize is the width of a derived session identifier.
const SessionIDSize = 32

// SessionMember is one entry of the round-0 public-key broadcast, the input
// to DeriveSessionID.
type SessionMember struct {
	ID     party.ID
	SeedPK []byte
	EncPK  []byte
}

// DeriveSessionID folds the sorted round-0 broadcast (every client's id and
// both public keys) into a single session identifier, the same way the
// teacher's keygen round derives a chain key from the round-0 transcript
// (protocols/lss/keygen/round1.go's RID, via blake3). Every client computes
// this independently from the identical broadcast it receives, so no extra
// wire message is needed to agree on it. The session ID is folded into every
// AES-GCM call's additional authenticated data (pkg/client's round-1 share
// ciphertexts; the aggregator never encrypts or decrypts) so a ciphertext
// from one run can never be replayed into another.
func DeriveSessionID(members []SessionMember) [SessionIDSize]byte {
	sorted := make([]SessionMember, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.Less(sorted[j].ID) })

	h := blake3.New()
	for _, m := range sorted {
		h.Write(m.ID[:])
		h.Write(m.SeedPK)
		h.Write(m.EncPK)
	}
	var out [SessionIDSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// PairAAD builds the additional authenticated data for the ciphertext i
// sends to j within a session: the session ID followed by both party IDs,
// binding the ciphertext to this run and this ordered pair.
func PairAAD(sessionID [SessionIDSize]byte, sender, recipient party.ID) []byte {
	aad := make([]byte, 0, SessionIDSize+2*party.IDSize)
	aad = append(aad, sessionID[:]...)
	aad = append(aad, sender[:]...)
	aad = append(aad, recipient[:]...)
	return aad
}
