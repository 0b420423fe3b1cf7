package client

import (
	"encoding/binary"
	"fmt"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/party"
)

// sharePlaintext is the round-1 ciphertext payload carrying the fields of
// "i|j|keyShare(j)|selfSeedShare(j)|index". The encoding lays them out as
// i, j, a 2-byte index, then the two length-prefixed share byte strings.
// Framing uses fixed-width IDs and length prefixes rather than a literal
// delimiter byte, since share values are themselves raw bytes that could
// contain any byte value.
type sharePlaintext struct {
	Sender    party.ID
	Recipient party.ID
	KeyShare  []byte
	SeedShare []byte
	Index     int
}

func encodeSharePlaintext(p sharePlaintext) []byte {
	buf := make([]byte, 0, 2*party.IDSize+2+4+len(p.KeyShare)+4+len(p.SeedShare))
	buf = append(buf, p.Sender[:]...)
	buf = append(buf, p.Recipient[:]...)
	var indexBytes [2]byte
	binary.BigEndian.PutUint16(indexBytes[:], uint16(p.Index))
	buf = append(buf, indexBytes[:]...)

	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(p.KeyShare)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, p.KeyShare...)

	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(p.SeedShare)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, p.SeedShare...)
	return buf
}

func decodeSharePlaintext(b []byte) (sharePlaintext, error) {
	const headerSize = 2*party.IDSize + 2
	if len(b) < headerSize {
		return sharePlaintext{}, fmt.Errorf("client: share plaintext too short")
	}
	var p sharePlaintext
	copy(p.Sender[:], b[:party.IDSize])
	copy(p.Recipient[:], b[party.IDSize:2*party.IDSize])
	p.Index = int(binary.BigEndian.Uint16(b[2*party.IDSize : headerSize]))

	rest := b[headerSize:]
	keyShare, rest, err := readLengthPrefixed(rest)
	if err != nil {
		return sharePlaintext{}, err
	}
	seedShare, rest, err := readLengthPrefixed(rest)
	if err != nil {
		return sharePlaintext{}, err
	}
	if len(rest) != 0 {
		return sharePlaintext{}, fmt.Errorf("client: share plaintext has trailing bytes")
	}
	p.KeyShare = keyShare
	p.SeedShare = seedShare
	return p, nil
}

func readLengthPrefixed(b []byte) (value []byte, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("client: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, fmt.Errorf("client: truncated share payload")
	}
	return b[:n], b[n:], nil
}
