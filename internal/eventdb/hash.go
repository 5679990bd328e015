package eventdb

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"

	"lachesis-conformance/internal/lachesis"
)

// SyntheticHash deterministically derives a hex event hash from a
// producer/sequence pair for event-db fixtures and tests that need a
// plausible EventHash column without a real wire-level event payload.
// Grounded on the teacher's own event-hashing idiom (nimamakhmali-Sinar_Chain
// src/event.go), which hashes its DataToSign() bytes with
// crypto.Keccak256; here the "payload" is just the (producer, seq) pair.
func SyntheticHash(producer lachesis.ProcId, seq lachesis.Seq) string {
	payload := fmt.Sprintf("%d:%d", producer, seq)
	sum := crypto.Keccak256([]byte(payload))
	return "0x" + hex.EncodeToString(sum)
}

// SyntheticHashWithParents hashes an event's producer, sequence, and its
// parents' identities together into a single event hash, for fixtures
// that want the hash to actually depend on ancestry (the way a real wire
// event's hash would). Grounded on the teacher's streaming-hasher idiom
// (nimamakhmali-Sinar_Chain src/event.go's Hash(), which incrementally
// writes header fields into a sha3.NewLegacyKeccak256() hasher rather than
// hashing a single concatenated byte slice).
func SyntheticHashWithParents(producer lachesis.ProcId, seq lachesis.Seq, parents []lachesis.Event) string {
	hasher := sha3.NewLegacyKeccak256()
	fmt.Fprintf(hasher, "%d:%d", producer, seq)
	for _, p := range parents {
		fmt.Fprintf(hasher, ":%d,%d", p.Proc, p.Seq)
	}
	return "0x" + hex.EncodeToString(hasher.Sum(nil))
}
