package game

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

// AlgorithmTag names the outcome-derivation scheme recorded in every
// fairness proof. Bump it if the byte mapping ever changes.
const AlgorithmTag = "HMAC-SHA256-v1"

const serverSeedBytes = 32

// generateServerSeed draws a 256-bit seed from the supplied entropy
// source and returns it hex encoded.
func generateServerSeed(entropy io.Reader) (string, error) {
	b := make([]byte, serverSeedBytes)
	if _, err := io.ReadFull(entropy, b); err != nil {
		return "", fmt.Errorf("read server seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashCommitment returns the SHA-256 commitment for a server seed. The
// commitment is published at session open; the seed itself only at reveal.
func HashCommitment(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// stream is the deterministic byte source all outcome generators consume.
// Block i is HMAC-SHA256(serverSeed, "clientSeed:nonce:i"); blocks are
// concatenated as needed. Identical seeds and nonce always yield the
// identical stream, which is what makes settlements replayable.
type stream struct {
	key     []byte
	prefix  string
	counter uint64
	buf     []byte
	off     int
}

func newStream(serverSeed, clientSeed string, nonce uint64) *stream {
	return &stream{
		key:    []byte(serverSeed),
		prefix: fmt.Sprintf("%s:%d", clientSeed, nonce),
	}
}

func (s *stream) refill() {
	mac := hmac.New(sha256.New, s.key)
	fmt.Fprintf(mac, "%s:%d", s.prefix, s.counter)
	s.counter++
	s.buf = mac.Sum(nil)
	s.off = 0
}

func (s *stream) byteVal() byte {
	if s.off >= len(s.buf) {
		s.refill()
	}
	b := s.buf[s.off]
	s.off++
	return b
}

// uint32 consumes 4 bytes big-endian.
func (s *stream) uint32() uint32 {
	var raw [4]byte
	for i := range raw {
		raw[i] = s.byteVal()
	}
	return binary.BigEndian.Uint32(raw[:])
}

// uint64 consumes 8 bytes big-endian.
func (s *stream) uint64() uint64 {
	var raw [8]byte
	for i := range raw {
		raw[i] = s.byteVal()
	}
	return binary.BigEndian.Uint64(raw[:])
}

// intn consumes 4 bytes and reduces modulo n. The documented mapping
// accepts the tiny modulo bias; verifiability matters more than a perfectly
// uniform draw here, and 32 bits over n<=312 keeps the bias negligible.
func (s *stream) intn(n int) int {
	return int(s.uint32() % uint32(n))
}

// perm returns a Fisher-Yates permutation of 0..n-1 driven by the stream:
// at swap index i the partner is the next stream value reduced mod i+1.
func (s *stream) perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := s.intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// Verify recomputes a settlement's fairness proof: the seed must hash to
// the published commitment and re-deriving the outcome from the published
// seeds must reproduce the recorded outcome byte for byte. Forced
// (test-mode) settlements verify the commitment only.
func Verify(s *Settlement) bool {
	if s == nil || s.Outcome == nil {
		return false
	}
	if subtle.ConstantTimeCompare(
		[]byte(HashCommitment(s.Proof.ServerSeed)),
		[]byte(s.Proof.ServerSeedHash)) != 1 {
		return false
	}
	if s.Forced {
		return true
	}
	mod, ok := defaultRegistry[s.Kind]
	if !ok {
		return false
	}
	derived, err := mod.generate(s.Config, newStream(s.Proof.ServerSeed, s.Proof.ClientSeed, s.Proof.Nonce))
	if err != nil {
		return false
	}
	return outcomesEqual(derived, s.Outcome)
}

func outcomesEqual(a, b *Outcome) bool {
	if a.Kind != b.Kind || a.Pocket != b.Pocket || a.Bonus != b.Bonus {
		return false
	}
	if !cardsEqual(a.Player, b.Player) || !cardsEqual(a.Banker, b.Banker) {
		return false
	}
	if !cardPtrEqual(a.Dragon, b.Dragon) || !cardPtrEqual(a.Tiger, b.Tiger) {
		return false
	}
	return intsEqual(a.Stops, b.Stops) && intsEqual(a.Balls, b.Balls) && intsEqual(a.Draw, b.Draw)
}

func cardsEqual(a, b []Card) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cardPtrEqual(a, b *Card) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
