package session

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Digest computes the fixed-length content checksum sent ahead of the body.
type Digest interface {
	Name() string
	Size() int
	Sum(data []byte) []byte
}

type sha256Digest struct{}

func (sha256Digest) Name() string { return "sha256" }
func (sha256Digest) Size() int    { return sha256.Size }

func (sha256Digest) Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

type blake2bDigest struct{}

func (blake2bDigest) Name() string { return "blake2b-256" }
func (blake2bDigest) Size() int    { return blake2b.Size256 }

func (blake2bDigest) Sum(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

var (
	// SHA256 is the digest every existing bridge peer uses.
	SHA256 Digest = sha256Digest{}

	// BLAKE2b256 is a 32-byte alternative for peers that both opt into it.
	BLAKE2b256 Digest = blake2bDigest{}
)

// DigestByName resolves a digest from its configured name. An empty name
// selects SHA256.
func DigestByName(name string) (Digest, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256", "sha-256":
		return SHA256, nil
	case "blake2b", "blake2b-256", "blake2b256":
		return BLAKE2b256, nil
	default:
		return nil, fmt.Errorf("unknown digest %q", name)
	}
}
