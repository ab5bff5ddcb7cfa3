// Package merkle verifies and builds Keccak-256 Merkle trees whose internal
// nodes hash their two children in sorted order.
//
// Sorting each pair before hashing makes proofs position-free: a proof is just
// the list of sibling hashes from leaf to root.
package merkle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashSize is the byte length of a node hash.
const HashSize = 32

// Hash is a Keccak-256 digest.
type Hash [HashSize]byte

// String renders the hash as lowercase hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a hex hash, with or without a 0x prefix.
func ParseHash(value string) (Hash, error) {
	var h Hash
	if len(value) >= 2 && (value[:2] == "0x" || value[:2] == "0X") {
		value = value[2:]
	}
	raw, err := hex.DecodeString(value)
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(raw) != HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// LeafHash hashes raw leaf data, typically a 32-byte identity.
func LeafHash(data []byte) Hash {
	return keccak(data)
}

// HashPair hashes two nodes in ascending byte order.
func HashPair(a, b Hash) Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return keccak(a[:], b[:])
}

// Verify reports whether proof links leaf to root. An empty proof verifies
// only when leaf equals root.
func Verify(proof []Hash, root Hash, leaf Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = HashPair(computed, sibling)
	}
	return computed == root
}

func keccak(parts ...[]byte) Hash {
	hasher := sha3.NewLegacyKeccak256()
	for _, part := range parts {
		hasher.Write(part)
	}
	var out Hash
	hasher.Sum(out[:0])
	return out
}

// ErrNoLeaves is returned when building a tree without leaves.
var ErrNoLeaves = errors.New("merkle tree requires at least one leaf")

// Tree is a Merkle tree built from leaf hashes. Levels with an odd node count
// promote the last node unchanged.
type Tree struct {
	levels [][]Hash
}

// NewTree builds a tree over the given leaf hashes in order.
func NewTree(leaves []Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}
	level := append([]Hash(nil), leaves...)
	levels := [][]Hash{level}
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels}, nil
}

// Root returns the tree root.
func (t *Tree) Root() Hash {
	return t.levels[len(t.levels)-1][0]
}

// Proof returns the sibling path for the leaf at index.
func (t *Tree) Proof(index int) ([]Hash, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, fmt.Errorf("leaf index %d out of range [0,%d)", index, len(t.levels[0]))
	}
	var proof []Hash
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		index /= 2
	}
	return proof, nil
}
