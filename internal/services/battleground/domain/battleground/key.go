package battleground

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// KeySize is the byte length of an identity.
const KeySize = 32

// PublicKey identifies an account, asset or derived address.
type PublicKey [KeySize]byte

// ParsePublicKey decodes a 64-character hex identity, with or without 0x.
func ParsePublicKey(value string) (PublicKey, error) {
	var key PublicKey
	value = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(value), "0x"), "0X")
	raw, err := hex.DecodeString(value)
	if err != nil {
		return key, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != KeySize {
		return key, fmt.Errorf("public key must be %d bytes, got %d", KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// String renders the key as lowercase hex.
func (k PublicKey) String() string {
	return hex.EncodeToString(k[:])
}

// IsZero reports whether the key is all zero bytes.
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

// Bytes returns a copy of the key bytes.
func (k PublicKey) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k[:])
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KeyFromBytes copies a 32-byte slice into a PublicKey.
func KeyFromBytes(raw []byte) (PublicKey, error) {
	var key PublicKey
	if len(raw) != KeySize {
		return key, fmt.Errorf("public key must be %d bytes, got %d", KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}
