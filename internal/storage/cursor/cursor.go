// Package cursor provides opaque pagination token encoding/decoding.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// Direction indicates the pagination direction.
type Direction string

const (
	// DirectionForward paginates forward (seq > cursor).
	DirectionForward Direction = "fwd"
	// DirectionBackward paginates backward (seq < cursor).
	DirectionBackward Direction = "bwd"
)

// Cursor is the state carried by a page token.
type Cursor struct {
	// Scope binds the token to one listing, e.g. a battleground id.
	Scope string `json:"scope"`
	// Seq is the sequence number to paginate from.
	Seq uint64 `json:"seq"`
	// Dir is the pagination direction (fwd = seq > cursor, bwd = seq < cursor).
	Dir Direction `json:"dir"`
	// FilterHash invalidates the token if the filter changes.
	FilterHash string `json:"filter_hash,omitempty"`
	// OrderHash invalidates the token if the order_by changes.
	OrderHash string `json:"order_hash,omitempty"`
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque base64 string to a cursor.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, errors.New("empty token")
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.Dir != DirectionForward && c.Dir != DirectionBackward {
		return Cursor{}, fmt.Errorf("invalid cursor direction: %q", c.Dir)
	}
	return c, nil
}

// Hash computes a short hash of a listing parameter for cursor validation.
// Returns empty string for empty input.
func Hash(value string) string {
	if value == "" {
		return ""
	}
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:8])
}

// Validate checks that the cursor was issued for the same scope, filter and
// order_by as the current request.
func Validate(c Cursor, scope, filter, orderBy string) error {
	if c.Scope != scope {
		return errors.New("cursor issued for another listing")
	}
	if c.FilterHash != Hash(filter) {
		return errors.New("filter changed since cursor was created")
	}
	if c.OrderHash != Hash(orderBy) {
		return errors.New("order_by changed since cursor was created")
	}
	return nil
}

// NewNextPageCursor creates a cursor for the page after lastSeq.
// For ASC order: seq > lastSeq (forward)
// For DESC order: seq < lastSeq (backward)
func NewNextPageCursor(scope string, lastSeq uint64, descending bool, filter, orderBy string) Cursor {
	dir := DirectionForward
	if descending {
		dir = DirectionBackward
	}
	return Cursor{
		Scope:      scope,
		Seq:        lastSeq,
		Dir:        dir,
		FilterHash: Hash(filter),
		OrderHash:  Hash(orderBy),
	}
}
