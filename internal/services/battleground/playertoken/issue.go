package playertoken

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
)

// IssueRequest describes a token to sign.
type IssueRequest struct {
	Player   battleground.PublicKey
	Issuer   string
	Audience string
	IssuedAt time.Time
	TTL      time.Duration
}

// Issue signs a player token with key. It backs the operator tooling that
// hands tokens to wallets in development setups.
func Issue(key ed25519.PrivateKey, req IssueRequest) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", errors.New("player token private key is invalid")
	}
	if req.Player.IsZero() {
		return "", errors.New("player is required")
	}
	if req.Issuer == "" || req.Audience == "" {
		return "", errors.New("issuer and audience are required")
	}
	if req.TTL <= 0 {
		return "", errors.New("ttl must be positive")
	}
	issuedAt := req.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	claims := jwt.RegisteredClaims{
		Issuer:    req.Issuer,
		Subject:   req.Player.String(),
		Audience:  jwt.ClaimStrings{req.Audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(req.TTL)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
}
