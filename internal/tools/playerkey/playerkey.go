// Package playerkey generates player token signing keys and signs
// development tokens with them.
package playerkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/playertoken"
)

// Environment variable names written by Run.
const (
	EnvPrivateKey = "BATTLEGROUND_PLAYER_TOKEN_PRIVATE_KEY"
	EnvPublicKey  = "BATTLEGROUND_PLAYER_TOKEN_PUBLIC_KEY"
)

// Run generates a player token key pair and writes exports.
func Run(out io.Writer, reader io.Reader) error {
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}
	publicKey, privateKey, err := ed25519.GenerateKey(reader)
	if err != nil {
		return fmt.Errorf("generate player token key: %w", err)
	}
	if _, err := fmt.Fprintf(out, "export %s=%s\n", EnvPrivateKey, base64.RawStdEncoding.EncodeToString(privateKey)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "export %s=%s\n", EnvPublicKey, base64.RawStdEncoding.EncodeToString(publicKey)); err != nil {
		return err
	}
	return nil
}

// SignOptions describes a development token.
type SignOptions struct {
	PrivateKey string
	Player     string
	Issuer     string
	Audience   string
	TTL        time.Duration
	Now        time.Time
}

// Sign writes a player token for opts.Player signed with opts.PrivateKey.
func Sign(out io.Writer, opts SignOptions) error {
	if out == nil {
		return errors.New("output is required")
	}
	raw := strings.TrimSpace(opts.PrivateKey)
	if raw == "" {
		return fmt.Errorf("%s is required", EnvPrivateKey)
	}
	keyBytes, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil {
		if keyBytes, err = base64.StdEncoding.DecodeString(raw); err != nil {
			return fmt.Errorf("decode private key: %w", err)
		}
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return fmt.Errorf("private key must be %d bytes", ed25519.PrivateKeySize)
	}
	player, err := battleground.ParsePublicKey(opts.Player)
	if err != nil {
		return fmt.Errorf("parse player: %w", err)
	}
	token, err := playertoken.Issue(ed25519.PrivateKey(keyBytes), playertoken.IssueRequest{
		Player:   player,
		Issuer:   opts.Issuer,
		Audience: opts.Audience,
		IssuedAt: opts.Now,
		TTL:      opts.TTL,
	})
	if err != nil {
		return fmt.Errorf("sign player token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
