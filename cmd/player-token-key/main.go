// Package main generates player token keys and signs development tokens.
//
// Without flags it prints a fresh key pair as shell exports. With -player it
// signs a token for that wallet using BATTLEGROUND_PLAYER_TOKEN_PRIVATE_KEY.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/louisbranch/battleground/internal/platform/cmd"
	"github.com/louisbranch/battleground/internal/platform/config"
	"github.com/louisbranch/battleground/internal/tools/playerkey"
)

type signConfig struct {
	PrivateKey string `env:"BATTLEGROUND_PLAYER_TOKEN_PRIVATE_KEY"`
	Issuer     string `env:"BATTLEGROUND_PLAYER_TOKEN_ISSUER"   envDefault:"battleground"`
	Audience   string `env:"BATTLEGROUND_PLAYER_TOKEN_AUDIENCE" envDefault:"battleground"`
}

func main() {
	var cfg signConfig
	if err := cmd.ParseConfig(&cfg); err != nil {
		config.Exitf("parse config: %v", err)
	}
	fs := flag.NewFlagSet(cmd.ServicePlayerTokenKey, flag.ExitOnError)
	player := fs.String("player", "", "wallet public key (hex) to sign a token for")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	fs.StringVar(&cfg.Issuer, "issuer", cfg.Issuer, "token issuer")
	fs.StringVar(&cfg.Audience, "audience", cfg.Audience, "token audience")
	if err := cmd.ParseArgs(fs, os.Args[1:]); err != nil {
		config.Exitf("parse flags: %v", err)
	}

	if *player == "" {
		if err := playerkey.Run(os.Stdout, nil); err != nil {
			config.Exitf("generate player token key: %v", err)
		}
		return
	}
	err := playerkey.Sign(os.Stdout, playerkey.SignOptions{
		PrivateKey: cfg.PrivateKey,
		Player:     *player,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		TTL:        *ttl,
		Now:        time.Now(),
	})
	if err != nil {
		config.Exitf("sign player token: %v", err)
	}
}
