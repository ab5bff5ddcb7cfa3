// Package battleground parses battleground command configuration and
// launches the runtime.
package battleground

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/battleground/internal/platform/cmd"
	"github.com/louisbranch/battleground/internal/platform/logging"
	"github.com/louisbranch/battleground/internal/services/battleground/app"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/playertoken"
	"go.uber.org/zap"
)

// Config holds battleground command configuration.
type Config struct {
	HTTPAddr             string        `env:"BATTLEGROUND_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr             string        `env:"BATTLEGROUND_GRPC_ADDR" envDefault:":8081"`
	DBDriver             string        `env:"BATTLEGROUND_DB_DRIVER" envDefault:"sqlite"`
	DBPath               string        `env:"BATTLEGROUND_DB_PATH" envDefault:"data/battleground.db"`
	DBDSN                string        `env:"BATTLEGROUND_DB_DSN"`
	Admin                string        `env:"BATTLEGROUND_ADMIN"`
	Treasury             string        `env:"BATTLEGROUND_TREASURY"`
	ProtocolFeeBps       uint          `env:"BATTLEGROUND_PROTOCOL_FEE_BPS" envDefault:"0"`
	RedisAddr            string        `env:"BATTLEGROUND_REDIS_ADDR"`
	RedisPassword        string        `env:"BATTLEGROUND_REDIS_PASSWORD"`
	RedisDB              int           `env:"BATTLEGROUND_REDIS_DB" envDefault:"0"`
	RedisChannel         string        `env:"BATTLEGROUND_REDIS_CHANNEL" envDefault:"battleground.events"`
	SchedulerInterval    time.Duration `env:"BATTLEGROUND_SCHEDULER_INTERVAL" envDefault:"15s"`
	PlayerTokenIssuer    string        `env:"BATTLEGROUND_PLAYER_TOKEN_ISSUER" envDefault:"battleground"`
	PlayerTokenAudience  string        `env:"BATTLEGROUND_PLAYER_TOKEN_AUDIENCE" envDefault:"battleground"`
	PlayerTokenPublicKey string        `env:"BATTLEGROUND_PLAYER_TOKEN_PUBLIC_KEY"`
	Log                  logging.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP API listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The gRPC health listen address")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "Storage driver: sqlite or postgres")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "The Postgres DSN")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for join events; empty logs events instead")
	fs.DurationVar(&cfg.SchedulerInterval, "scheduler-interval", cfg.SchedulerInterval, "Interval of the start and outbox jobs")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Minimum log level")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RuntimeConfig validates identities and keys and builds the runtime
// configuration.
func (c Config) RuntimeConfig(logger *zap.Logger) (app.RuntimeConfig, error) {
	admin, err := battleground.ParsePublicKey(c.Admin)
	if err != nil {
		return app.RuntimeConfig{}, fmt.Errorf("BATTLEGROUND_ADMIN: %w", err)
	}
	treasury, err := battleground.ParsePublicKey(c.Treasury)
	if err != nil {
		return app.RuntimeConfig{}, fmt.Errorf("BATTLEGROUND_TREASURY: %w", err)
	}
	if c.ProtocolFeeBps > battleground.MaxBps {
		return app.RuntimeConfig{}, fmt.Errorf("BATTLEGROUND_PROTOCOL_FEE_BPS must be at most %d", battleground.MaxBps)
	}
	token, err := playertoken.ParseConfig(c.PlayerTokenIssuer, c.PlayerTokenAudience, c.PlayerTokenPublicKey, nil)
	if err != nil {
		return app.RuntimeConfig{}, err
	}
	return app.RuntimeConfig{
		HTTPAddr:          c.HTTPAddr,
		GRPCAddr:          c.GRPCAddr,
		DBDriver:          c.DBDriver,
		DBPath:            c.DBPath,
		DBDSN:             c.DBDSN,
		Admin:             admin,
		Treasury:          treasury,
		ProtocolFeeBps:    uint16(c.ProtocolFeeBps),
		RedisAddr:         c.RedisAddr,
		RedisPassword:     c.RedisPassword,
		RedisDB:           c.RedisDB,
		RedisChannel:      c.RedisChannel,
		SchedulerInterval: c.SchedulerInterval,
		PlayerToken:       token,
		Logger:            logger,
	}, nil
}

// Run starts the battleground runtime.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(cfg.Log, entrypoint.ServiceBattleground)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	runtimeCfg, err := cfg.RuntimeConfig(logger)
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceBattleground, entrypoint.RunOptions{Logger: logger}, func(ctx context.Context) error {
		return app.Run(ctx, runtimeCfg)
	})
}
