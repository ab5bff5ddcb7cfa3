// Package app wires the battleground runtime: storage, admission service,
// event relay, scheduler, HTTP API and the gRPC health endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	platformgrpc "github.com/louisbranch/battleground/internal/platform/grpc"
	"github.com/louisbranch/battleground/internal/platform/timeouts"
	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	httpapi "github.com/louisbranch/battleground/internal/services/battleground/api/http"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/events"
	"github.com/louisbranch/battleground/internal/services/battleground/playertoken"
	"github.com/louisbranch/battleground/internal/services/battleground/scheduler"
	"github.com/louisbranch/battleground/internal/services/battleground/storage/postgres"
	"github.com/louisbranch/battleground/internal/services/battleground/storage/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Storage drivers accepted by RuntimeConfig.DBDriver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// HealthService is the gRPC health service name reported SERVING once the
// runtime is up.
const HealthService = "battleground.runtime"

const (
	defaultHTTPAddr = ":8080"
	defaultGRPCAddr = ":8081"
	defaultDBPath   = "data/battleground.db"
	requestTimeout  = 10 * time.Second
)

// RuntimeConfig controls runtime startup and dependencies.
type RuntimeConfig struct {
	HTTPAddr string
	GRPCAddr string

	DBDriver string
	DBPath   string
	DBDSN    string

	Admin          battleground.PublicKey
	Treasury       battleground.PublicKey
	ProtocolFeeBps uint16

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	SchedulerInterval time.Duration
	PlayerToken       playertoken.Config
	Logger            *zap.Logger
}

// Store is the storage surface the runtime needs from a backend.
type Store interface {
	admission.Store
	events.OutboxStore
	Ping(ctx context.Context) error
	Close() error
}

// Runtime holds the wired components of a running battleground process.
type Runtime struct {
	cfg       RuntimeConfig
	logger    *zap.Logger
	store     Store
	redis     *redis.Client
	service   *admission.Service
	relay     *events.Relay
	scheduler *scheduler.Scheduler
	router    *gin.Engine
}

// Run builds the runtime, listens on the configured addresses and serves
// until ctx is done.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	httpListener, err := net.Listen("tcp", rt.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on http addr %s: %w", rt.cfg.HTTPAddr, err)
	}
	grpcListener, err := net.Listen("tcp", rt.cfg.GRPCAddr)
	if err != nil {
		_ = httpListener.Close()
		return fmt.Errorf("listen on grpc addr %s: %w", rt.cfg.GRPCAddr, err)
	}
	return rt.Serve(ctx, httpListener, grpcListener)
}

// New validates cfg and wires every component without listening.
func New(ctx context.Context, cfg RuntimeConfig) (*Runtime, error) {
	cfg, err := normalize(cfg)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{cfg: cfg, logger: cfg.Logger}

	rt.store, err = openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := rt.newPublisher(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.relay, err = events.NewRelay(rt.store, publisher, events.WithRelayLogger(rt.logger))
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.service, err = admission.NewService(rt.store,
		admission.WithNotifier(rt.relay),
		admission.WithLogger(rt.logger),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.initGameConfig(ctx); err != nil {
		rt.Close()
		return nil, err
	}

	rt.scheduler, err = scheduler.New(rt.service, rt.relay, cfg.SchedulerInterval, scheduler.WithLogger(rt.logger))
	if err != nil {
		rt.Close()
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	rt.router, err = httpapi.NewRouter(httpapi.Options{
		Service:        rt.service,
		Verify:         httpapi.NewVerifier(cfg.PlayerToken),
		Logger:         rt.logger,
		RequestTimeout: requestTimeout,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Serve runs the HTTP server, the gRPC health server, the relay and the
// scheduler until ctx is done or one of them fails.
func (rt *Runtime) Serve(ctx context.Context, httpListener, grpcListener net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	grpcServer, healthServer := platformgrpc.NewHealthServer(HealthService)
	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- grpcServer.Serve(grpcListener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-grpcErr
	}()

	httpServer := &http.Server{
		Handler:           rt.router,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.Serve(httpListener)
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			rt.logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	relayDone := make(chan error, 1)
	go func() { relayDone <- rt.relay.Run(ctx) }()
	schedulerDone := make(chan error, 1)
	go func() { schedulerDone <- rt.scheduler.Run(ctx) }()
	defer func() {
		cancel()
		<-relayDone
		if err := <-schedulerDone; err != nil {
			rt.logger.Warn("scheduler stopped", zap.Error(err))
		}
	}()

	// Events committed before a restart are published without waiting for
	// the first join.
	rt.relay.Notify()
	platformgrpc.SetServing(healthServer, HealthService)
	rt.logger.Info("battleground serving",
		zap.String("http_addr", httpListener.Addr().String()),
		zap.String("grpc_addr", grpcListener.Addr().String()),
		zap.String("db_driver", rt.cfg.DBDriver),
	)

	select {
	case <-ctx.Done():
		return nil
	case err := <-httpErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case err := <-grpcErr:
		grpcErr <- err
		return fmt.Errorf("serve grpc: %w", err)
	}
}

// Service returns the admission service.
func (rt *Runtime) Service() *admission.Service {
	return rt.service
}

// Handler returns the HTTP handler.
func (rt *Runtime) Handler() http.Handler {
	return rt.router
}

// Close releases the store and the Redis client.
func (rt *Runtime) Close() {
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.logger.Warn("close redis client", zap.Error(err))
		}
		rt.redis = nil
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Warn("close store", zap.Error(err))
		}
		rt.store = nil
	}
}

func normalize(cfg RuntimeConfig) (RuntimeConfig, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if strings.TrimSpace(cfg.GRPCAddr) == "" {
		cfg.GRPCAddr = defaultGRPCAddr
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBDriver == "" {
		cfg.DBDriver = DriverSQLite
	}
	switch cfg.DBDriver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.DBPath) == "" {
			cfg.DBPath = defaultDBPath
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.DBDSN) == "" {
			return RuntimeConfig{}, errors.New("postgres dsn is required")
		}
	default:
		return RuntimeConfig{}, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
	if cfg.Admin.IsZero() {
		return RuntimeConfig{}, errors.New("admin is required")
	}
	if cfg.Treasury.IsZero() {
		return RuntimeConfig{}, errors.New("treasury is required")
	}
	if cfg.PlayerToken.Issuer == "" || cfg.PlayerToken.Audience == "" || len(cfg.PlayerToken.Key) == 0 {
		return RuntimeConfig{}, errors.New("player token verifier is required")
	}
	if cfg.SchedulerInterval <= 0 {
		cfg.SchedulerInterval = scheduler.DefaultInterval
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg RuntimeConfig) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOpen)
	defer cancel()

	switch cfg.DBDriver {
	case DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	}
}

func (rt *Runtime) newPublisher(ctx context.Context) (events.Publisher, error) {
	if strings.TrimSpace(rt.cfg.RedisAddr) == "" {
		rt.logger.Info("redis not configured, logging events instead")
		return events.NewLogPublisher(rt.logger), nil
	}
	rt.redis = redis.NewClient(&redis.Options{
		Addr:     rt.cfg.RedisAddr,
		Password: rt.cfg.RedisPassword,
		DB:       rt.cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Publish)
	defer cancel()
	if err := rt.redis.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", rt.cfg.RedisAddr, err)
	}
	return events.NewRedisPublisher(rt.redis, rt.cfg.RedisChannel)
}

func (rt *Runtime) initGameConfig(ctx context.Context) error {
	current, created, err := rt.service.InitGameConfig(ctx, battleground.GameConfig{
		Admin:          rt.cfg.Admin,
		Treasury:       rt.cfg.Treasury,
		ProtocolFeeBps: rt.cfg.ProtocolFeeBps,
	})
	if err != nil {
		return fmt.Errorf("init game config: %w", err)
	}
	if !created && (current.Admin != rt.cfg.Admin || current.Treasury != rt.cfg.Treasury || current.ProtocolFeeBps != rt.cfg.ProtocolFeeBps) {
		rt.logger.Warn("stored game config differs from configuration; keeping stored values",
			zap.Stringer("admin", current.Admin),
			zap.Stringer("treasury", current.Treasury),
			zap.Uint16("protocol_fee_bps", current.ProtocolFeeBps),
		)
	}
	return nil
}
