// Package httpapi exposes the battleground service over JSON HTTP.
//
// Reads are public. Writes require a player token in the Authorization
// header; the token subject is the acting wallet. Errors are rendered as
// google.rpc.Status JSON with messages localized from Accept-Language.
package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/louisbranch/battleground/internal/platform/logging"
	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
	"github.com/louisbranch/battleground/internal/services/battleground/playertoken"
	"go.uber.org/zap"
)

// Service is the admission surface served over HTTP.
type Service interface {
	GetGameConfig(ctx context.Context) (battleground.GameConfig, error)
	CreateBattleground(ctx context.Context, req admission.CreateBattlegroundRequest) (battleground.Battleground, error)
	GetBattleground(ctx context.Context, id uint64) (battleground.Battleground, error)
	Join(ctx context.Context, req admission.JoinRequest) (admission.JoinResult, error)
	GetParticipant(ctx context.Context, battlegroundID uint64, asset battleground.PublicKey) (battleground.Participant, error)
	ListParticipants(ctx context.Context, req admission.ListParticipantsRequest) (admission.ListParticipantsPage, error)
	Finish(ctx context.Context, caller battleground.PublicKey, id uint64) (battleground.Battleground, error)
	Deposit(ctx context.Context, caller, owner, asset battleground.PublicKey, amount uint64) error
	RegisterAsset(ctx context.Context, caller battleground.PublicKey, meta provenance.Metadata) error
}

// Verifier validates a bearer token and returns its claims.
type Verifier func(token string) (playertoken.Claims, error)

// NewVerifier verifies tokens against cfg.
func NewVerifier(cfg playertoken.Config) Verifier {
	return func(token string) (playertoken.Claims, error) {
		return playertoken.Verify(token, cfg)
	}
}

// Options configures the HTTP handler.
type Options struct {
	Service Service
	Verify  Verifier
	Logger  *zap.Logger
	// RequestTimeout bounds each request context. Zero disables it.
	RequestTimeout time.Duration
	// Now reports the time used for action point accrual. Defaults to
	// time.Now.
	Now func() time.Time
}

// Handler serves the HTTP API.
type Handler struct {
	service Service
	verify  Verifier
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.Service == nil {
		return nil, errors.New("service is required")
	}
	if opts.Verify == nil {
		return nil, errors.New("token verifier is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	h := &Handler{service: opts.Service, verify: opts.Verify, logger: logger, timeout: opts.RequestTimeout, now: now}

	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(logger), h.withTimeout)
	router.NoRoute(h.notFound)

	v1 := router.Group("/v1")
	v1.GET("/config", h.getConfig)
	v1.GET("/battlegrounds/:id", h.getBattleground)
	v1.GET("/battlegrounds/:id/participants", h.listParticipants)
	v1.GET("/battlegrounds/:id/participants/:asset", h.getParticipant)

	authed := v1.Group("", h.requirePlayer)
	authed.POST("/battlegrounds", h.createBattleground)
	authed.POST("/battlegrounds/:id/participants", h.join)
	authed.POST("/battlegrounds/:id/finish", h.finish)
	authed.POST("/admin/deposits", h.deposit)
	authed.PUT("/admin/assets/:asset/metadata", h.putAssetMetadata)

	return router, nil
}

func (h *Handler) withTimeout(c *gin.Context) {
	if h.timeout <= 0 {
		c.Next()
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
