package httpapi

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/platform/requestctx"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/playertoken"
)

const playerContextKey = "battleground.player"

func (h *Handler) requirePlayer(c *gin.Context) {
	token, ok := playertoken.FromAuthorization(c.GetHeader("Authorization"))
	if !ok {
		h.writeError(c, apperrors.New(apperrors.CodePlayerTokenInvalid, "bearer player token is required"))
		return
	}
	claims, err := h.verify(token)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set(playerContextKey, claims.Player)
	c.Request = c.Request.WithContext(requestctx.WithPlayerID(c.Request.Context(), claims.Player.String()))
	c.Next()
}

func callerFrom(c *gin.Context) battleground.PublicKey {
	player, _ := c.MustGet(playerContextKey).(battleground.PublicKey)
	return player
}
