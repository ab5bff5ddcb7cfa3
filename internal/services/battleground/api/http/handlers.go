package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/louisbranch/battleground/internal/platform/pagination"
	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
)

func (h *Handler) getConfig(c *gin.Context) {
	cfg, err := h.service.GetGameConfig(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGameConfigJSON(cfg))
}

func (h *Handler) getBattleground(c *gin.Context) {
	id, ok := h.battlegroundID(c)
	if !ok {
		return
	}
	b, err := h.service.GetBattleground(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBattlegroundJSON(b))
}

func (h *Handler) createBattleground(c *gin.Context) {
	var body createBattlegroundBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, invalidArgument(err.Error()))
		return
	}
	created, err := h.service.CreateBattleground(c.Request.Context(), body.request(callerFrom(c)))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBattlegroundJSON(created))
}

func (h *Handler) join(c *gin.Context) {
	id, ok := h.battlegroundID(c)
	if !ok {
		return
	}
	var body joinBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, invalidArgument(err.Error()))
		return
	}
	result, err := h.service.Join(c.Request.Context(), admission.JoinRequest{
		BattlegroundID:  id,
		Player:          callerFrom(c),
		Asset:           body.Asset,
		Attack:          body.Attack,
		Defense:         body.Defense,
		CollectionProof: body.CollectionProof,
		HolderProof:     body.HolderProof,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, joinResponse{
		Participant: toParticipantJSON(result.Participant),
		Fees: feesJSON{
			Protocol: result.Fees.Protocol,
			Creator:  result.Fees.Creator,
			Pot:      result.Fees.Pot,
		},
		EventID: result.Event.ID,
	})
}

func (h *Handler) listParticipants(c *gin.Context) {
	id, ok := h.battlegroundID(c)
	if !ok {
		return
	}
	pageSize, err := pagination.ParsePageSize(c.Query("page_size"))
	if err != nil {
		h.writeError(c, invalidArgument(err.Error()))
		return
	}
	page, err := h.service.ListParticipants(c.Request.Context(), admission.ListParticipantsRequest{
		BattlegroundID: id,
		Filter:         c.Query("filter"),
		OrderBy:        c.Query("order_by"),
		PageSize:       pageSize,
		PageToken:      c.Query("page_token"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := listParticipantsResponse{
		Participants:  make([]participantJSON, 0, len(page.Participants)),
		NextPageToken: page.NextPageToken,
	}
	for _, p := range page.Participants {
		resp.Participants = append(resp.Participants, toParticipantJSON(p))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getParticipant(c *gin.Context) {
	id, ok := h.battlegroundID(c)
	if !ok {
		return
	}
	asset, ok := h.assetParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := h.service.GetParticipant(ctx, id, asset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	b, err := h.service.GetBattleground(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, participantDetailJSON{
		participantJSON:       toParticipantJSON(p),
		ActionPointsAvailable: battleground.AvailableActionPoints(b, p, h.now().UTC()),
	})
}

func (h *Handler) finish(c *gin.Context) {
	id, ok := h.battlegroundID(c)
	if !ok {
		return
	}
	finished, err := h.service.Finish(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBattlegroundJSON(finished))
}

func (h *Handler) deposit(c *gin.Context) {
	var body depositBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, invalidArgument(err.Error()))
		return
	}
	if err := h.service.Deposit(c.Request.Context(), callerFrom(c), body.Owner, body.Asset, body.Amount); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) putAssetMetadata(c *gin.Context) {
	asset, ok := h.assetParam(c)
	if !ok {
		return
	}
	var body assetMetadataBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, invalidArgument(err.Error()))
		return
	}
	if err := h.service.RegisterAsset(c.Request.Context(), callerFrom(c), body.metadata(asset)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) battlegroundID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		h.writeError(c, invalidArgument("battleground id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (h *Handler) assetParam(c *gin.Context) (battleground.PublicKey, bool) {
	asset, err := battleground.ParsePublicKey(c.Param("asset"))
	if err != nil {
		h.writeError(c, invalidArgument("asset must be a 32-byte hex key"))
		return battleground.PublicKey{}, false
	}
	return asset, true
}
