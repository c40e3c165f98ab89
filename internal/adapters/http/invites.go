package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/store"
)

func (a *API) createInvite(c *gin.Context) {
	group := a.memberGroup(c)
	if group == nil {
		return
	}
	invite, err := a.store.CreateInvite(c.Request.Context(), group.ID, identityOf(c).UserID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create invite")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusCreated, invite)
}

func (a *API) listInvites(c *gin.Context) {
	group := a.memberGroup(c)
	if group == nil {
		return
	}
	invites, err := a.store.ListInvites(c.Request.Context(), group.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list invites")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, invites)
}

func (a *API) redeemInvite(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	group, err := a.store.RedeemInvite(c.Request.Context(), req.Code, identityOf(c).UserID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid invite code"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("redeem invite")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, group)
}
