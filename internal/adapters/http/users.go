package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/domain"
	"github.com/circlechat/server/internal/store"
)

func (a *API) getProfile(c *gin.Context) {
	user := identityOf(c).UserID
	profile, err := a.store.GetProfile(c.Request.Context(), user)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, domain.Profile{UserID: user})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("get profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (a *API) putProfile(c *gin.Context) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	name, err := domain.NormalizeDisplayName(req.DisplayName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := a.store.UpsertProfile(c.Request.Context(), identityOf(c).UserID, name)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("put profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, profile)
}
