package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/domain"
	"github.com/circlechat/server/internal/store"
)

func (a *API) createGroup(c *gin.Context) {
	user := identityOf(c).UserID
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrGroupNameEmpty.Error()})
		return
	}
	group, err := a.store.CreateGroup(c.Request.Context(), name, strings.TrimSpace(req.Description), user)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create group")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (a *API) listGroups(c *gin.Context) {
	groups, err := a.store.ListGroupsFor(c.Request.Context(), identityOf(c).UserID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list groups")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, groups)
}

// memberGroup loads the group and enforces membership. A nil return means
// the response was already written.
func (a *API) memberGroup(c *gin.Context) *domain.Group {
	group, err := a.store.GetGroup(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return nil
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("load group")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return nil
	}
	if !group.HasMember(identityOf(c).UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a group member"})
		return nil
	}
	return &group
}

func (a *API) getGroup(c *gin.Context) {
	if group := a.memberGroup(c); group != nil {
		c.JSON(http.StatusOK, group)
	}
}

func (a *API) updateGroup(c *gin.Context) {
	group := a.memberGroup(c)
	if group == nil {
		return
	}
	if group.OwnerID != identityOf(c).UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner only"})
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = group.Name
	}
	description := strings.TrimSpace(req.Description)
	updated, err := a.store.UpdateGroup(c.Request.Context(), group.ID, name, description)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("update group")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (a *API) deleteGroup(c *gin.Context) {
	group := a.memberGroup(c)
	if group == nil {
		return
	}
	if group.OwnerID != identityOf(c).UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner only"})
		return
	}
	if err := a.store.DeleteGroup(c.Request.Context(), group.ID); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("delete group")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) leaveGroup(c *gin.Context) {
	group := a.memberGroup(c)
	if group == nil {
		return
	}
	// The owner stays until the group is deleted or handed over.
	if group.OwnerID == identityOf(c).UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner cannot leave"})
		return
	}
	if err := a.store.LeaveGroup(c.Request.Context(), group.ID, identityOf(c).UserID); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("leave group")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.Status(http.StatusNoContent)
}

// removeMember kicks a member out. Only the owner may do it, and the owner
// cannot kick themselves.
func (a *API) removeMember(c *gin.Context) {
	group := a.memberGroup(c)
	if group == nil {
		return
	}
	if group.OwnerID != identityOf(c).UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner only"})
		return
	}
	member := domain.UserID(c.Param("member"))
	if member == group.OwnerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot remove owner"})
		return
	}
	if !group.HasMember(member) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not a member"})
		return
	}
	if err := a.store.LeaveGroup(c.Request.Context(), group.ID, member); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("remove member")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) listMessages(c *gin.Context) {
	group := a.memberGroup(c)
	if group == nil {
		return
	}
	limit := a.historyLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	messages, err := a.store.ListMessages(c.Request.Context(), domain.RoomID(group.ID), limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

// postMessage persists a chat line over REST. It shares the store call with
// the websocket path but does not fan out to live sockets; clients pick the
// message up from history.
func (a *API) postMessage(c *gin.Context) {
	group := a.memberGroup(c)
	if group == nil {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrContentEmpty.Error()})
		return
	}
	id := identityOf(c)
	msg := domain.Message{
		GroupID:  domain.RoomID(group.ID),
		UserID:   id.UserID,
		Username: a.store.DisplayNameFor(c.Request.Context(), id.UserID, id.Name),
		Content:  content,
	}
	saved, err := a.store.SaveMessage(c.Request.Context(), msg)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusCreated, saved)
}
