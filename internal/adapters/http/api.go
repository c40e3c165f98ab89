// Package http is the REST adapter: group and invite management, message
// history, and user profiles. The websocket endpoint is mounted here too,
// but its protocol lives in the signal package.
package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/circlechat/server/internal/auth"
	"github.com/circlechat/server/internal/domain"
)

// Store is the persistence surface the API sits on.
type Store interface {
	CreateGroup(ctx context.Context, name, description string, owner domain.UserID) (domain.Group, error)
	GetGroup(ctx context.Context, id string) (domain.Group, error)
	ListGroupsFor(ctx context.Context, user domain.UserID) ([]domain.Group, error)
	UpdateGroup(ctx context.Context, id, name, description string) (domain.Group, error)
	LeaveGroup(ctx context.Context, id string, user domain.UserID) error
	DeleteGroup(ctx context.Context, id string) error
	ListMessages(ctx context.Context, group domain.RoomID, limit int64) ([]domain.Message, error)
	SaveMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
	DisplayNameFor(ctx context.Context, user domain.UserID, hint string) string
	CreateInvite(ctx context.Context, group string, by domain.UserID) (domain.Invite, error)
	ListInvites(ctx context.Context, group string) ([]domain.Invite, error)
	RedeemInvite(ctx context.Context, code string, user domain.UserID) (domain.Group, error)
	GetProfile(ctx context.Context, user domain.UserID) (domain.Profile, error)
	UpsertProfile(ctx context.Context, user domain.UserID, displayName string) (domain.Profile, error)
}

// API carries the handler set. One instance per process.
type API struct {
	store        Store
	historyLimit int64
}

func NewAPI(store Store, historyLimit int64) *API {
	return &API{store: store, historyLimit: historyLimit}
}

const ctxIdentity = "identity"

// identityOf reads the identity the middleware resolved for this request.
func identityOf(c *gin.Context) auth.Identity {
	if v, ok := c.Get(ctxIdentity); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Anonymous
}
