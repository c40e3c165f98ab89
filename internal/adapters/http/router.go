package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/adapters/signal"
	"github.com/circlechat/server/internal/auth"
	"github.com/circlechat/server/internal/config"
	"github.com/circlechat/server/internal/core"
)

// Deps is everything the router wires together. All of it is constructed in
// main and passed down; nothing here reaches for process-wide state.
type Deps struct {
	Config   *config.Config
	API      *API
	Signals  *signal.Controller
	Auth     *auth.Resolver
	Registry *core.Registry
}

func SetupRouter(ctx context.Context, d Deps) *gin.Engine {
	if d.Config.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if d.Config.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CORS(d.Config.AllowedOrigin))
	r.Use(IdentityMiddleware(d.Auth))

	log.Info().Str("module", "adapters.http").Str("origin", d.Config.AllowedOrigin).Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Live room snapshot, mainly for ops eyes
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": d.Registry.Snapshot()})
	})

	groups := api.Group("/groups")
	groups.POST("", d.API.createGroup)
	groups.GET("", d.API.listGroups)
	groups.GET("/:id", d.API.getGroup)
	groups.PUT("/:id", d.API.updateGroup)
	groups.DELETE("/:id", d.API.deleteGroup)
	groups.POST("/:id/leave", d.API.leaveGroup)
	groups.DELETE("/:id/members/:member", d.API.removeMember)
	groups.GET("/:id/messages", d.API.listMessages)
	groups.POST("/:id/messages", d.API.postMessage)
	groups.POST("/:id/invites", d.API.createInvite)
	groups.GET("/:id/invites", d.API.listInvites)

	api.POST("/invites/redeem", d.API.redeemInvite)

	api.GET("/users/me/profile", d.API.getProfile)
	api.PUT("/users/me/profile", d.API.putProfile)

	// Websocket entry point; token rides the query string because browser
	// websocket clients cannot set headers.
	r.GET("/ws/:group", func(c *gin.Context) {
		d.Signals.HandleSignal(ctx, c)
	})

	return r
}
