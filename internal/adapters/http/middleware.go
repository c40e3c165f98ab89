package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/circlechat/server/internal/auth"
)

// IdentityMiddleware resolves the bearer token once per request. Requests
// without a usable token proceed as the anonymous identity; route handlers
// apply their own ownership and membership rules.
func IdentityMiddleware(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
		c.Set(ctxIdentity, resolver.Resolve(token))
		c.Next()
	}
}

// CORS keeps the browser frontend on a different origin working. The
// websocket route does its own origin handling in the upgrader.
func CORS(allowOrigin string) gin.HandlerFunc {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
