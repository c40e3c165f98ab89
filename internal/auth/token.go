// Package auth resolves the identity behind websocket and API calls from
// bearer tokens. Tokens are issued by the frontend's auth provider; the
// server only reads them.
package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/circlechat/server/internal/domain"
)

// Identity is what a token resolves to. Name is a display-name hint taken
// from the claims and may be empty.
type Identity struct {
	UserID domain.UserID
	Name   string
}

// Anonymous is handed out for missing or unusable tokens, so the realtime
// path never rejects on auth alone.
var Anonymous = Identity{UserID: domain.AnonymousID}

// nameClaims are tried in order for a display-name hint.
var nameClaims = [...]string{"username", "name", "first_name", "email"}

// Resolver turns bearer tokens into identities. With a secret it verifies
// HMAC signatures; without one it trusts the payload as-is, which keeps
// local setups working without an auth provider.
type Resolver struct {
	secret []byte
}

func NewResolver(secret string) *Resolver {
	r := &Resolver{}
	if secret != "" {
		r.secret = []byte(secret)
	}
	return r
}

// Resolve never fails: any token trouble degrades to Anonymous.
func (r *Resolver) Resolve(token string) Identity {
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous
	}

	claims := jwt.MapClaims{}
	var err error
	if r.secret != nil {
		_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
			}
			return r.secret, nil
		})
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "auth").Msg("token rejected")
		return Anonymous
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Anonymous
	}
	return Identity{UserID: domain.UserID(sub), Name: nameHint(claims)}
}

func nameHint(claims jwt.MapClaims) string {
	for _, key := range nameClaims {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
