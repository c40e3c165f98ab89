// Package domain contains the entities shared across the server: plain data
// plus the validation rules that belong with it. No transport or storage
// logic here.
package domain

import (
	"errors"
	"strings"
)

const (
	MaxDisplayNameLen = 50

	// DefaultDisplayName is used whenever neither a profile nor a token
	// claim supplies one.
	DefaultDisplayName = "User"
)

var (
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

// UserID is the external identity a connection acts on behalf of. It is the
// subject of the caller's token; connections without a usable token share
// AnonymousID.
type UserID string

// AnonymousID identifies connections that arrive without a usable token.
const AnonymousID UserID = "anonymous"

// NormalizeDisplayName trims surrounding whitespace and enforces the length
// rules shared by the profile API and the chat path.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}
