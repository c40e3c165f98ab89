package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/circlechat/server/internal/domain"
)

func TestGenerateCode_Shape(t *testing.T) {
	req := require.New(t)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := generateCode(domain.InviteCodeLen)
		req.NoError(err)
		req.Len(code, domain.InviteCodeLen)
		for _, ch := range code {
			req.True(strings.ContainsRune(domain.InviteCodeAlphabet, ch), "unexpected character %q", ch)
		}
		seen[code] = struct{}{}
	}
	// 100 draws from a 36^8 space should never collide
	req.Len(seen, 100)
}
