package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/treefam/treefam-backend/internal/core/domain/token"
)

func TestPurposeIsValid(t *testing.T) {
	require.True(t, token.PurposeVerify.IsValid())
	require.True(t, token.PurposeReset.IsValid())
	require.False(t, token.Purpose("").IsValid())
	require.False(t, token.Purpose("session").IsValid())
}

func TestHashSecretIsStableHex(t *testing.T) {
	h1 := token.HashSecret("some-secret")
	h2 := token.HashSecret("some-secret")
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)

	require.NotEqual(t, h1, token.HashSecret("other-secret"))
}

func TestIsExpiredBoundary(t *testing.T) {
	now := time.Now().UTC()
	tok := token.SecretToken{ExpiresAt: now}

	// a token expiring exactly now is still valid
	require.False(t, tok.IsExpired(now))
	require.True(t, tok.IsExpired(now.Add(time.Nanosecond)))
	require.False(t, tok.IsExpired(now.Add(-time.Nanosecond)))
}
