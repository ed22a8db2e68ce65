package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	t.Run("issued token parses back to the identity", func(t *testing.T) {
		tm := NewTokenManager("signing-key", 15)

		token, expiresAt, err := tm.GenerateToken(42)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

		claims, err := tm.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.ExternalID)
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		token, _, err := NewTokenManager("key-a", 15).GenerateToken(42)
		require.NoError(t, err)

		_, err = NewTokenManager("key-b", 15).ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := NewTokenManager("key", 15).ParseToken("not.a.token")
		assert.Error(t, err)
	})
}
