package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodle-app/foodle/config"
	"github.com/foodle-app/foodle/pkg/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	config.Set("JWT_SECRET", "test-secret")

	signed, issued, err := auth.GenerateToken("user-1", "vendor")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := auth.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "vendor", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Positive(t, claims.Remaining())
}

func TestValidateToken_RejectsForeignSecret(t *testing.T) {
	config.Set("JWT_SECRET", "one")
	signed, _, err := auth.GenerateToken("user-1", "student")
	require.NoError(t, err)

	config.Set("JWT_SECRET", "two")
	_, err = auth.ValidateToken(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = auth.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "hunter22"))
	assert.False(t, auth.CheckPassword(hash, "hunter23"))
}

func TestDenyList_MemoryFallback(t *testing.T) {
	config.Set("JWT_SECRET", "test-secret")
	_, claims, err := auth.GenerateToken("user-1", "student")
	require.NoError(t, err)

	d := auth.NewDenyList()
	ctx := context.Background()
	assert.False(t, d.Revoked(ctx, claims.ID))
	require.NoError(t, d.Revoke(ctx, claims))
	assert.True(t, d.Revoked(ctx, claims.ID))
	assert.False(t, d.Revoked(ctx, "other"))
	require.NoError(t, d.Prune(ctx))
	assert.True(t, d.Revoked(ctx, claims.ID), "unexpired entries survive a prune")
}
