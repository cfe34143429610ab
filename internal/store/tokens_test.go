package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetdesk/internal/db"
)

func TestRevokeSession(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	revoked, err := SessionRevoked(ctx, database, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, RevokeSession(ctx, database, "jti-1", time.Now().Add(time.Hour)))

	revoked, err = SessionRevoked(ctx, database, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = SessionRevoked(ctx, database, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeSessionTwice(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, RevokeSession(ctx, database, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, RevokeSession(ctx, database, "jti-1", time.Now().Add(2*time.Hour)))
}

func TestRevokeSessionPrunesExpired(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, RevokeSession(ctx, database, "old", time.Now().Add(-time.Hour)))
	require.NoError(t, RevokeSession(ctx, database, "new", time.Now().Add(time.Hour)))

	revoked, err := SessionRevoked(ctx, database, "old")
	require.NoError(t, err)
	assert.False(t, revoked, "expired revocations are pruned")
}
