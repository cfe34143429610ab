package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetdesk/internal/db"
)

func TestSigningKeyGeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	key1, err := SigningKey(ctx, database)
	require.NoError(t, err)
	assert.Len(t, key1, 64) // 32 bytes = 64 hex chars

	key2, err := SigningKey(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
}
