package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteByPattern(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, "permissions:role:manager", "{}", 0).Err())
	require.NoError(t, rdb.Set(ctx, "permissions:role:user", "{}", 0).Err())
	require.NoError(t, rdb.Set(ctx, "user:1:session:x", "1", 0).Err())

	n, err := DeleteByPattern(ctx, rdb, "permissions:role:*")
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("permissions:role:manager"))
	assert.True(t, mr.Exists("user:1:session:x"))
}
