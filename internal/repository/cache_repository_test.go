package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil, "tests", nil)
	ctx := context.Background()

	var dest map[string]int
	err := repo.Get(ctx, "analytics:x", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "analytics:x", map[string]int{"a": 1}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "analytics:*"))
	n, err := repo.Incr(ctx, "generation:analytics:")
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, repo.Close())
}

func TestCacheRepositoryPrefixesKeys(t *testing.T) {
	assert.Equal(t, "tests:analytics:a", NewCacheRepository(nil, "tests", nil).key("analytics:a"))
	assert.Equal(t, "analytics:a", NewCacheRepository(nil, "", nil).key("analytics:a"))
}
