package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GRADING_STRICT_LEVELS", "")
	t.Setenv("ANALYTICS_CACHE_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Grading.StrictLevelConsistency)
	assert.False(t, cfg.Analytics.CacheEnabled)
	assert.Equal(t, 10*time.Minute, cfg.Analytics.CacheTTL)
}

func TestLoadLenientGrading(t *testing.T) {
	t.Setenv("GRADING_STRICT_LEVELS", "false")
	t.Setenv("ENABLE_ANALYTICS_CACHE", "true")
	t.Setenv("ANALYTICS_CACHE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Grading.StrictLevelConsistency)
	assert.True(t, cfg.Analytics.CacheEnabled)
	assert.Equal(t, 90*time.Second, cfg.Analytics.CacheTTL)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
