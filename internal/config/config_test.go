package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DEFAULT_METHODS", "GET,POST")
	t.Setenv("MAX_PER_PAGE", "50")
	t.Setenv("DEFAULT_PER_PAGE", "10")
	t.Setenv("COUNT_CACHE", "memory")
	t.Setenv("COUNT_CACHE_TTL", "5s")
	t.Setenv("AUTH_JWT_VALIDATION_TYPE", "rs256")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, []string{"GET", "POST"}, cfg.API.DefaultMethods)
	assert.Equal(t, 50, cfg.API.MaxPerPage)
	assert.Equal(t, 10, cfg.API.DefaultPerPage)
	assert.Equal(t, "memory", cfg.CountCache.Mode)
	assert.Equal(t, 5*time.Second, cfg.CountCache.TTL)
	assert.Equal(t, "RS256", cfg.Auth.JWT.ValidationType)
}

func TestLoadConfigClampsDefaultPerPage(t *testing.T) {
	t.Setenv("MAX_PER_PAGE", "30")
	t.Setenv("DEFAULT_PER_PAGE", "500")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.API.DefaultPerPage)
}

func TestParseExcludes(t *testing.T) {
	t.Run("groups", func(t *testing.T) {
		got, err := ParseExcludes("all:_secret; sort:description, name")
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{
			"all":  {"_secret"},
			"sort": {"description", "name"},
		}, got)
	})

	t.Run("empty", func(t *testing.T) {
		got, err := ParseExcludes("  ")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("missing colon", func(t *testing.T) {
		_, err := ParseExcludes("sort")
		assert.Error(t, err)
	})
}
