package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("MEDIA_DRIVER", "")
	t.Setenv("AUTH_TOKEN_TTL_HOURS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, MediaDriverLocal, cfg.Media.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, 5, cfg.Media.MaxFiles)
	assert.Equal(t, int64(25*1024*1024), cfg.Media.MaxFileBytes())
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("MEDIA_DRIVER", "s3")
	t.Setenv("S3_BUCKET", "")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	require.Error(t, err)
}

func TestIntFallbacks(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("MEDIA_MAX_FILES", "many")
	t.Setenv("STATS_CACHE_TTL_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Media.MaxFiles)
	assert.Zero(t, cfg.Redis.StatsCacheTTL())
}
