package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("RAILRULES_JWT_SECRET", "secret")
	t.Setenv("RAILRULES_DATABASE_URL", "postgres://localhost/railrules")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Railway Rules API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 10, cfg.DiffLookahead)
	require.Equal(t, 10*time.Minute, cfg.HighlightTTL)
	require.Equal(t, 30*time.Second, cfg.StreamTimeout)
	require.Equal(t, "railrules", cfg.ChannelBase)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("RAILRULES_JWT_SECRET", "secret")
	t.Setenv("RAILRULES_DATABASE_URL", "postgres://localhost/railrules")
	t.Setenv("RAILRULES_DIFF_LOOKAHEAD", "25")
	t.Setenv("RAILRULES_HIGHLIGHT_CACHE_TTL", "90s")
	t.Setenv("RAILRULES_APP_PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 25, cfg.DiffLookahead)
	require.Equal(t, 90*time.Second, cfg.HighlightTTL)
	require.Equal(t, ":9090", cfg.HTTPAddress())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("RAILRULES_DATABASE_URL", "postgres://localhost/railrules")

	t.Setenv("RAILRULES_JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("RAILRULES_JWT_SECRET", "secret")
	t.Setenv("RAILRULES_HIGHLIGHT_CACHE_TTL", "soon")
	_, err = Load()
	require.ErrorContains(t, err, "highlight.cache_ttl")
}
