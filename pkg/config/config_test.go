package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CatalogConfig(t *testing.T) {
	// Setup environment variables
	os.Setenv("CATALOG_BASE_URL", "http://catalog.test/api")
	os.Setenv("CATALOG_REQUEST_TIMEOUT", "3s")
	defer func() {
		os.Unsetenv("CATALOG_BASE_URL")
		os.Unsetenv("CATALOG_REQUEST_TIMEOUT")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://catalog.test/api", cfg.Catalog.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Catalog.RequestTimeout)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Catalog.RequestTimeout)
	assert.Equal(t, 500, cfg.Catalog.FetchAllPageSize)
	assert.Equal(t, 9, cfg.Session.GridPageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.Session.AnimationBudget)
	assert.Equal(t, "ltr", cfg.Session.TextDirection)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	os.Setenv("SESSION_ANIMATION_BUDGET", "soon")
	defer os.Unsetenv("SESSION_ANIMATION_BUDGET")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, cfg.Session.AnimationBudget)
}

func TestLoad_RejectsUnknownTextDirection(t *testing.T) {
	os.Setenv("SESSION_TEXT_DIRECTION", "ttb")
	defer os.Unsetenv("SESSION_TEXT_DIRECTION")

	_, err := Load()
	assert.Error(t, err)
}
