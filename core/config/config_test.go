package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 4, cfg.Reconciler.Concurrency)
	assert.Same(t, cfg, Global)
}

func TestLoadConfigOverrides(t *testing.T) {
	viper.Set("gateway_url", "https://gw.example.com/")
	viper.Set("app_basic_auth", "admin:secret, ops:pw ")
	viper.Set("webhook_public_url", "https://juris.example.com/")
	t.Cleanup(func() {
		viper.Set("gateway_url", nil)
		viper.Set("app_basic_auth", nil)
		viper.Set("webhook_public_url", nil)
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://gw.example.com", cfg.Gateway.BaseURL)
	assert.Equal(t, []string{"admin:secret", "ops:pw"}, cfg.App.BasicAuth)
	assert.Equal(t, "https://juris.example.com/webhook/tenant-1", cfg.WebhookURL("tenant-1"))
	assert.Equal(t, "", cfg.WebhookURL(""))
}

func TestLoadConfigManageCases(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Database.ManageCases)

	viper.Set("db_driver", "postgres")
	t.Cleanup(func() { viper.Set("db_driver", nil) })

	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Database.ManageCases)
}
