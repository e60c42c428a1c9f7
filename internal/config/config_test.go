package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk-sla/internal/config"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("SLA_CRON_SECRET", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "dev-secret", cfg.Sla.CronSecret)
	assert.Equal(t, 4, cfg.Sla.DedupWindowHours)
	assert.InDelta(t, 0.25, cfg.Sla.AtRiskThreshold, 1e-9)
}

func TestLoadRequiresCronSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SLA_CRON_SECRET", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SLA configuration")
}

func TestLoadProductionWithExplicitSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SLA_CRON_SECRET", "prod-secret")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "prod-secret", cfg.Sla.CronSecret)
}
