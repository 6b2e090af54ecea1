package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostdesk/hosting-service/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "hosting-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 72, cfg.SLA.LowHours)
	assert.Equal(t, 4, cfg.SLA.HighHours)
	assert.False(t, cfg.SLA.AutoEscalate)
	assert.Equal(t, 5*time.Minute, cfg.SLA.SweepInterval())
	assert.Equal(t, 10*time.Second, cfg.Locks.TenantLockTTL())
}

func TestLoad_SLAOverrides(t *testing.T) {
	t.Setenv("SLA_HOURS_HIGH", "2")
	t.Setenv("SLA_HOURS_CRITICAL", "0")
	t.Setenv("SLA_AUTO_ESCALATE", "true")
	t.Setenv("SLA_SWEEP_INTERVAL_SECONDS", "60")

	cfg, err := Load()
	require.NoError(t, err)

	thresholds := cfg.SLA.Thresholds()
	assert.Equal(t, 2, thresholds[domain.TicketPriorityHigh])
	_, hasCritical := thresholds[domain.TicketPriorityCritical]
	assert.False(t, hasCritical, "zero hours falls back to the engine default")
	assert.True(t, cfg.SLA.AutoEscalate)
	assert.Equal(t, time.Minute, cfg.SLA.SweepInterval())
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestGetEnvHelpersFallback(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	t.Setenv("SOME_BOOL", "maybe")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
	assert.True(t, getEnvAsBool("SOME_BOOL", true))
	assert.Equal(t, "x", getEnv("UNSET_KEY_FOR_TEST", "x"))
}

func TestRequestTimeout_Disabled(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{RequestTimeoutSeconds: 0}.RequestTimeout())
}
