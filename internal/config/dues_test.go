package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDuesConfigDefaults(t *testing.T) {
	holder, err := loadDuesConfig(nil, t.TempDir())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 7, cfg.UpcomingWindowDays)
	assert.Equal(t, "PEN", cfg.Currency)
	assert.Equal(t, int32(2), cfg.CurrencyScale)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Len(t, cfg.PaymentMethods, 4)
}

func TestLoadDuesConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`dues:
  upcomingWindowDays: 14
  currency: usd
  paymentMethods:
    - Cash
    - card
  lockTTL: 3s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dues.yml"), content, 0o600))

	holder, err := loadDuesConfig(nil, dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 14, cfg.UpcomingWindowDays)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, []string{"cash", "card"}, cfg.PaymentMethods)
	assert.Equal(t, 3*time.Second, cfg.LockTTL)
	assert.Equal(t, int32(2), cfg.CurrencyScale)
}

func TestLoadDuesConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	content := []byte("dues:\n  upcomingWindowDays: -1\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dues.yml"), content, 0o600))

	_, err := loadDuesConfig(nil, dir)
	assert.Error(t, err)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *DuesConfigHolder
	assert.Equal(t, DefaultDuesConfig(), holder.Get())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DUES_STORE", "REST")
	t.Setenv("BACKEND_TIMEOUT_MS", "1500")
	t.Setenv("MARKET_TIMEZONE", "America/Lima")

	cfg := Load()
	assert.True(t, cfg.UsesBackend())
	assert.Equal(t, 1500*time.Millisecond, cfg.Backend.Timeout)
	assert.Equal(t, "America/Lima", cfg.Location().String())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Config{MarketTimezone: "Nowhere/Invalid"}
	assert.Equal(t, time.UTC, cfg.Location())
}
