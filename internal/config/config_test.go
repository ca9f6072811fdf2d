package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHEET_BACKEND", "")
	t.Setenv("SNAPSHOT_TTL", "")

	cfg := Load()
	assert.Equal(t, SheetBackendXLSX, cfg.SheetBackend)
	assert.Equal(t, "Sheet1", cfg.GradesWorksheet)
	assert.Equal(t, 30*time.Second, cfg.SnapshotTTL)
	assert.False(t, cfg.BatchWrites)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHEET_BACKEND", "Google")
	t.Setenv("SNAPSHOT_TTL", "90")
	t.Setenv("SHEET_BATCH_WRITES", "true")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	assert.Equal(t, SheetBackendGoogle, cfg.SheetBackend)
	assert.Equal(t, 90*time.Second, cfg.SnapshotTTL)
	assert.True(t, cfg.BatchWrites)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestGetEnvDurationFallback(t *testing.T) {
	t.Setenv("X_DURATION", "soon")
	assert.Equal(t, time.Minute, getEnvDuration("X_DURATION", time.Minute))

	t.Setenv("X_DURATION", "2m")
	assert.Equal(t, 2*time.Minute, getEnvDuration("X_DURATION", time.Minute))
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "sheet:sheet1:rows", CacheKey.SheetRowsKey(" Sheet1 "))
	assert.Equal(t, "session:abc", CacheKey.SessionKey("abc"))
}
