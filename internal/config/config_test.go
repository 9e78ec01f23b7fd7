package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "PATCHGEST_API_KEY", "DATABASE_PATH", "PATHSTORE_URL", "WORKER_COUNT", "JOB_TTL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "patchgest.db", cfg.DatabasePath)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.Equal(t, 14, cfg.VersionMajorMin)
	assert.False(t, cfg.MirrorEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "7")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("MAX_QUEUE_SIZE", "-3")
	t.Setenv("MIN_CONTENT_CHARS", "bogus")

	cfg := Load()
	assert.Equal(t, 7, cfg.WorkerCount)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 100, cfg.MaxQueueSize)
	assert.Equal(t, 200, cfg.MinContentChars)
}

func TestValidate(t *testing.T) {
	ok := Config{APIKey: "k", VersionMajorMin: 14, VersionMajorMax: 16, VersionMinorMax: 24}
	assert.NoError(t, ok.Validate())

	noKey := ok
	noKey.APIKey = ""
	assert.Error(t, noKey.Validate())

	mirror := ok
	mirror.PathstoreURL = "http://ps"
	assert.Error(t, mirror.Validate())
	mirror.PathstoreAPIKey = "p"
	assert.NoError(t, mirror.Validate())

	badRange := ok
	badRange.VersionMajorMin = 17
	assert.Error(t, badRange.Validate())
}
