package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[backend]
base_url = "http://tutor.internal:9000/"

[defaults]
course_id = "file-course"
user_id = "file-user"

[supabase]
url = "https://proj.supabase.co"
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DEFAULT_USER_ID", "env-user")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("TRANSCRIPT_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://tutor.internal:9000", cfg.Backend.BaseURL)
	assert.Equal(t, "file-course", cfg.Defaults.CourseID)
	assert.Equal(t, "env-user", cfg.Defaults.UserID)
	assert.True(t, cfg.AuthEnabled())
	assert.True(t, cfg.Transcript.Enabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, "0.0.0.0:8501", cfg.HTTPAddr())
}

func TestLoadRequiresBackend(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("BACKEND_BASE_URL", "  ")

	_, err := Load()
	assert.Error(t, err)
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.Supabase.URL = "https://proj.supabase.co"
	assert.False(t, cfg.AuthEnabled())
}

func TestUploadAndRedisTuningFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("UPLOAD_MAX_IMAGE_MB", "5")
	t.Setenv("REDIS_POOL_SIZE", "32")
	t.Setenv("REDIS_READ_TIMEOUT_MS", "750")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(5<<20), cfg.MaxImageBytes())
	assert.Equal(t, 32, cfg.Redis.PoolSize)
	assert.Equal(t, 750, cfg.Redis.ReadTimeoutMS)
	assert.Equal(t, 3000, cfg.Redis.DialTimeoutMS)

	cfg.Upload.MaxImageMB = 0
	assert.Zero(t, cfg.MaxImageBytes())
}
