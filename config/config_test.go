package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/boxgate/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Server.TrustProxyHeaders)
	assert.Equal(t, int64(0), cfg.Server.MaxUploadSize)
	assert.Equal(t, 30*time.Second, cfg.Server.BackendTimeout)

	assert.Equal(t, 120, cfg.RateLimit.GlobalLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.GlobalWindow)
	assert.Equal(t, 20, cfg.RateLimit.UnauthorizedLimit)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.UnauthorizedWindow)
	assert.Equal(t, "memory", cfg.RateLimit.Store)

	assert.Equal(t, "filesystem", cfg.Storage.Type)
	assert.Equal(t, "./data", cfg.Storage.Path)

	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "boxgate.db", cfg.Database.DSN)
	assert.Equal(t, "redirects", cfg.Database.Tables.Redirects)
	assert.Equal(t, "rate_buckets", cfg.Database.Tables.RateBuckets)
	assert.True(t, cfg.Database.AutoMigrate)

	assert.Equal(t, 1000, cfg.List.PageSize)
	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
env: prod
server:
  addr: 127.0.0.1:9000
  trust_proxy_headers: true
  max_upload_size: 1048576
  backend_timeout: 3s
auth:
  token_env: GATE_TOKEN
ratelimit:
  global_limit: 60
  global_window: 30s
  store: database
storage:
  type: s3
  s3:
    bucket: boxes
    endpoint: https://acct.r2.cloudflarestorage.com
    use_path_style: true
database:
  type: postgres
  dsn: postgres://localhost/boxgate
  tables:
    redirects: gate_redirects
    rate_buckets: gate_buckets
  auto_migrate: false
cors:
  allowed_origins:
    - https://boxes.example.com
  max_age: 600
metrics:
  enabled: true
  addr: 127.0.0.1:9100
log:
  level: debug
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.Server.TrustProxyHeaders)
	assert.Equal(t, int64(1048576), cfg.Server.MaxUploadSize)
	assert.Equal(t, 3*time.Second, cfg.Server.BackendTimeout)
	assert.Equal(t, "GATE_TOKEN", cfg.Auth.Env)

	assert.Equal(t, 60, cfg.RateLimit.GlobalLimit)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Limiter().GlobalWindow)
	assert.Equal(t, "database", cfg.RateLimit.Store)

	assert.Equal(t, "s3", cfg.Storage.Type)
	s3cfg := cfg.Storage.S3.Store()
	assert.Equal(t, "boxes", s3cfg.Bucket)
	assert.Equal(t, "auto", s3cfg.Region)
	assert.True(t, s3cfg.UsePathStyle)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "gate_redirects", cfg.Database.Tables.Redirects)
	assert.Equal(t, "gate_buckets", cfg.Database.Tables.RateBuckets)
	assert.False(t, cfg.Database.AutoMigrate)

	assert.Equal(t, []string{"https://boxes.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 600, cfg.CORS.MaxAge)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	base := writeConfig(t, "base.yaml", `
server:
  addr: :8080
database:
  type: sqlite
  dsn: base.db
log:
  level: info
`)
	override := writeConfig(t, "override.yaml", `
server:
  addr: :9000
log:
  level: warn
`)

	cfg, err := config.Load([]string{base, override}, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "base.db", cfg.Database.DSN)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown env", "env: staging\n"},
		{"unknown storage", "storage:\n  type: ftp\n"},
		{"s3 without bucket", "storage:\n  type: s3\n"},
		{"unknown database", "database:\n  type: mysql\n"},
		{"bad table name", "database:\n  tables:\n    redirects: Bad-Name\n"},
		{"same table names", "database:\n  tables:\n    redirects: t\n    rate_buckets: t\n"},
		{"zero limit", "ratelimit:\n  global_limit: 0\n"},
		{"sub-second window", "ratelimit:\n  global_window: 10ms\n"},
		{"unknown counter store", "ratelimit:\n  store: redis\n"},
		{"page size too large", "list:\n  page_size: 5000\n"},
		{"negative upload size", "server:\n  max_upload_size: -1\n"},
		{"bad log level", "log:\n  level: verbose\n"},
		{"metrics on server addr", "metrics:\n  enabled: true\n  addr: :8080\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", tt.content)

			_, err := config.Load([]string{path}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("BOXGATE_SERVER_ADDR", ":7070")
	t.Setenv("BOXGATE_DATABASE_TYPE", "postgres")
	t.Setenv("BOXGATE_DATABASE_DSN", "postgres://db/boxgate")
	t.Setenv("BOXGATE_AUTH_TOKEN", "from-env")
	t.Setenv("BOXGATE_RATELIMIT_GLOBAL_WINDOW", "2m")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://db/boxgate", cfg.Database.DSN)
	assert.Equal(t, "from-env", cfg.Auth.Token)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.GlobalWindow)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("BOXGATE_SERVER_ADDR", ":7070")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "", "")
	flags.String("db-dsn", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--addr", ":6060", "--log-level", "debug"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, ":6060", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "boxgate.db", cfg.Database.DSN, "unset flags do not override")
}

func TestListConfig_Service(t *testing.T) {
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	svc := cfg.List.Service()
	assert.Equal(t, 1000, svc.ListPageSize)
	assert.Equal(t, 100, svc.MaxListPages)
	assert.Equal(t, 1000, svc.DeleteBatchSize)
}

func TestFromContext_Missing(t *testing.T) {
	_, err := config.FromContext(context.Background())
	assert.Error(t, err)
}
