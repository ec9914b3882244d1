package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
admin:
  token: secret
auth:
  jwt_secret: jwt
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "19queue.db", cfg.Store.DSN)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.Reconcile.Interval)
	assert.Equal(t, 5*time.Second, cfg.Reconcile.MinInterval)
	assert.Equal(t, "19queue:events", cfg.Redis.Channel)
	assert.Equal(t, "JP", cfg.Spotify.Market)

	assert.Equal(t, 50, cfg.Queue.MaxQueueSize)
	assert.Equal(t, 30, cfg.Queue.DuplicateThreshold)
	assert.Equal(t, 3, cfg.Queue.AutoSkipThreshold)
	assert.Equal(t, int64(600000), cfg.Queue.MaxSongDuration)
	assert.NotNil(t, cfg.Queue.RestrictedUsers)
	assert.False(t, cfg.Queue.IsLocked)
}

func TestParse_FullFile(t *testing.T) {
	data := `
server:
  addr: ":9090"
  hooks:
    on_started: ["echo up"]
store:
  driver: postgres
  dsn: postgres://localhost/queue
auth:
  trust_header: true
admin:
  token: secret
  emails: [boss@example.com]
queue:
  max_queue_size: 10
  allow_duplicates: true
  restricted_users: [spam@example.com]
reconcile:
  enabled: true
  interval: 1m
  min_interval: 10s
  forward_enqueues: true
redis:
  addr: localhost:6379
  db: 2
rules:
  duration_rule:
    enabled: true
    settings:
      max_minutes: 8
messages:
  full: "No more room"
spotify:
  client_id: id
  client_secret: cs
  refresh_token: rt
  market: US
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"echo up"}, cfg.Server.Hooks.OnStarted)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.True(t, cfg.Auth.TrustHeader)
	assert.Equal(t, []string{"boss@example.com"}, cfg.Admin.Emails)
	assert.Equal(t, 10, cfg.Queue.MaxQueueSize)
	assert.True(t, cfg.Queue.AllowDuplicates)
	assert.Equal(t, []string{"spam@example.com"}, cfg.Queue.RestrictedUsers)
	assert.Equal(t, time.Minute, cfg.Reconcile.Interval)
	assert.Equal(t, 10*time.Second, cfg.Reconcile.MinInterval)
	assert.True(t, cfg.Reconcile.ForwardEnqueues)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.IsRuleEnabled("duration_rule"))
	assert.False(t, cfg.IsRuleEnabled("paused_rule"))
	assert.Equal(t, 8, cfg.Rules["duration_rule"].Settings["max_minutes"])
	assert.Equal(t, "No more room", cfg.GetMessage("full"))
	assert.Empty(t, cfg.GetMessage("locked"))
	assert.Empty(t, cfg.GetMessage("unknown"))
	assert.True(t, cfg.Spotify.Configured())
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "missing admin token",
			yaml:   "auth:\n  jwt_secret: x\n",
			errMsg: "Token",
		},
		{
			name:   "no identity source",
			yaml:   "admin:\n  token: t\n",
			errMsg: "jwt_secret",
		},
		{
			name:   "unknown store driver",
			yaml:   minimalYAML + "store:\n  driver: mysql\n",
			errMsg: "Driver",
		},
		{
			name:   "queue size out of range",
			yaml:   minimalYAML + "queue:\n  max_queue_size: 5000\n",
			errMsg: "MaxQueueSize",
		},
		{
			name:   "reconcile without spotify",
			yaml:   minimalYAML + "reconcile:\n  enabled: true\n",
			errMsg: "spotify",
		},
		{
			name:   "forwarding without reconcile",
			yaml:   minimalYAML + "reconcile:\n  forward_enqueues: true\n",
			errMsg: "forward_enqueues",
		},
		{
			name:   "min interval above interval",
			yaml:   minimalYAML + "reconcile:\n  interval: 10s\n  min_interval: 20s\n",
			errMsg: "min_interval",
		},
		{
			name:   "bad admin email",
			yaml:   "admin:\n  token: t\n  emails: [not-an-email]\nauth:\n  jwt_secret: x\n",
			errMsg: "Emails",
		},
		{
			name:   "bad market",
			yaml:   minimalYAML + "spotify:\n  market: JPN\n",
			errMsg: "Market",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "env-admin")
	t.Setenv("JWT_SECRET", "env-jwt")
	t.Setenv("DATABASE_URL", "postgres://db/queue")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "env-refresh")

	cfg, err := Parse([]byte("admin:\n  token: file-admin\n"))
	require.NoError(t, err)
	assert.Equal(t, "env-admin", cfg.Admin.Token)
	assert.Equal(t, "env-jwt", cfg.Auth.JWTSecret)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://db/queue", cfg.Store.DSN)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Spotify.Configured())

	t.Setenv("REDIS_DB", "two")
	_, err = Parse([]byte(minimalYAML))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Admin.Token)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
