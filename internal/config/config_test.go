package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("WORKMARKET_DB_PATH", "data/test.db")

	path := writeConfig(t, `
app:
  name: workmarket-test
database:
  path: "${WORKMARKET_DB_PATH}"
api:
  auth:
    enabled: true
    api_keys:
      - key: k1
        name: mobile
        permissions: [read, write]
workflow:
  gig_transitions: Loose
  accept_lock_ttl: 3s
  bid_rate_limit: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/test.db", cfg.Database.Path)
	assert.Equal(t, "workmarket-test", cfg.App.Name)
	assert.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.False(t, cfg.Workflow.StrictGigTransitions())
	assert.False(t, cfg.Workflow.AllowLateBids())
	assert.Equal(t, 3*time.Second, cfg.Workflow.AcceptLockTTL)
	assert.Equal(t, 2*time.Second, cfg.Workflow.AcceptLockWait)
	assert.Equal(t, 10, cfg.Workflow.BidRateLimit)
	assert.Equal(t, time.Minute, cfg.Workflow.BidRateWindow)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_BadPolicy(t *testing.T) {
	path := writeConfig(t, `
database:
  path: test.db
workflow:
  late_bids: sometimes
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "late_bids")
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		c := Config{Database: DatabaseConfig{Path: "path"}}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing db path", mutate: func(c *Config) { c.Database.Path = " " }, wantErr: true},
		{name: "unknown gig policy", mutate: func(c *Config) { c.Workflow.GigTransitions = "any" }, wantErr: true},
		{name: "negative rate limit", mutate: func(c *Config) { c.Workflow.BidRateLimit = -1 }, wantErr: true},
		{
			name: "duplicate api key",
			mutate: func(c *Config) {
				c.API.Auth.Enabled = true
				c.API.Auth.APIKeys = []APIClientKey{{Key: "a", Name: "x"}, {Key: "a", Name: "y"}}
			},
			wantErr: true,
		},
		{
			name:    "tls without cert",
			mutate:  func(c *Config) { c.API.GRPC.TLS.Enabled = true },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
