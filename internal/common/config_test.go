package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "https://localhost:9443/scim2", cfg.Auth.DefaultEndpoint)
	assert.Equal(t, "basic", cfg.Auth.DefaultMode)
	assert.True(t, cfg.Storage.Badger.InMemory)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "http://127.0.0.1:8080/org.wso2.scim2.testsuite.endpoint/ComplianceTestSuite", cfg.ComplianceURL())

	timeout, err := cfg.ComplianceTimeout()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), timeout)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 9000
host = "0.0.0.0"

[compliance]
service_url = "http://suite.local"
timeout = "30s"
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[server]
port = 9100
`), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "http://suite.local/ComplianceTestSuite", cfg.ComplianceURL())

	timeout, err := cfg.ComplianceTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoadFromFiles_ShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := LoadFromFiles(filepath.Join("..", "..", "deployments", "local", "scimdash.toml"))
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scimdash.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
base_path = "/from-file"
`), 0644))

	t.Setenv("SCIMDASH_BASE_PATH", "/dashboard/")
	t.Setenv("SCIMDASH_LOG_OUTPUT", "stdout, file")

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "/dashboard", cfg.NormalizedBasePath())
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte(`
[scheduler]
enabled = true
schedule = "not a cron"
`), 0644))

	_, err = LoadFromFiles(bad)
	assert.Error(t, err)
}

func TestNormalizedBasePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"scim", "/scim"},
		{"/scim/", "/scim"},
		{" /a/b ", "/a/b"},
	}

	for _, tt := range tests {
		cfg := NewDefaultConfig()
		cfg.Server.BasePath = tt.in
		assert.Equal(t, tt.want, cfg.NormalizedBasePath(), "base path %q", tt.in)
	}
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 0 */6 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.NoError(t, ValidateSchedule("@hourly"))
	assert.Error(t, ValidateSchedule("every tuesday"))
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 8085, cfg.Server.Port)

	ApplyFlagOverrides(cfg, 9999, "127.0.0.1")
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestDeepCloneConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	clone := DeepCloneConfig(cfg)

	clone.Logging.Output[0] = "changed"
	clone.Reports.Formats[0] = "changed"

	assert.Equal(t, "stdout", cfg.Logging.Output[0])
	assert.Equal(t, "pdf", cfg.Reports.Formats[0])
	assert.Nil(t, DeepCloneConfig(nil))
}
