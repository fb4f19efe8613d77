package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  port: ":8080"
relay:
  base_url: "https://api.emailjs.com"
  public_key: "${RELAY_PUBLIC_KEY}"
  service_id: "YOUR_SERVICE_ID"
  template_id: "YOUR_TEMPLATE_ID"
  timeout: "0s"
jwt:
  secret: "${JWT_SECRET}"
session:
  idle_timeout: "30m"
  lock_ttl: "2m"
`

func writeConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadDemoModeByDefault(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"base.yaml":   baseYAML,
		"secrets.env": "JWT_SECRET=0123456789abcdef0123\nRELAY_PUBLIC_KEY=YOUR_PUBLIC_KEY_HERE\n",
	})

	cfg, err := Load("local", dir)
	require.NoError(t, err)

	assert.False(t, cfg.Relay.Configured())
	assert.Equal(t, "Portfolio Owner", cfg.Relay.ToName)
	assert.Zero(t, cfg.Relay.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
}

func TestLoadEnvOverridesCredentials(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{"base.yaml": baseYAML})
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("RELAY_PUBLIC_KEY", "pk_live")
	t.Setenv("RELAY_SERVICE_ID", "service_live")
	t.Setenv("RELAY_TEMPLATE_ID", "template_live")

	cfg, err := Load("production", dir)
	require.NoError(t, err)

	assert.True(t, cfg.Relay.Configured())
	assert.Equal(t, "pk_live", cfg.Relay.PublicKey)
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{"base.yaml": baseYAML})

	_, err := Load("local", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Secret")
}

func TestLoadRejectsBadRelayURL(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"base.yaml":  baseYAML,
		"local.yaml": "relay:\n  base_url: \"not a url\"\n",
	})
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	_, err := Load("local", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BaseURL")
}
