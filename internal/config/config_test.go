package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "memory", c.Cache.Kind)
	require.Equal(t, "tenantcore", c.JWT.Issuer)
	require.Equal(t, 10*time.Minute, Duration(c.JWT.AccessTTL))
	require.Equal(t, 14*24*time.Hour, Duration(c.JWT.RefreshTTL))
	require.Equal(t, 5, c.Auth.Throttle.MaxAttempts)
	require.Equal(t, 10*time.Minute, Duration(c.Auth.Throttle.Window))
	require.Equal(t, "__tc_at", c.Auth.Cookie.AccessName)
	require.Equal(t, "__tc_rt", c.Auth.Cookie.RefreshName)
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	p := writeYAML(t, `
server:
  addr: ":9000"
jwt:
  access_ttl: 5m
auth:
  throttle:
    max_attempts: 3
`)
	t.Setenv("JWT_ACCESS_TTL", "2m")

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, ":9000", c.Server.Addr)
	// El env pisa al YAML.
	require.Equal(t, 2*time.Minute, Duration(c.JWT.AccessTTL))
	require.Equal(t, 3, c.Auth.Throttle.MaxAttempts)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	p := writeYAML(t, `
jwt:
  access_ttl: "not-a-duration"
`)
	_, err := Load(p)
	require.Error(t, err)
}

func TestProdForcesSecureCookies(t *testing.T) {
	t.Setenv("APP_ENV", "prod")

	c, err := Load("")
	require.NoError(t, err)
	require.True(t, c.Auth.Cookie.Secure)
}
