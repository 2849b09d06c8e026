package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	AddFlags(cmd)
	return cmd
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
}

func TestLoadOverlayOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zbxinput.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":7000\"\nlanguage: ru_RU\ninterval: 15\nlog-level: debug\n"), 0o600))

	t.Setenv("ZBX_LANGUAGE", "en_US")
	t.Setenv("ZBX_SESSION_TTL", "60")

	cmd := newCommand()
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("log-level", "warn"))

	cfg := NewConfig()
	require.NoError(t, cfg.Load(cmd))

	assert.Equal(t, ":7000", cfg.ListenAddr, "file value")
	assert.Equal(t, "en_US", cfg.Language, "env beats file")
	assert.Equal(t, 15*time.Second, cfg.Interval)
	assert.Equal(t, time.Minute, cfg.SessionTTL)
	assert.Equal(t, "warn", cfg.LogLevel, "flag beats file")
}

func TestLoadMissingFile(t *testing.T) {
	cmd := newCommand()
	require.NoError(t, cmd.Flags().Set("config", filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, NewConfig().Load(cmd))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty listen", func(c *Config) { c.ListenAddr = "" }},
		{"bad ipv6", func(c *Config) { c.IPv6 = "maybe" }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }},
		{"zero rate", func(c *Config) { c.RateLimit = 0 }},
		{"monitor without host", func(c *Config) { c.MonitorEnable = true; c.ZabbixHost = "" }},
		{"monitor bad port", func(c *Config) { c.MonitorEnable = true; c.SenderPort = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAllowIPv6Modes(t *testing.T) {
	cfg := NewConfig()

	cfg.IPv6 = "on"
	assert.True(t, cfg.AllowIPv6(context.Background()))

	cfg.IPv6 = "off"
	assert.False(t, cfg.AllowIPv6(context.Background()))
}
