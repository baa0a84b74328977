package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/njchilds90/montecarlo/internal/config"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, config.DefaultConfig().Validate())

	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
samples: 500
seed: 42
log:
  level: debug
  format: json
server:
  listen_addr: "127.0.0.1:9000"
  read_timeout: 3s
history:
  enabled: true
  path: /tmp/runs
  compression_level: 4
`), 0o600))

	cfg, err := config.Load(config.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Samples)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 4, cfg.History.CompressionLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(config.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("MCINT_SAMPLES", "250")
	t.Setenv("MCINT_SERVER_MAX_SAMPLES", "1000")

	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Samples)
	assert.Equal(t, 1000, cfg.Server.MaxSamples)
}

func TestBindFlags_OverrideEnvironment(t *testing.T) {
	t.Setenv("MCINT_SAMPLES", "250")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("samples", 0, "")
	fs.String("listen", "", "")
	require.NoError(t, fs.Parse([]string{"--samples=99"}))

	v := config.New()
	require.NoError(t, config.BindFlags(v, fs, map[string]string{
		"samples": "samples",
		"listen":  "server.listen_addr",
	}))
	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.Samples)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr, "unset flag does not shadow default")

	assert.Error(t, config.BindFlags(v, fs, map[string]string{"missing": "samples"}))
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"samples":     func(c *config.Config) { c.Samples = 0 },
		"level":       func(c *config.Config) { c.Log.Level = "loud" },
		"format":      func(c *config.Config) { c.Log.Format = "xml" },
		"listen":      func(c *config.Config) { c.Server.ListenAddr = "" },
		"timeout":     func(c *config.Config) { c.Server.ReadTimeout = 0 },
		"max samples": func(c *config.Config) { c.Server.MaxSamples = 0 },
		"history":     func(c *config.Config) { c.History.Enabled, c.History.Path = true, "" },
		"compression": func(c *config.Config) { c.History.CompressionLevel = 7 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLogConfig_Logger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := config.LogConfig{Level: "warn", Format: format}.Logger()
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel), "debug is disabled at warn")
	}
	_, err := config.LogConfig{Level: "nope"}.Logger()
	assert.Error(t, err)
}
