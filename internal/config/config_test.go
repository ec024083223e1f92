package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := NewLoader().Load("", "")
	require.NoError(t, err)

	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Workers)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.FlushInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "none", cfg.InputCompression)
	assert.False(t, cfg.Annotate)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfgFile := filepath.Join(dir, "conf.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("workers: 3\nbatch_size: 50\nannotate: true\nlog_level: warn\n"), 0o644))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOG2JSON_BATCH_SIZE=75\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LOG2JSON_BATCH_SIZE") })

	t.Setenv("LOG2JSON_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 1, "")
	flags.Bool("pretty", false, "")
	require.NoError(t, flags.Parse([]string{"--workers=9"}))

	l := NewLoader()
	require.NoError(t, l.BindFlags(flags))

	cfg, err := l.Load(cfgFile, envFile)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Workers, "flag beats file")
	assert.Equal(t, 75, cfg.BatchSize, ".env beats file")
	assert.Equal(t, "debug", cfg.LogLevel, "environment beats file")
	assert.True(t, cfg.Annotate, "file beats default")
	assert.False(t, cfg.Pretty)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := NewLoader().Load("", filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Workers: 1, BatchSize: 1, LogLevel: "info", InputCompression: "none"}
	require.NoError(t, valid.Validate())

	annotated := valid
	annotated.Annotate = true
	annotated.SkipFailed = true
	require.NoError(t, annotated.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }},
		{name: "zero batch", mutate: func(c *Config) { c.BatchSize = 0 }},
		{name: "negative flush", mutate: func(c *Config) { c.FlushInterval = -time.Second }},
		{name: "unknown compression", mutate: func(c *Config) { c.InputCompression = "gzip" }},
		{name: "follow with zstd", mutate: func(c *Config) { c.Follow = "/tmp/x"; c.InputCompression = "zstd" }},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "skip failed without annotate", mutate: func(c *Config) { c.SkipFailed = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}
