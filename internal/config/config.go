// Package config loads CLI configuration from defaults, an optional
// config file, an optional .env file and LOG2JSON_* environment
// variables, in increasing order of precedence. Command line flags
// bound with BindFlags take precedence over all of them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. LOG2JSON_WORKERS.
const EnvPrefix = "LOG2JSON"

// Configuration keys.
const (
	KeyWorkers          = "workers"
	KeyBatchSize        = "batch_size"
	KeyFlushInterval    = "flush_interval"
	KeyLogLevel         = "log_level"
	KeyAnnotate         = "annotate"
	KeyPretty           = "pretty"
	KeySkipFailed       = "skip_failed"
	KeyEnvelope         = "envelope"
	KeyInputCompression = "input_compression"
	KeyFollow           = "follow"
	KeyPoll             = "poll"
	KeyMetricsAddr      = "metrics_addr"
	KeyPattern          = "pattern"
	KeyUUIDIDs          = "uuid_ids"
)

// DefaultBatchSize matches the largest batch Firehose sends to a
// transformation function.
const DefaultBatchSize = 500

// Config holds the resolved settings.
type Config struct {
	Workers          int
	BatchSize        int
	FlushInterval    time.Duration
	LogLevel         string
	Annotate         bool
	Pretty           bool
	SkipFailed       bool
	Envelope         bool
	InputCompression string
	Follow           string
	Poll             bool
	MetricsAddr      string
	Pattern          string
	UUIDIDs          bool
}

// Loader wraps a viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults applied.
func NewLoader() *Loader {
	v := viper.New()
	v.SetDefault(KeyWorkers, runtime.GOMAXPROCS(0))
	v.SetDefault(KeyBatchSize, DefaultBatchSize)
	v.SetDefault(KeyFlushInterval, "1s")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyInputCompression, "none")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlags binds command line flags. Flag names use dashes
// ("batch-size") and map to the underscore keys.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = l.v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

// Load reads the optional .env file and config file and returns the
// resolved configuration. An empty cfgFile searches the working and
// home directories for .log2json.yaml; a missing file is not an error
// in that case.
func (l *Loader) Load(cfgFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if cfgFile != "" {
		l.v.SetConfigFile(cfgFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		l.v.SetConfigName(".log2json")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("$HOME")
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Workers:          l.v.GetInt(KeyWorkers),
		BatchSize:        l.v.GetInt(KeyBatchSize),
		FlushInterval:    l.v.GetDuration(KeyFlushInterval),
		LogLevel:         l.v.GetString(KeyLogLevel),
		Annotate:         l.v.GetBool(KeyAnnotate),
		Pretty:           l.v.GetBool(KeyPretty),
		SkipFailed:       l.v.GetBool(KeySkipFailed),
		Envelope:         l.v.GetBool(KeyEnvelope),
		InputCompression: strings.ToLower(l.v.GetString(KeyInputCompression)),
		Follow:           l.v.GetString(KeyFollow),
		Poll:             l.v.GetBool(KeyPoll),
		MetricsAddr:      l.v.GetString(KeyMetricsAddr),
		Pattern:          l.v.GetString(KeyPattern),
		UUIDIDs:          l.v.GetBool(KeyUUIDIDs),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("flush_interval must not be negative, got %s", c.FlushInterval)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	switch c.InputCompression {
	case "", "none", "zstd":
	default:
		return fmt.Errorf("unsupported input_compression %q (want none or zstd)", c.InputCompression)
	}
	if c.SkipFailed && !c.Annotate {
		return errors.New("skip_failed requires annotate")
	}
	if c.Follow != "" && c.InputCompression == "zstd" {
		return errors.New("follow cannot be combined with zstd input")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", name, err)
	}
	return level, nil
}
