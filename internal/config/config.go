// Package config loads viewq settings from an optional YAML file and
// VIEWQ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides: VIEWQ_LOG_LEVEL sets
// log.level.
const EnvPrefix = "VIEWQ_"

// Config holds every setting.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Journal JournalConfig `mapstructure:"journal"`
	Passes  PassConfig    `mapstructure:"passes"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug|info|warn|error
	Format string `mapstructure:"format"` // text|json
}

// JournalConfig configures the SQLite journal. An empty Path disables it.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// PassConfig configures pass identity.
type PassConfig struct {
	// IDPrefix switches pass ids from UUIDv7 to "<prefix>-N", which keeps
	// journals byte-identical across runs.
	IDPrefix string `mapstructure:"id_prefix"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("passes.id_prefix", d.Passes.IDPrefix)
}

// Load reads path, if non-empty, then applies environment overrides on top
// of the defaults. A missing file named explicitly is an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		// VIEWQ_JOURNAL_PATH -> journal.path; the last segment keeps its
		// underscores so VIEWQ_PASSES_ID_PREFIX -> passes.id_prefix.
		section, field, found := strings.Cut(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_")
		if !found {
			continue
		}
		v.Set(section+"."+field, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q must be text or json", ErrInvalid, c.Log.Format)
	}
	return nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalid, name)
	}
	return l, nil
}

// Logger builds the logger described by c, writing to w.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
