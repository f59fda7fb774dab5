// Package config loads evaluation settings for the fhirpath package.
//
// Settings are read in order of increasing precedence from the defaults,
// an optional YAML file, FHIRPATH_ prefixed environment variables and
// command line flags registered with BindFlags:
//
//	decimal_precision: 20        # FHIRPATH_DECIMAL_PRECISION  --decimal-precision
//	repeat_limit: 500            # FHIRPATH_REPEAT_LIMIT       --repeat-limit
//	trace_label_prefix: "rule: " # FHIRPATH_TRACE_LABEL_PREFIX --trace-label-prefix
//	log_level: debug             # FHIRPATH_LOG_LEVEL          --log-level
//	evaluation_time: 2024-05-01T12:00:00Z
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/damedic/fhirpath-core/fhirpath"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "FHIRPATH_"

type Config struct {
	// DecimalPrecision is the number of significant digits of decimal arithmetic.
	DecimalPrecision uint32 `koanf:"decimal_precision"`
	// RepeatLimit bounds the rounds of repeat().
	RepeatLimit      int    `koanf:"repeat_limit"`
	TraceLabelPrefix string `koanf:"trace_label_prefix"`
	LogLevel         string `koanf:"log_level"`
	// EvaluationTime fixes now(), today() and timeOfDay() if set (RFC 3339).
	EvaluationTime string `koanf:"evaluation_time"`
}

func defaults() map[string]any {
	return map[string]any{
		"decimal_precision":  fhirpath.DefaultDecimalPrecision,
		"repeat_limit":       fhirpath.DefaultRepeatLimit,
		"trace_label_prefix": "",
		"log_level":          "info",
		"evaluation_time":    "",
	}
}

// BindFlags registers one flag per setting. Only flags set on the command
// line override the other sources.
func BindFlags(flags *pflag.FlagSet) {
	flags.Uint32("decimal-precision", fhirpath.DefaultDecimalPrecision, "significant digits of decimal arithmetic")
	flags.Int("repeat-limit", fhirpath.DefaultRepeatLimit, "maximum rounds of repeat()")
	flags.String("trace-label-prefix", "", "prefix of trace() labels")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("evaluation-time", "", "fixed instant for now(), today() and timeOfDay() (RFC 3339)")
}

// Load reads the configuration. path may be empty, then no file is read.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// FHIRPATH_REPEAT_LIMIT -> repeat_limit
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// --repeat-limit -> repeat_limit
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and formats.
func (c *Config) Validate() error {
	if c.DecimalPrecision == 0 {
		return fmt.Errorf("decimal_precision must be positive")
	}
	if c.RepeatLimit <= 0 {
		return fmt.Errorf("repeat_limit must be positive, got %d", c.RepeatLimit)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if _, err := c.evaluationTime(); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (c *Config) evaluationTime() (time.Time, error) {
	if c.EvaluationTime == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, c.EvaluationTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid evaluation_time %q: %w", c.EvaluationTime, err)
	}
	return t, nil
}

// Apply installs the configuration into ctx. Logs and traces are written
// as text to w.
func (c *Config) Apply(ctx context.Context, w io.Writer) (context.Context, error) {
	if err := c.Validate(); err != nil {
		return ctx, err
	}
	level, _ := c.level()
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))

	ctx = fhirpath.WithLogger(ctx, logger)
	ctx = fhirpath.WithTracer(ctx, fhirpath.LogTracer{
		Logger: logger,
		Level:  slog.LevelInfo,
		Prefix: c.TraceLabelPrefix,
	})
	ctx = fhirpath.WithAPDContext(ctx, apd.BaseContext.WithPrecision(c.DecimalPrecision))
	ctx = fhirpath.WithRepeatLimit(ctx, c.RepeatLimit)
	if t, _ := c.evaluationTime(); !t.IsZero() {
		ctx = fhirpath.WithEvaluationTime(ctx, t)
	}
	return ctx, nil
}
