package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/lazypower/newsletter/internal/engine"
)

// EnvPrefix prefixes every environment override, e.g. NEWSLETTER_SERVER_PORT.
const EnvPrefix = "NEWSLETTER"

// Config holds all newsletter configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Interest InterestConfig `mapstructure:"interest"`
	Digest   DigestConfig   `mapstructure:"digest"`
	Status   StatusConfig   `mapstructure:"status"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Bind      string `mapstructure:"bind"`
	Port      int    `mapstructure:"port"`
	PublicURL string `mapstructure:"public_url"` // base for click-tracking links
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "bolt"
	Path   string `mapstructure:"path"`
}

type AnalyzerConfig struct {
	MaxKeywords      int    `mapstructure:"max_keywords"`
	NormalizePhrases bool   `mapstructure:"normalize_phrases"`
	VocabularyFile   string `mapstructure:"vocabulary_file"` // optional YAML stopwords/labels
}

type InterestConfig struct {
	DecayRate     float64 `mapstructure:"decay_rate"`
	MaxDecayDays  int     `mapstructure:"max_decay_days"`
	BlendFactor   float64 `mapstructure:"blend_factor"`
	DefaultWeight float64 `mapstructure:"default_weight"`
}

type DigestConfig struct {
	Schedule  string `mapstructure:"schedule"` // cron spec, five fields
	Limit     int    `mapstructure:"limit"`
	SpoolFile string `mapstructure:"spool_file"` // candidate articles, JSON
	OutputDir string `mapstructure:"output_dir"`
}

type StatusConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Default returns a Config with sensible defaults.
func Default() Config {
	p := engine.DefaultParams()
	return Config{
		Server: ServerConfig{
			Bind:      "127.0.0.1",
			Port:      5000,
			PublicURL: "http://localhost:5000",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "", // resolved at runtime from the driver
		},
		Analyzer: AnalyzerConfig{
			MaxKeywords: 10,
		},
		Interest: InterestConfig{
			DecayRate:     p.DecayRate,
			MaxDecayDays:  p.MaxDecayDays,
			BlendFactor:   p.BlendFactor,
			DefaultWeight: p.DefaultWeight,
		},
		Digest: DigestConfig{
			Schedule: "0 7 * * *",
			Limit:    7,
		},
		Status: StatusConfig{
			FailureThreshold: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from path (or newsletter.{yaml,toml} in the
// working directory and ~/.newsletter when path is empty), applies
// NEWSLETTER_* environment overrides and validates the result. A .env file
// in the working directory is loaded first when present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("newsletter")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.newsletter")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.sanitize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.bind", d.Server.Bind)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.public_url", d.Server.PublicURL)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("analyzer.max_keywords", d.Analyzer.MaxKeywords)
	v.SetDefault("analyzer.normalize_phrases", d.Analyzer.NormalizePhrases)
	v.SetDefault("analyzer.vocabulary_file", d.Analyzer.VocabularyFile)
	v.SetDefault("interest.decay_rate", d.Interest.DecayRate)
	v.SetDefault("interest.max_decay_days", d.Interest.MaxDecayDays)
	v.SetDefault("interest.blend_factor", d.Interest.BlendFactor)
	v.SetDefault("interest.default_weight", d.Interest.DefaultWeight)
	v.SetDefault("digest.schedule", d.Digest.Schedule)
	v.SetDefault("digest.limit", d.Digest.Limit)
	v.SetDefault("digest.spool_file", d.Digest.SpoolFile)
	v.SetDefault("digest.output_dir", d.Digest.OutputDir)
	v.SetDefault("status.failure_threshold", d.Status.FailureThreshold)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func (c *Config) sanitize() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	c.Server.PublicURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicURL), "/")
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	c.Digest.Schedule = strings.TrimSpace(c.Digest.Schedule)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d: out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "bolt":
	default:
		return fmt.Errorf("database.driver %q: want sqlite or bolt", c.Database.Driver)
	}
	if c.Analyzer.MaxKeywords <= 0 {
		return fmt.Errorf("analyzer.max_keywords %d: must be positive", c.Analyzer.MaxKeywords)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("interest: %w", err)
	}
	if c.Digest.Limit <= 0 {
		return fmt.Errorf("digest.limit %d: must be positive", c.Digest.Limit)
	}
	if _, err := cron.ParseStandard(c.Digest.Schedule); err != nil {
		return fmt.Errorf("digest.schedule %q: %w", c.Digest.Schedule, err)
	}
	if c.Status.FailureThreshold <= 0 {
		return fmt.Errorf("status.failure_threshold %d: must be positive", c.Status.FailureThreshold)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q: want json or console", c.Log.Format)
	}
	return nil
}

// Params returns the interest model parameters.
func (c *Config) Params() engine.Params {
	return engine.Params{
		DecayRate:     c.Interest.DecayRate,
		MaxDecayDays:  c.Interest.MaxDecayDays,
		BlendFactor:   c.Interest.BlendFactor,
		DefaultWeight: c.Interest.DefaultWeight,
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
