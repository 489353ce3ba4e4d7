// Package config loads service configuration from a YAML file with
// ${VAR_NAME} environment-variable substitution, overlaid with the
// specific environment variables named in the service's external
// interface (BLOB_ROOT, OTP_TTL_MINUTES, ...). This mirrors the teacher
// project's pkg/config loader, trimmed to the options this service
// actually recognizes.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so it can be written in YAML as "10m"
// rather than a nanosecond integer.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config holds every configuration option recognized by the service
// (spec §6 "Configuration (recognized options)"), plus the server/
// database wiring needed to run it.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	DatabaseURL         string   `yaml:"database_url"`
	DatabaseMaxConns    int      `yaml:"database_max_conns"`
	DatabaseMinConns    int      `yaml:"database_min_conns"`
	DatabaseMaxIdleTime Duration `yaml:"database_max_idle_time"`
	DatabaseMaxLifetime Duration `yaml:"database_max_lifetime"`

	BlobRoot          string   `yaml:"blob_root"`
	OtpTTL            Duration `yaml:"otp_ttl"`
	InviteTTL         Duration `yaml:"invite_ttl"`
	ShortCodeLength   int      `yaml:"shortcode_length"`
	BcryptCost        int      `yaml:"bcrypt_cost"`
	ChainGenesisPrefix string  `yaml:"chain_genesis_prefix"`

	ReminderInterval Duration `yaml:"reminder_interval"`
	ReminderHorizon  Duration `yaml:"reminder_horizon"`
}

// Defaults returns the configuration defaults named in spec §6.
func Defaults() *Config {
	return &Config{
		HTTPAddr:            ":8080",
		DatabaseMaxConns:    20,
		DatabaseMinConns:    2,
		DatabaseMaxIdleTime: Duration(5 * time.Minute),
		DatabaseMaxLifetime: Duration(30 * time.Minute),
		BlobRoot:            "uploads",
		OtpTTL:              Duration(10 * time.Minute),
		InviteTTL:           Duration(30 * 24 * time.Hour),
		ShortCodeLength:     6,
		BcryptCost:          10,
		ChainGenesisPrefix:  "genesis_block_",
		ReminderInterval:    Duration(24 * time.Hour),
		ReminderHorizon:     Duration(48 * time.Hour),
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnvVars replaces ${VAR_NAME} with the named environment
// variable's value, leaving the placeholder untouched if unset.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// Load reads a YAML config file (if path is non-empty and exists),
// applies defaults for anything left unset, then overlays the handful
// of environment variables the service treats as first-class overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
			expanded := substituteEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required (set database_url in config or DATABASE_URL env var)")
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("BLOB_ROOT"); v != "" {
		cfg.BlobRoot = v
	}
	if v, ok := envInt("OTP_TTL_MINUTES"); ok {
		cfg.OtpTTL = Duration(time.Duration(v) * time.Minute)
	}
	if v, ok := envInt("INVITE_TTL_DAYS"); ok {
		cfg.InviteTTL = Duration(time.Duration(v) * 24 * time.Hour)
	}
	if v, ok := envInt("SHORTCODE_LENGTH"); ok {
		cfg.ShortCodeLength = v
	}
	if v, ok := envInt("BCRYPT_COST"); ok {
		cfg.BcryptCost = v
	}
	if v := os.Getenv("CHAIN_GENESIS_PREFIX"); v != "" {
		cfg.ChainGenesisPrefix = v
	}
	if v, ok := envInt("DATABASE_MAX_CONNS"); ok {
		cfg.DatabaseMaxConns = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
