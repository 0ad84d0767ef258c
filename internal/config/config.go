// Package config loads enricher settings from a YAML file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich/apollo"
	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich/gemini"
	"github.com/shpitdev/apollo-bulk-enricher/internal/logging"
)

const (
	AppName = "apollo-enricher"

	// DefaultConfigFile is looked up in the working directory.
	DefaultConfigFile = ".apollo-enricher.yaml"

	ProviderApollo = "apollo"
	ProviderGemini = "gemini"

	DefaultListenAddr      = ":8080"
	DefaultServerLimitMax  = 30
	DefaultServerLimitSpan = time.Minute
	DefaultBodyLimitMB     = 4
)

type Config struct {
	Provider       string        `yaml:"provider"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`

	Apollo ApolloConfig   `yaml:"apollo"`
	Gemini GeminiConfig   `yaml:"gemini"`
	Log    logging.Config `yaml:"log"`
	Server ServerConfig   `yaml:"server"`
}

type ApolloConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	// RedisAddr, when set, backs the per-client limiter with Redis so several
	// instances share counters. Empty keeps counters in memory.
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`

	LimitMax    int           `yaml:"limit_max"`
	LimitWindow time.Duration `yaml:"limit_window"`
	BodyLimitMB int           `yaml:"body_limit_mb"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Provider:       ProviderApollo,
		RequestTimeout: apollo.DefaultTimeout,
		Apollo: ApolloConfig{
			BaseURL: apollo.DefaultBaseURL,
		},
		Gemini: GeminiConfig{
			Model: gemini.DefaultModel,
		},
		Log: logging.Config{
			Level: "info",
		},
		Server: ServerConfig{
			ListenAddr:  DefaultListenAddr,
			LimitMax:    DefaultServerLimitMax,
			LimitWindow: DefaultServerLimitSpan,
			BodyLimitMB: DefaultBodyLimitMB,
		},
	}
}

// XDGConfigFile is the per-user config file location.
func XDGConfigFile() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// FindFile returns the config file to load, or "" when there is none.
// An explicit path wins; otherwise ./.apollo-enricher.yaml, then the XDG file.
func FindFile(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
			}
			return "", err
		}
		return explicit, nil
	}
	for _, candidate := range []string{DefaultConfigFile, XDGConfigFile()} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// LoadFile decodes path over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves the config file (see FindFile), then applies environment
// overrides. It returns the path that was loaded, if any.
func Load(explicit string) (Config, string, error) {
	path, err := FindFile(explicit)
	if err != nil {
		return Config{}, "", err
	}
	cfg := Default()
	if path != "" {
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, "", err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

// ApplyEnv overrides fields from the environment. Unset variables leave the
// current value in place.
func (c *Config) ApplyEnv() error {
	envString("APOLLO_PROVIDER", &c.Provider)
	envString("APOLLO_API_KEY", &c.Apollo.APIKey)
	envString("APOLLO_BASE_URL", &c.Apollo.BaseURL)
	envString("GEMINI_API_KEY", &c.Gemini.APIKey)
	envString("GEMINI_MODEL", &c.Gemini.Model)
	envString("GEMINI_BASE_URL", &c.Gemini.BaseURL)
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FILE", &c.Log.File)
	envString("LISTEN_ADDR", &c.Server.ListenAddr)
	envString("REDIS_ADDR", &c.Server.RedisAddr)

	var err error
	if c.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", c.RateLimitRPS); err != nil {
		return err
	}
	if c.Server.RedisDB, err = envInt("REDIS_DB", c.Server.RedisDB); err != nil {
		return err
	}
	if c.Server.LimitMax, err = envInt("SERVER_LIMIT_MAX", c.Server.LimitMax); err != nil {
		return err
	}
	if c.Log.Console, err = envBool("LOG_CONSOLE", c.Log.Console); err != nil {
		return err
	}
	return nil
}

// Validate checks option ranges. It does not require credentials; see
// RequireCredential.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderApollo, ProviderGemini:
	default:
		return fmt.Errorf("%w (got %q)", ErrUnknownProvider, c.Provider)
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RateLimitRPS < 0 {
		return ErrInvalidRateLimit
	}
	if c.Server.LimitMax < 0 || c.Server.LimitWindow < 0 {
		return ErrInvalidServerLimit
	}
	return nil
}

// APIKey returns the credential of the selected provider.
func (c Config) APIKey() string {
	if c.Provider == ProviderGemini {
		return strings.TrimSpace(c.Gemini.APIKey)
	}
	return strings.TrimSpace(c.Apollo.APIKey)
}

// RequireCredential fails with ErrMissingAPIKey when the selected provider
// has no API key.
func (c Config) RequireCredential() error {
	if c.APIKey() == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func envString(varName string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(varName)); v != "" {
		*dst = v
	}
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(varName string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
