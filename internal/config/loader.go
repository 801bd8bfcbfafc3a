package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every configuration environment variable.
const EnvPrefix = "ONBOARD"

const appName = "onboard"

// Loader handles Viper-based configuration loading.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and environment bindings applied.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api.base_url", "ONBOARD_API_URL", "ONBOARD_API_BASE_URL")

	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout", cfg.API.Timeout)
	v.SetDefault("store.dir", cfg.Store.Dir)
	v.SetDefault("store.in_memory", cfg.Store.InMemory)
	v.SetDefault("wizard.manifest_path", cfg.Wizard.ManifestPath)
	v.SetDefault("wizard.persist_on_jump", cfg.Wizard.PersistOnJump)
	v.SetDefault("notify.hour", cfg.Notify.Hour)
	v.SetDefault("notify.lookahead_days", cfg.Notify.LookaheadDays)
	v.SetDefault("directory.page_size", cfg.Directory.PageSize)
	v.SetDefault("devapi.addr", cfg.DevAPI.Addr)
	v.SetDefault("devapi.seed_path", cfg.DevAPI.SeedPath)
	v.SetDefault("debug", cfg.Debug)
}

// Load reads configuration from the first config file found (see the package
// documentation for the search order) and applies environment overrides. A
// missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	if path := os.Getenv(EnvPrefix + "_CONFIG_PATH"); path != "" {
		return l.LoadFromFile(path)
	}

	if path, err := DefaultConfigPath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return l.LoadFromFile(path)
		}
	}

	l.v.SetConfigName("config")
	l.v.SetConfigType("yaml")
	l.v.AddConfigPath(".")
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.unmarshal()
}

// LoadFromFile reads configuration from path. The format is taken from the
// file extension.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("invalid config: api.base_url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("invalid config: api.timeout must not be negative")
	}
	if c.Notify.Hour < 0 || c.Notify.Hour > 23 {
		return fmt.Errorf("invalid config: notify.hour must be between 0 and 23, got %d", c.Notify.Hour)
	}
	if c.Notify.LookaheadDays < 1 {
		return fmt.Errorf("invalid config: notify.lookahead_days must be at least 1")
	}
	if c.Directory.PageSize < 1 {
		return fmt.Errorf("invalid config: directory.page_size must be at least 1")
	}
	return nil
}

// MustLoad loads configuration and panics on failure.
func MustLoad() *Config {
	cfg, err := NewLoader().Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// ConfigDir returns the platform-standard onboard configuration directory.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// DefaultConfigPath returns the path of config.yaml in [ConfigDir].
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates [ConfigDir] if it does not exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// StoreDir returns the configured store directory, defaulting to a store
// directory under [ConfigDir].
func (c *Config) StoreDir() (string, error) {
	if c.Store.Dir != "" {
		return c.Store.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "store"), nil
}
