// Package config provides configuration loading and management for onboard.
//
// Configuration is loaded using Viper, supporting YAML config files and environment
// variable overrides. The defaults point at a local development API and an on-disk
// session store under the user config directory.
//
// Key types:
//   - [Config] is the root configuration container with all settings
//   - [Loader] handles Viper-based configuration loading
//   - [APIConfig] points the client at the HR backend
//   - [WizardConfig] controls the onboarding wizard
//
// Configuration priority (highest to lowest):
//  1. Environment variables (ONBOARD_ prefix, e.g. ONBOARD_API_BASE_URL)
//  2. Config file specified by ONBOARD_CONFIG_PATH
//  3. User config directory (platform-standard):
//     - Linux: ~/.config/onboard/config.yaml
//     - macOS: ~/Library/Application Support/onboard/config.yaml
//     - Windows: %APPDATA%\onboard\config.yaml
//  4. ./config.yaml
//  5. [DefaultConfig] defaults
package config

import "time"

// Config represents the root configuration structure.
type Config struct {
	// API configures the HR backend client.
	API APIConfig `mapstructure:"api"`

	// Store configures the persistent session store.
	Store StoreConfig `mapstructure:"store"`

	// Wizard configures the onboarding wizard.
	Wizard WizardConfig `mapstructure:"wizard"`

	// Notify configures the daily celebration notice.
	Notify NotifyConfig `mapstructure:"notify"`

	// Directory configures directory listings.
	Directory DirectoryConfig `mapstructure:"directory"`

	// DevAPI configures the in-memory development server.
	DevAPI DevAPIConfig `mapstructure:"devapi"`

	// Debug enables diagnostic output on stderr.
	Debug bool `mapstructure:"debug"`
}

// APIConfig contains HR backend settings.
type APIConfig struct {
	// BaseURL is prepended to every endpoint path.
	// Can be overridden with ONBOARD_API_URL.
	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds each request. Zero disables the client timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig contains session store settings.
type StoreConfig struct {
	// Dir is the Badger directory. Empty means <config dir>/store.
	Dir string `mapstructure:"dir"`

	// InMemory keeps the session only for the lifetime of the process.
	InMemory bool `mapstructure:"in_memory"`
}

// WizardConfig contains onboarding wizard settings.
type WizardConfig struct {
	// ManifestPath is an optional step manifest CSV replacing the built-in
	// step order.
	ManifestPath string `mapstructure:"manifest_path"`

	// PersistOnJump controls whether a direct jump to a visited step is
	// written to the store. Default: true
	PersistOnJump bool `mapstructure:"persist_on_jump"`
}

// NotifyConfig contains celebration notice settings.
type NotifyConfig struct {
	// Hour is the local hour (0-23) at which the daily notice fires.
	// Default: 9
	Hour int `mapstructure:"hour"`

	// LookaheadDays is the window shown by "celebrations --upcoming".
	// Default: 7
	LookaheadDays int `mapstructure:"lookahead_days"`
}

// DirectoryConfig contains directory listing settings.
type DirectoryConfig struct {
	// PageSize is the number of employees per page. Default: 20
	PageSize int `mapstructure:"page_size"`
}

// DevAPIConfig contains development server settings.
type DevAPIConfig struct {
	// Addr is the listen address. Default: "127.0.0.1:8787"
	Addr string `mapstructure:"addr"`

	// SeedPath is an optional YAML seed file; empty uses the built-in seed.
	SeedPath string `mapstructure:"seed_path"`
}

// DefaultConfig returns a new [Config] with defaults that work against a
// local development server.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8787",
			Timeout: 15 * time.Second,
		},
		Wizard: WizardConfig{
			PersistOnJump: true,
		},
		Notify: NotifyConfig{
			Hour:          9,
			LookaheadDays: 7,
		},
		Directory: DirectoryConfig{
			PageSize: 20,
		},
		DevAPI: DevAPIConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}
