package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config holds all billcheck configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Pricing    PricingOverrides `toml:"pricing"`
	Extraction ExtractionConfig `toml:"extraction"`
	Server     ServerConfig     `toml:"server"`
	Appearance AppearanceConfig `toml:"appearance"`
	Plans      []Plan           `toml:"plans,omitempty" validate:"dive"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir        string `toml:"data_dir,omitempty"`
	DefaultCarrier string `toml:"default_carrier,omitempty" validate:"omitempty,oneof=verizon att tmobile"`
}

// ExtractionConfig holds bill extraction service settings.
type ExtractionConfig struct {
	BaseURL        string `toml:"base_url,omitempty" validate:"omitempty,url"`
	APIKey         string `toml:"api_key,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=0"`
	RetryCount     int    `toml:"retry_count" validate:"gte=0,lte=10"`
}

// ServerConfig holds HTTP service settings.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port" validate:"gte=0,lte=65535"`
	EventsBuffer int    `toml:"events_buffer" validate:"gte=0"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// PricingOverrides replaces individual pricing policy values.
type PricingOverrides struct {
	PerLineRate      *float64 `toml:"per_line_rate,omitempty" validate:"omitempty,gt=0,lte=1000"`
	TaxRate          *float64 `toml:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
	ProjectionFactor *float64 `toml:"projection_factor,omitempty" validate:"omitempty,gt=0,lte=10"`
	MaxLines         *int     `toml:"max_lines,omitempty" validate:"omitempty,min=1,max=50"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Extraction: ExtractionConfig{
			TimeoutSeconds: 60,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8787,
			EventsBuffer: 200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "billcheck")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "billcheck")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the directory holding the analysis database.
func DataDir(cfg Config) string {
	if cfg.General.DataDir != "" {
		return cfg.General.DataDir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "billcheck")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "billcheck")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config file at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from flag or XDG dir
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks field ranges and plan entries.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // see LoadFrom
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetExtractionURL returns the extraction service URL from env var or config, in that order.
func GetExtractionURL(cfg Config) string {
	if u := os.Getenv("BILLCHECK_EXTRACT_URL"); u != "" {
		return u
	}
	return cfg.Extraction.BaseURL
}

// GetAPIKey returns the extraction API key from env var or config, in that order.
func GetAPIKey(cfg Config) string {
	if key := os.Getenv("BILLCHECK_API_KEY"); key != "" {
		return key
	}
	return cfg.Extraction.APIKey
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
