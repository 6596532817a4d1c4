package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chinmay1088/rpchist/api"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. RPCHIST_URL.
const EnvPrefix = "RPCHIST"

const (
	dirName  = ".rpchist"
	fileName = "config.yaml"
)

// Config holds the settings the CLI needs to build a HistoricalClient.
type Config struct {
	URL        string        `mapstructure:"url" yaml:"url"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Commitment string        `mapstructure:"commitment" yaml:"commitment"`
}

// Dir returns ~/.rpchist.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, dirName), nil
}

// File returns the config file to read and write: path when set, otherwise
// ~/.rpchist/config.yaml.
func File(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load resolves settings from, in order of precedence, flags bound to v,
// RPCHIST_* environment variables, the config file and built-in defaults.
// A missing config file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return read(v, path)
}

// LoadFile resolves settings from the config file and defaults only. Use it
// before Save so one-off flag or environment overrides are not persisted.
func LoadFile(path string) (*Config, error) {
	return read(viper.New(), path)
}

func read(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	file, err := File(path)
	if err != nil {
		return nil, err
	}
	v.SetConfigFile(file)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("url", api.DefaultBaseURL)
	v.SetDefault("timeout", api.DefaultTimeout)
	v.SetDefault("commitment", string(api.DefaultCommitment))
}

// Validate checks the settings the client cannot work without. The
// commitment is passed through to the service as is.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("invalid config: url is empty")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid config: url %q must be an absolute http(s) URL", c.URL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid config: timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// Marshal renders the settings as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(fileConfig{
		URL:        c.URL,
		Timeout:    c.Timeout.String(),
		Commitment: c.Commitment,
	})
}

// fileConfig is the on-disk shape; durations are written as "10s".
type fileConfig struct {
	URL        string `yaml:"url"`
	Timeout    string `yaml:"timeout"`
	Commitment string `yaml:"commitment"`
}

// Save writes cfg to path (or the default file), creating ~/.rpchist if needed.
func Save(path string, cfg *Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	file, err := File(path)
	if err != nil {
		return "", err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(file, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return file, nil
}
