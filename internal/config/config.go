// Package config loads and validates zotidy configuration.
//
// Settings come from, in increasing precedence: defaults, a config file
// (YAML, or the INI-style .cfg format with a [zotero-config] section), and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// ErrInvalidConfig is returned when configuration is missing or malformed.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full zotidy configuration.
type Config struct {
	Zotero    ZoteroConfig    `mapstructure:"zotero-config" yaml:"zotero-config" json:"zotero"`
	Unpaywall UnpaywallConfig `mapstructure:"unpaywall" yaml:"unpaywall" json:"unpaywall"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http" json:"http"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache" json:"cache"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`

	// Source is the config file that was read, empty if none.
	Source string `mapstructure:"-" yaml:"-" json:"source,omitempty"`
}

// ZoteroConfig identifies the library to maintain.
type ZoteroConfig struct {
	LibraryID   string `mapstructure:"library_id" yaml:"library_id" json:"library_id" validate:"required,numeric"`
	APIKey      string `mapstructure:"api_key" yaml:"api_key" json:"-" validate:"required"`
	LibraryType string `mapstructure:"library_type" yaml:"library_type" json:"library_type" validate:"required,oneof=user group"`
}

// UnpaywallConfig configures open-access lookups.
type UnpaywallConfig struct {
	Email string `mapstructure:"email" yaml:"email" json:"email,omitempty" validate:"omitempty,email"`
}

// HTTPConfig tunes remote calls.
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout" validate:"gt=0"`
	RetryAttempts uint          `mapstructure:"retry_attempts" yaml:"retry_attempts" json:"retry_attempts" validate:"lte=10"`
	RateLimit     float64       `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit" validate:"gt=0"`
}

// CacheConfig locates the snapshot cache.
type CacheConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path" validate:"required"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" json:"level" validate:"loglevel"`
}

// Environment variables bound to config keys.
var envBindings = map[string]string{
	"zotero-config.library_id":   "ZOTERO_LIBRARY_ID",
	"zotero-config.api_key":      "ZOTERO_API_KEY",
	"zotero-config.library_type": "ZOTERO_LIBRARY_TYPE",
	"unpaywall.email":            "UNPAYWALL_EMAIL",
	"cache.path":                 "ZOTIDY_CACHE",
	"log.level":                  "ZOTIDY_LOG_LEVEL",
}

// Load reads configuration from configFile, or from the default location
// when configFile is empty. A missing default file is not an error; an
// explicitly named file must exist. The result is not validated.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("zotero-config.library_type", "user")
	v.SetDefault("http.timeout", 60*time.Second)
	v.SetDefault("http.retry_attempts", 3)
	v.SetDefault("http.rate_limit", 5.0)
	v.SetDefault("cache.path", DefaultCachePath())
	v.SetDefault("log.level", "info")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	path := configFile
	if path == "" {
		if p := GlobalConfigPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}

	if path != "" {
		if err := readFile(v, path); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Source = path
	cfg.Cache.Path = ExpandTilde(cfg.Cache.Path)
	cfg.Zotero.LibraryType = strings.ToLower(strings.TrimSpace(cfg.Zotero.LibraryType))
	return &cfg, nil
}

// readFile merges the file at path into v. Files ending in .cfg or .ini are
// read as INI; anything else goes through viper's own decoders.
func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: config file %s: %v", ErrInvalidConfig, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cfg", ".ini", ".txt":
		values, err := readINI(path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := v.MergeConfigMap(values); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w: configuration file found but could not be read: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// readINI converts every section of an INI file into a nested map.
func readINI(path string) (map[string]any, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	out := make(map[string]any)
	for _, section := range f.Sections() {
		if section.Name() == ini.DefaultSection && len(section.Keys()) == 0 {
			continue
		}
		values := make(map[string]any)
		for _, key := range section.Keys() {
			values[key.Name()] = key.String()
		}
		out[section.Name()] = values
	}
	return out, nil
}

// Validate checks cfg and returns an ErrInvalidConfig listing every problem.
func (c *Config) Validate() error {
	validate, trans, err := newValidator()
	if err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fe.Translate(trans))
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	return nil
}

// Library returns the library identifier used to tag cached snapshots.
func (c *Config) Library() string {
	return c.Zotero.LibraryType + ":" + c.Zotero.LibraryID
}
