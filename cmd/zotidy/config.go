package main

import (
	"time"

	"github.com/chraibi/ZoteroTidy/internal/config"
	"github.com/spf13/cobra"
)

var configOffline bool

func init() {
	configCheckCmd.Flags().BoolVar(&configOffline, "offline", false, "Only validate the settings, do not contact Zotero")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or check configuration",
	Long: `Show or check configuration.

Settings are read from, in increasing precedence:
  defaults
  a config file (--config, or $XDG_CONFIG_HOME/zotidy/config.yml)
  environment variables (also from a .env file)

Config files ending in .cfg or .ini use the INI layout:
  [zotero-config]
  library_id = 1234567
  api_key = ...
  library_type = user

Environment variables:
  ZOTERO_LIBRARY_ID, ZOTERO_API_KEY, ZOTERO_LIBRARY_TYPE,
  UNPAYWALL_EMAIL, ZOTIDY_CACHE, ZOTIDY_LOG_LEVEL`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (the API key is masked)",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and test the API key",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

// ConfigResponse is the response for config show.
type ConfigResponse struct {
	Source         string        `json:"source,omitempty" yaml:"source,omitempty"`
	LibraryID      string        `json:"library_id" yaml:"library_id"`
	LibraryType    string        `json:"library_type" yaml:"library_type"`
	APIKey         string        `json:"api_key" yaml:"api_key"`
	UnpaywallEmail string        `json:"unpaywall_email,omitempty" yaml:"unpaywall_email,omitempty"`
	Timeout        time.Duration `json:"timeout_ns" yaml:"timeout"`
	RetryAttempts  uint          `json:"retry_attempts" yaml:"retry_attempts"`
	RateLimit      float64       `json:"rate_limit" yaml:"rate_limit"`
	Cache          string        `json:"cache" yaml:"cache"`
	LogLevel       string        `json:"log_level" yaml:"log_level"`
}

// CheckResponse is the response for config check.
type CheckResponse struct {
	Status  string `json:"status" yaml:"status"`
	Library string `json:"library" yaml:"library"`
	Version int64  `json:"version,omitempty" yaml:"version,omitempty"`
	Offline bool   `json:"offline,omitempty" yaml:"offline,omitempty"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	resp := configResponse(cfg)

	if humanOutput {
		source := resp.Source
		if source == "" {
			source = "(defaults and environment)"
		}
		outputHuman("source:          %s\n", source)
		outputHuman("library:         %s %s\n", resp.LibraryType, resp.LibraryID)
		outputHuman("api key:         %s\n", resp.APIKey)
		outputHuman("unpaywall email: %s\n", resp.UnpaywallEmail)
		outputHuman("timeout:         %s\n", resp.Timeout)
		outputHuman("retries:         %d\n", resp.RetryAttempts)
		outputHuman("rate limit:      %g/s\n", resp.RateLimit)
		outputHuman("cache:           %s\n", resp.Cache)
		outputHuman("log level:       %s\n", resp.LogLevel)
		return nil
	}
	return outputResult(resp)
}

func configResponse(cfg *config.Config) ConfigResponse {
	return ConfigResponse{
		Source:         cfg.Source,
		LibraryID:      cfg.Zotero.LibraryID,
		LibraryType:    cfg.Zotero.LibraryType,
		APIKey:         maskKey(cfg.Zotero.APIKey),
		UnpaywallEmail: cfg.Unpaywall.Email,
		Timeout:        cfg.HTTP.Timeout,
		RetryAttempts:  cfg.HTTP.RetryAttempts,
		RateLimit:      cfg.HTTP.RateLimit,
		Cache:          cfg.Cache.Path,
		LogLevel:       cfg.Log.Level,
	}
}

// maskKey keeps the last four characters of an API key.
func maskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 4:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	resp := CheckResponse{Status: "ok", Library: cfg.Library(), Offline: configOffline}

	if !configOffline {
		logger := mustNewLogger(cfg)
		defer logger.Close()
		version, err := newZoteroClient(cfg, logger).CurrentVersion(cmd.Context())
		if err != nil {
			exitOnError(err, "contacting Zotero")
		}
		resp.Version = version
	}

	if humanOutput {
		outputHuman("%s Configuration valid for %s\n", okMark, resp.Library)
		if !resp.Offline {
			outputHuman("%s API key accepted, library version %d\n", okMark, resp.Version)
		}
		return nil
	}
	return outputResult(resp)
}
