package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// AppDir is the directory name under XDG_CONFIG_HOME and XDG_CACHE_HOME.
	AppDir = "zotidy"
	// ConfigFile is the default config file name.
	ConfigFile = "config.yml"
	// CacheFile is the snapshot database file name.
	CacheFile = "snapshot.db"
)

// GlobalConfigPath returns the path to the default config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/zotidy/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppDir, ConfigFile)
}

// DefaultCachePath returns the path of the snapshot cache.
// Respects XDG_CACHE_HOME, defaults to ~/.cache/zotidy/snapshot.db.
func DefaultCachePath() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), AppDir, CacheFile)
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, AppDir, CacheFile)
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
