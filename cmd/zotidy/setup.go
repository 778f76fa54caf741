package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/chraibi/ZoteroTidy/internal/config"
	"github.com/chraibi/ZoteroTidy/internal/guard"
	"github.com/chraibi/ZoteroTidy/internal/logging"
	"github.com/chraibi/ZoteroTidy/internal/snapshot"
	"github.com/chraibi/ZoteroTidy/internal/store"
	"github.com/chraibi/ZoteroTidy/internal/zotero"
)

// app bundles what a command needs to talk to the library and the cache.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	client *zotero.Client
	db     *store.DB
}

// mustSetup loads and validates configuration, then builds the logger, the
// Zotero client and the snapshot cache. Configuration problems exit before
// any remote call is made.
func mustSetup() *app {
	cfg := mustLoadConfig()
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	logger := mustNewLogger(cfg)
	db, err := store.Open(cfg.Cache.Path)
	if err != nil {
		exitWithError(ExitError, "opening snapshot cache: %v", err)
	}

	return &app{
		cfg:    cfg,
		log:    logger,
		client: newZoteroClient(cfg, logger),
		db:     db,
	}
}

// Close releases the cache and log file.
func (a *app) Close() {
	a.db.Close()
	a.log.Close()
}

// mustLoadConfig loads configuration and applies command-line overrides.
// The result is not validated.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configFile)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if cachePath != "" {
		cfg.Cache.Path = config.ExpandTilde(cachePath)
	}
	return cfg
}

func mustNewLogger(cfg *config.Config) *logging.Logger {
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Console: true})
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return logger
}

func newZoteroClient(cfg *config.Config, logger *logging.Logger) *zotero.Client {
	return zotero.NewClient(cfg.Zotero.LibraryType, cfg.Zotero.LibraryID,
		zotero.WithAPIKey(cfg.Zotero.APIKey),
		zotero.WithTimeout(cfg.HTTP.Timeout),
		zotero.WithRateLimit(cfg.HTTP.RateLimit),
		zotero.WithRetry(cfg.HTTP.RetryAttempts, zotero.DefaultRetryDelay),
		zotero.WithLogger(logger.With().Str("component", "zotero").Logger()),
	)
}

// errLibraryMismatch reports a cache filled from another library.
var errLibraryMismatch = errors.New("cached snapshot belongs to another library")

// loadSnapshot returns the cached snapshot of the configured library. It
// fetches missing children through the client on demand.
func (a *app) loadSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	st, err := a.db.Load(ctx)
	if err != nil {
		return nil, err
	}
	if st.Meta.Library != a.cfg.Library() {
		return nil, fmt.Errorf("%w (%s, configured %s); run load first", errLibraryMismatch, st.Meta.Library, a.cfg.Library())
	}
	return snapshot.FromState(st,
		snapshot.WithLogger(a.log.With().Str("component", "snapshot").Logger()),
		snapshot.WithRemote(a.client),
	), nil
}

func (a *app) mustLoadSnapshot(ctx context.Context) *snapshot.Snapshot {
	snap, err := a.loadSnapshot(ctx)
	if err != nil {
		exitOnError(err, "loading snapshot")
	}
	if snap.Stale {
		a.log.Warn().Int64("version", snap.Version).Msg("cached snapshot was modified by an earlier run; consider running load")
	}
	return snap
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, config.ErrInvalidConfig):
		return ExitConfigError
	case zotero.IsAuthError(err):
		return ExitAuthError
	case errors.Is(err, guard.ErrStale),
		errors.Is(err, store.ErrNoSnapshot),
		errors.Is(err, errLibraryMismatch),
		zotero.IsPreconditionFailed(err):
		return ExitStale
	case errors.Is(err, context.Canceled):
		return ExitError
	case isRemoteError(err):
		return ExitRemoteError
	default:
		return ExitError
	}
}

func isRemoteError(err error) bool {
	var apiErr *zotero.APIError
	return errors.As(err, &apiErr) ||
		errors.Is(err, zotero.ErrNetworkError) ||
		errors.Is(err, zotero.ErrInvalidResponse) ||
		zotero.IsNotFound(err) ||
		zotero.IsRateLimited(err)
}

// hint adds the follow-up a user should take for an error, if any.
func hint(err error) string {
	switch exitCode(err) {
	case ExitStale:
		return "\n\nRun 'zotidy load' to refresh the snapshot, then retry."
	case ExitAuthError:
		return "\n\nCheck the API key and its permissions for this library."
	default:
		return ""
	}
}

// exitOnError exits with the code and hint matching err.
func exitOnError(err error, action string) {
	exitWithError(exitCode(err), "%s: %v%s", action, err, hint(err))
}
