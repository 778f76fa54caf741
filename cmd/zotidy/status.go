package main

import (
	"errors"
	"time"

	"github.com/chraibi/ZoteroTidy/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Compare the cached snapshot with the remote library",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

// StatusResponse is the response for the status command.
type StatusResponse struct {
	Library       string    `json:"library" yaml:"library"`
	Loaded        bool      `json:"loaded" yaml:"loaded"`
	CachedVersion int64     `json:"cached_version,omitempty" yaml:"cached_version,omitempty"`
	LoadedAt      time.Time `json:"loaded_at,omitzero" yaml:"loaded_at,omitempty"`
	Requested     int       `json:"requested,omitempty" yaml:"requested,omitempty"`
	RemoteVersion int64     `json:"remote_version" yaml:"remote_version"`
	Current       bool      `json:"current" yaml:"current"`
	ModifiedSince bool      `json:"modified_since_load" yaml:"modified_since_load"`
	Items         int       `json:"items" yaml:"items"`
	Trash         int       `json:"trash" yaml:"trash"`
	Cache         string    `json:"cache" yaml:"cache"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	a := mustSetup()
	defer a.Close()
	ctx := cmd.Context()

	resp := StatusResponse{Library: a.cfg.Library(), Cache: a.cfg.Cache.Path}

	meta, err := a.db.Meta(ctx)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
	case err != nil:
		exitWithError(ExitError, "reading snapshot cache: %v", err)
	case meta.Library == resp.Library:
		resp.Loaded = true
		resp.CachedVersion = meta.Version
		resp.LoadedAt = meta.LoadedAt
		resp.Requested = meta.Requested
		resp.ModifiedSince = meta.Stale
	}

	if resp.RemoteVersion, err = a.client.CurrentVersion(ctx); err != nil {
		exitOnError(err, "querying library version")
	}
	if resp.Items, err = a.client.NumItems(ctx); err != nil {
		exitOnError(err, "counting items")
	}
	if resp.Trash, err = a.client.TrashCount(ctx); err != nil {
		exitOnError(err, "counting trash")
	}
	resp.Current = resp.Loaded && resp.CachedVersion == resp.RemoteVersion

	if humanOutput {
		outputHuman("Library: %s\n", resp.Library)
		if !resp.Loaded {
			outputHuman("%s No snapshot cached. Run 'zotidy load'.\n", warnMark)
		} else {
			outputHuman("%s Snapshot version %d loaded %s\n", mark(resp.Current), resp.CachedVersion, formatAgo(resp.LoadedAt))
			if !resp.Current {
				outputHuman("  Remote version is %d; reload before making changes.\n", resp.RemoteVersion)
			}
			if resp.ModifiedSince {
				outputHuman("  %s zotidy modified the library since this snapshot was taken.\n", warnMark)
			}
		}
		outputHuman("Items: %s  Trash: %s\n", formatCount(resp.Items), formatCount(resp.Trash))
		return nil
	}
	return outputResult(resp)
}
