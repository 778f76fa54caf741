package main

import (
	"github.com/chraibi/ZoteroTidy/internal/dedupe"
	"github.com/spf13/cobra"
)

var (
	mergeDryRun      bool
	mergeAttachments string
	mergeReplaceOwn  bool
)

func init() {
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "Show the merge plan without writing")
	mergeCmd.Flags().StringVar(&mergeAttachments, "attachments", "newest", "Whose attachments to keep: newest (the most recent duplicate with any) or all")
	mergeCmd.Flags().BoolVar(&mergeReplaceOwn, "replace-own", false, "Delete the kept record's own attachments when a moved one is a PDF")
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge records sharing a DOI or ISBN",
	Long: `Merge every group of records sharing a DOI or ISBN into its oldest record.

The oldest record is kept. Attachments and notes of the most recently added
duplicate that has any are moved to it (all duplicates' with --attachments all),
then the other records are deleted. Afterwards the duplicate_item tag is
removed from the library.

Deleted records go to the Zotero trash. Use --dry-run first.`,
	Args: cobra.NoArgs,
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	policy, err := dedupe.ParseAttachmentPolicy(mergeAttachments)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	a := mustSetup()
	defer a.Close()
	ctx := cmd.Context()

	snap := a.mustLoadSnapshot(ctx)
	intents, plans, err := snap.MergeIntents(ctx, dedupe.MergeOptions{
		Policy:                policy,
		ReplaceOwnAttachments: mergeReplaceOwn,
	})
	if err != nil {
		exitOnError(err, "planning merge")
	}
	a.log.Info().Int("groups", len(plans)).Int("changes", len(intents)).Str("attachments", policy.String()).Msg("merge planned")

	res, err := a.applyIntents(ctx, snap, intents, mergeDryRun)
	return finishMutation("merge", res, err)
}
