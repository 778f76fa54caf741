package main

import (
	"context"

	"github.com/chraibi/ZoteroTidy/internal/snapshot"
	"github.com/chraibi/ZoteroTidy/internal/unpaywall"
	"github.com/spf13/cobra"
)

var (
	tagSuspicious  bool
	tagNoPDF       bool
	tagMultiplePDF bool
	tagDuplicates  bool
	tagOpenAccess  bool
	tagDryRun      bool
)

func init() {
	f := tagCmd.Flags()
	f.BoolVar(&tagSuspicious, "suspicious", false, "Tag suspicious records with "+snapshot.TagSuspicious)
	f.BoolVar(&tagNoPDF, "no-pdf", false, "Tag records without a PDF with "+snapshot.TagNoPDF)
	f.BoolVar(&tagMultiplePDF, "multiple-pdf", false, "Tag records with several PDFs with "+snapshot.TagDuplicatePDF)
	f.BoolVar(&tagDuplicates, "duplicates", false, "Tag DOI/ISBN duplicates with "+snapshot.TagDuplicateItem)
	f.BoolVar(&tagOpenAccess, "open-access", false, "Tag records Unpaywall reports as open access with "+snapshot.TagOpenAccess)
	f.BoolVar(&tagDryRun, "dry-run", false, "Show the tags that would be added without writing")
	rootCmd.AddCommand(tagCmd)
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Tag records found by the checks",
	Long: `Add marker tags to records found by the selected checks. Each record is
written at most once, with every tag it earned. Records that already carry
all their tags are skipped.

--open-access looks up every DOI on Unpaywall and needs unpaywall.email
(or UNPAYWALL_EMAIL) to be configured.`,
	Args: cobra.NoArgs,
	RunE: runTag,
}

func runTag(cmd *cobra.Command, args []string) error {
	if !tagSuspicious && !tagNoPDF && !tagMultiplePDF && !tagDuplicates && !tagOpenAccess {
		exitWithError(ExitError, "select at least one of --suspicious, --no-pdf, --multiple-pdf, --duplicates, --open-access")
	}

	a := mustSetup()
	defer a.Close()
	ctx := cmd.Context()

	snap := a.mustLoadSnapshot(ctx)
	opts := snapshot.TagOptions{
		Suspicious:  tagSuspicious,
		NoPDF:       tagNoPDF,
		MultiplePDF: tagMultiplePDF,
		Duplicates:  tagDuplicates,
	}

	if tagOpenAccess {
		oa, err := a.lookupOpenAccess(ctx, snap)
		if err != nil {
			exitWithError(ExitRemoteError, "open access lookup: %v", err)
		}
		opts.OpenAccessDOIs = oa
	}

	intents, err := snap.TagIntents(ctx, opts)
	if err != nil {
		exitOnError(err, "planning tags")
	}

	res, err := a.applyIntents(ctx, snap, intents, tagDryRun)
	return finishMutation("tag", res, err)
}

func (a *app) lookupOpenAccess(ctx context.Context, snap *snapshot.Snapshot) (map[string]bool, error) {
	if a.cfg.Unpaywall.Email == "" {
		exitWithError(ExitConfigError, "--open-access needs unpaywall.email or UNPAYWALL_EMAIL")
	}
	client, err := unpaywall.NewClient(a.cfg.Unpaywall.Email,
		unpaywall.WithRetry(a.cfg.HTTP.RetryAttempts, unpaywall.DefaultRetryDelay),
		unpaywall.WithLogger(a.log.With().Str("component", "unpaywall").Logger()),
	)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	defer client.Close()

	dois := snap.DOIs()
	a.log.Info().Int("dois", len(dois)).Msg("looking up open access status")
	return client.OpenAccess(ctx, dois)
}
