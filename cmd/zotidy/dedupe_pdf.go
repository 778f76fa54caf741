package main

import (
	"github.com/spf13/cobra"
)

var dedupePDFDryRun bool

func init() {
	dedupePDFCmd.Flags().BoolVar(&dedupePDFDryRun, "dry-run", false, "Show the PDFs that would be deleted without writing")
	rootCmd.AddCommand(dedupePDFCmd)
}

var dedupePDFCmd = &cobra.Command{
	Use:   "dedupe-pdf",
	Short: "Delete extra copies of identically named PDF attachments",
	Long: `For every record with several PDF attachments that all share one filename,
keep the first and delete the others. Records whose PDFs have different names
are left alone and listed in the log. Afterwards the duplicate_pdf tag is
removed from the library.`,
	Args: cobra.NoArgs,
	RunE: runDedupePDF,
}

func runDedupePDF(cmd *cobra.Command, args []string) error {
	a := mustSetup()
	defer a.Close()
	ctx := cmd.Context()

	snap := a.mustLoadSnapshot(ctx)
	intents, err := snap.PDFDedupeIntents(ctx)
	if err != nil {
		exitOnError(err, "planning PDF cleanup")
	}

	res, err := a.applyIntents(ctx, snap, intents, dedupePDFDryRun)
	return finishMutation("dedupe-pdf", res, err)
}
