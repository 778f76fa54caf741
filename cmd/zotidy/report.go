package main

import (
	"context"
	"strings"

	"github.com/chraibi/ZoteroTidy/internal/audit"
	"github.com/chraibi/ZoteroTidy/internal/dedupe"
	"github.com/chraibi/ZoteroTidy/internal/record"
	"github.com/chraibi/ZoteroTidy/internal/report"
	"github.com/chraibi/ZoteroTidy/internal/snapshot"
	"github.com/spf13/cobra"
)

var (
	reportDuplicates      bool
	reportTitleDuplicates bool
	reportStandalone      bool
	reportMultiplePDF     bool
	reportNoPDF           bool
	reportNoIdentifier    bool
	reportEmptyIdentifier bool
	reportSuspicious      bool
	reportHead            int
	reportTrash           bool
	reportAll             bool
)

func init() {
	f := reportCmd.Flags()
	f.BoolVar(&reportDuplicates, "duplicates", false, "Records sharing a DOI or ISBN")
	f.BoolVar(&reportTitleDuplicates, "duplicates-title", false, "Records sharing a title within an item type")
	f.BoolVar(&reportStandalone, "standalone", false, "Notes, attachments and annotations without a parent")
	f.BoolVar(&reportMultiplePDF, "multiple-pdf", false, "Records with more than one PDF attachment")
	f.BoolVar(&reportNoPDF, "no-pdf", false, "Records without a PDF attachment")
	f.BoolVar(&reportNoIdentifier, "no-identifier", false, "Records with neither DOI nor ISBN")
	f.BoolVar(&reportEmptyIdentifier, "empty-identifier", false, "Articles without DOI and books without ISBN")
	f.BoolVar(&reportSuspicious, "suspicious", false, "Records whose metadata was likely built from a bare PDF")
	f.IntVar(&reportHead, "head", 0, "Show the N most recently modified records")
	f.BoolVar(&reportTrash, "trash", false, "Count items in the trash (remote call)")
	f.BoolVar(&reportAll, "all", false, "Run every check")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report problems found in the cached snapshot",
	Long: `Run read-only checks against the cached snapshot. Checks that were not
selected are shown as not computed, which is different from a check that
found nothing.

Examples:
  zotidy report --duplicates --no-pdf
  zotidy report --all --human
  zotidy report --head 20`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

// RecordEntry is a record as listed in reports.
type RecordEntry struct {
	Key      string `json:"key" yaml:"key"`
	ItemType string `json:"item_type" yaml:"item_type"`
	Title    string `json:"title" yaml:"title"`
	DOI      string `json:"doi,omitempty" yaml:"doi,omitempty"`
	ISBN     string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Parent   string `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// DuplicateEntry is one group of records sharing an identifier.
type DuplicateEntry struct {
	IdentifierType string        `json:"identifier_type" yaml:"identifier_type"`
	Identifier     string        `json:"identifier" yaml:"identifier"`
	Records        []RecordEntry `json:"records" yaml:"records"`
}

// TitleEntry is one repeated title.
type TitleEntry struct {
	ItemType string   `json:"item_type" yaml:"item_type"`
	Title    string   `json:"title" yaml:"title"`
	Keys     []string `json:"keys" yaml:"keys"`
}

// PDFEntry is a record with several PDF attachments.
type PDFEntry struct {
	Key       string   `json:"key" yaml:"key"`
	Title     string   `json:"title" yaml:"title"`
	Filenames []string `json:"filenames" yaml:"filenames"`
	Redundant bool     `json:"redundant" yaml:"redundant"`
}

// ReportResponse is the response for the report command.
type ReportResponse struct {
	Library         string                        `json:"library" yaml:"library"`
	Version         int64                         `json:"version" yaml:"version"`
	Records         int                           `json:"records" yaml:"records"`
	Duplicates      report.Report[DuplicateEntry] `json:"duplicates" yaml:"duplicates"`
	TitleDuplicates report.Report[TitleEntry]     `json:"duplicates_title" yaml:"duplicates_title"`
	Standalone      report.Report[RecordEntry]    `json:"standalone" yaml:"standalone"`
	MultiplePDF     report.Report[PDFEntry]       `json:"multiple_pdf" yaml:"multiple_pdf"`
	NoPDF           report.Report[RecordEntry]    `json:"no_pdf" yaml:"no_pdf"`
	NoIdentifier    report.Report[RecordEntry]    `json:"no_identifier" yaml:"no_identifier"`
	EmptyIdentifier report.Report[RecordEntry]    `json:"empty_identifier" yaml:"empty_identifier"`
	Suspicious      report.Report[RecordEntry]    `json:"suspicious" yaml:"suspicious"`
	Head            report.Report[RecordEntry]    `json:"head" yaml:"head"`
	Trash           *int                          `json:"trash,omitempty" yaml:"trash,omitempty"`
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportAll {
		reportDuplicates, reportTitleDuplicates, reportStandalone = true, true, true
		reportMultiplePDF, reportNoPDF, reportNoIdentifier = true, true, true
		reportEmptyIdentifier, reportSuspicious, reportTrash = true, true, true
	}

	a := mustSetup()
	defer a.Close()
	ctx := cmd.Context()

	snap := a.mustLoadSnapshot(ctx)
	resp, err := buildReport(ctx, snap)
	if err != nil {
		exitOnError(err, "running checks")
	}

	if reportTrash {
		n, err := a.client.TrashCount(ctx)
		if err != nil {
			exitOnError(err, "counting trash")
		}
		resp.Trash = &n
	}

	if humanOutput {
		printReportHuman(resp)
		return nil
	}
	return outputResult(resp)
}

// buildReport runs the selected checks against snap.
func buildReport(ctx context.Context, snap *snapshot.Snapshot) (ReportResponse, error) {
	an := snap.Analysis()
	resp := ReportResponse{Library: snap.Library, Version: snap.Version, Records: snap.Len()}

	if reportDuplicates {
		resp.Duplicates = mapReport(an.Duplicates(), duplicateEntry)
	}
	if reportTitleDuplicates {
		resp.TitleDuplicates = mapReport(an.TitleDuplicates(), func(d dedupe.TitleDuplicate) TitleEntry {
			return TitleEntry{ItemType: d.ItemType, Title: d.Title, Keys: d.Keys}
		})
	}
	if reportStandalone {
		resp.Standalone = mapReport(an.Standalone(), recordEntry)
	}
	if reportMultiplePDF {
		findings, err := an.MultiplePDF(ctx)
		if err != nil {
			return resp, err
		}
		resp.MultiplePDF = mapReport(findings, func(f audit.PDFFinding) PDFEntry {
			return PDFEntry{Key: f.Key, Title: f.Title, Filenames: f.Filenames, Redundant: f.Redundant}
		})
	}
	if reportNoPDF {
		resp.NoPDF = mapReport(an.WithoutPDF(), recordEntry)
	}
	if reportNoIdentifier {
		resp.NoIdentifier = mapReport(an.NoIdentifier(), recordEntry)
	}
	if reportEmptyIdentifier {
		empty, _ := an.EmptyIdentifier()
		resp.EmptyIdentifier = mapReport(empty, recordEntry)
	}
	if reportSuspicious {
		resp.Suspicious = mapReport(an.Suspicious(), recordEntry)
	}
	if reportHead > 0 {
		resp.Head = mapReport(an.Head(reportHead), recordEntry)
	}
	return resp, nil
}

// mapReport converts the findings of r, keeping its computed state.
func mapReport[T, U any](r report.Report[T], f func(T) U) report.Report[U] {
	if !r.Computed {
		return report.Report[U]{}
	}
	out := make([]U, len(r.Items))
	for i, item := range r.Items {
		out[i] = f(item)
	}
	return report.Of(out)
}

func recordEntry(r record.Record) RecordEntry {
	return RecordEntry{
		Key:      r.Key,
		ItemType: r.ItemType,
		Title:    record.DisplayTitle(r),
		DOI:      r.DOI,
		ISBN:     r.ISBN,
		Parent:   r.ParentKey,
	}
}

func duplicateEntry(g dedupe.Group) DuplicateEntry {
	e := DuplicateEntry{IdentifierType: g.IdentifierType, Identifier: g.Identifier}
	for _, r := range g.Records {
		e.Records = append(e.Records, recordEntry(r))
	}
	return e
}

func printReportHuman(resp ReportResponse) {
	outputHuman("Snapshot %s at version %d, %s records\n", resp.Library, resp.Version, formatCount(resp.Records))

	printSection("Duplicates (DOI/ISBN)", resp.Duplicates, func(e DuplicateEntry) {
		outputHuman("  %s %s\n", strings.ToUpper(e.IdentifierType), e.Identifier)
		for _, r := range e.Records {
			outputHuman("    %s  %s\n", r.Key, truncateString(r.Title, ListTitleMaxLen))
		}
	})
	printSection("Duplicate titles", resp.TitleDuplicates, func(e TitleEntry) {
		outputHuman("  [%s] %s\n    %s\n", e.ItemType, truncateString(e.Title, ListTitleMaxLen), strings.Join(e.Keys, ", "))
	})
	printSection("Standalone notes and attachments", resp.Standalone, printRecordLine)
	printSection("Multiple PDFs", resp.MultiplePDF, func(e PDFEntry) {
		note := "names differ"
		if e.Redundant {
			note = "identical names"
		}
		outputHuman("  %s  %s (%s)\n    %s\n", e.Key, truncateString(e.Title, ListTitleMaxLen), note, strings.Join(e.Filenames, ", "))
	})
	printSection("Without PDF", resp.NoPDF, printRecordLine)
	printSection("Without DOI or ISBN", resp.NoIdentifier, printRecordLine)
	printSection("Missing expected identifier", resp.EmptyIdentifier, printRecordLine)
	printSection("Suspicious metadata", resp.Suspicious, printRecordLine)
	printSection("Most recently modified", resp.Head, printRecordLine)

	if resp.Trash != nil {
		outputHuman("\nTrash: %s items\n", formatCount(*resp.Trash))
	}
}

// printSection prints computed reports only; a computed report with no
// findings gets a check mark.
func printSection[T any](title string, r report.Report[T], line func(T)) {
	if !r.Computed {
		return
	}
	if r.Empty() {
		outputHuman("\n%s %s: none\n", okMark, title)
		return
	}
	outputHuman("\n%s %s: %s\n", failMark, title, formatCount(r.Len()))
	for _, item := range r.Items {
		line(item)
	}
}

func printRecordLine(r RecordEntry) {
	outputHuman("  %-8s  %-16s  %s\n", r.Key, r.ItemType, truncateString(r.Title, ListTitleMaxLen))
}
