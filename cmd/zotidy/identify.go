package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chraibi/ZoteroTidy/internal/pdf"
	"github.com/chraibi/ZoteroTidy/internal/record"
	"github.com/chraibi/ZoteroTidy/internal/store"
	"github.com/spf13/cobra"
)

var identifyPages int

func init() {
	identifyCmd.Flags().IntVar(&identifyPages, "pages", pdf.DefaultPages, "Number of leading pages to search for a DOI")
	rootCmd.AddCommand(identifyCmd)
}

var identifyCmd = &cobra.Command{
	Use:   "identify <key>",
	Short: "Extract a DOI from the PDF of a record",
	Long: `Download the first stored PDF attachment of a record (or the attachment
itself when <key> is one) and search its first pages for a DOI.

Useful for records without identifiers: the result can be compared with the
record's metadata or used to look it up again. Linked files are stored
outside Zotero and cannot be downloaded.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

// IdentifyResponse is the response for the identify command.
type IdentifyResponse struct {
	Key        string `json:"key" yaml:"key"`
	Attachment string `json:"attachment" yaml:"attachment"`
	Filename   string `json:"filename,omitempty" yaml:"filename,omitempty"`
	RecordDOI  string `json:"record_doi,omitempty" yaml:"record_doi,omitempty"`

	pdf.Identification `yaml:",inline"`

	// Matches compares the extracted DOI with the record's, when both exist.
	Matches *bool `json:"matches,omitempty" yaml:"matches,omitempty"`
}

// errNoStoredPDF means a record has no downloadable PDF attachment.
var errNoStoredPDF = errors.New("no stored PDF attachment")

func runIdentify(cmd *cobra.Command, args []string) error {
	key := strings.TrimSpace(args[0])

	a := mustSetup()
	defer a.Close()
	ctx := cmd.Context()

	parent, attachment, err := a.findPDF(ctx, key)
	if err != nil {
		exitOnError(err, "finding PDF of "+key)
	}

	body, err := a.client.DownloadFile(ctx, attachment.Key)
	if err != nil {
		exitOnError(err, "downloading "+attachment.Key)
	}
	defer body.Close()

	id, err := pdf.Identify(body, identifyPages)
	if err != nil {
		exitWithError(ExitError, "reading %s: %v", attachment.Key, err)
	}

	resp := IdentifyResponse{
		Key:            key,
		Attachment:     attachment.Key,
		Filename:       attachment.Filename(),
		RecordDOI:      parent.DOI,
		Identification: id,
	}
	if record.HasDOI(parent) && id.DOI != "" {
		m := strings.EqualFold(strings.TrimSpace(parent.DOI), id.DOI)
		resp.Matches = &m
	}

	if humanOutput {
		outputHuman("Attachment: %s (%s, %d pages)\n", resp.Attachment, resp.Filename, resp.Pages)
		if resp.Title != "" {
			outputHuman("Title line: %s\n", truncateString(resp.Title, ListTitleMaxLen))
		}
		if resp.DOI == "" {
			outputHuman("%s No DOI found in the first %d pages\n", warnMark, identifyPages)
			return nil
		}
		outputHuman("%s DOI: %s\n", okMark, resp.DOI)
		if resp.Matches != nil {
			outputHuman("%s Record DOI: %s\n", mark(*resp.Matches), resp.RecordDOI)
		}
		return nil
	}
	return outputResult(resp)
}

// findPDF resolves key to its record and a downloadable PDF attachment. The
// cached snapshot is used when present; otherwise children are fetched
// directly.
func (a *app) findPDF(ctx context.Context, key string) (record.Record, record.Record, error) {
	parent := record.Record{Key: key}
	var children []record.Record

	snap, err := a.loadSnapshot(ctx)
	switch {
	case err == nil:
		if r, ok := snap.Get(key); ok {
			parent = r
			if record.IsFile(r) {
				if isStoredPDF(r) {
					return r, r, nil
				}
				return r, record.Record{}, fmt.Errorf("%s: %w", key, errNoStoredPDF)
			}
		}
		children, err = snap.Children(ctx, key)
	case errors.Is(err, store.ErrNoSnapshot), errors.Is(err, errLibraryMismatch):
		children, err = a.client.FetchChildren(ctx, key)
	}
	if err != nil {
		return parent, record.Record{}, err
	}

	for _, c := range children {
		if isStoredPDF(c) {
			return parent, c, nil
		}
	}
	return parent, record.Record{}, fmt.Errorf("%s: %w", key, errNoStoredPDF)
}

// isStoredPDF reports whether r is a PDF attachment whose file Zotero holds.
// Linked files live on the user's disk and cannot be downloaded.
func isStoredPDF(r record.Record) bool {
	return record.AttachmentIsPDF(r) && r.Attachment.LinkMode != record.LinkModeLinkedFile
}
