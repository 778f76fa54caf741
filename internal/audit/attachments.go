// Package audit inspects records and their attachments for maintenance issues.
package audit

import (
	"context"
	"fmt"

	"github.com/chraibi/ZoteroTidy/internal/record"
)

// ChildLister returns the immediate children of a record.
type ChildLister interface {
	Children(ctx context.Context, key string) ([]record.Record, error)
}

// PDFFinding is a record with more than one PDF attachment.
type PDFFinding struct {
	Record    record.Record `json:"-"`
	Key       string        `json:"key"`
	Title     string        `json:"title"`
	Filenames []string      `json:"filenames"`
	Redundant bool          `json:"redundant"` // all filenames identical
}

// pdfChildren returns the PDF attachments among children, in list order.
func pdfChildren(children []record.Record) []record.Record {
	var pdfs []record.Record
	for _, c := range children {
		if record.AttachmentIsPDF(c) {
			pdfs = append(pdfs, c)
		}
	}
	return pdfs
}

// DuplicatePDFs reports whether rec has more than one PDF attachment among
// children, along with the PDF filenames in list order.
func DuplicatePDFs(rec record.Record, children []record.Record) (bool, []string) {
	if record.IsStandalone(rec) {
		return false, nil
	}
	pdfs := pdfChildren(children)
	names := make([]string, len(pdfs))
	for i, p := range pdfs {
		names[i] = p.Filename()
	}
	return len(pdfs) > 1, names
}

// MissingPDF reports whether a top-level record lacks a PDF, judged from the
// attachment hint the list endpoint returns with each record.
func MissingPDF(rec record.Record) bool {
	if record.IsFile(rec) {
		return false
	}
	return rec.LinkAttachmentType != record.ContentTypePDF
}

// ResolveDuplicatePDFs returns the PDF attachments to delete so that one
// copy remains. Only exact filename collisions count as redundant copies:
// when the PDF filenames differ (e.g. a paper and its supplement) nothing is
// scheduled. The first PDF in list order is kept.
func ResolveDuplicatePDFs(rec record.Record, children []record.Record) []record.Record {
	if record.IsStandalone(rec) {
		return nil
	}
	pdfs := pdfChildren(children)
	if len(pdfs) < 2 {
		return nil
	}
	first := pdfs[0].Filename()
	for _, p := range pdfs[1:] {
		if p.Filename() != first {
			return nil
		}
	}
	return pdfs[1:]
}

// FindDuplicatePDFs scans every non-file record and returns those with more
// than one PDF attachment.
func FindDuplicatePDFs(ctx context.Context, records []record.Record, lister ChildLister) ([]PDFFinding, error) {
	var findings []PDFFinding
	for _, r := range records {
		if record.IsFile(r) {
			continue
		}
		children, err := lister.Children(ctx, r.Key)
		if err != nil {
			return nil, fmt.Errorf("listing children of %s: %w", r.Key, err)
		}
		dup, names := DuplicatePDFs(r, children)
		if !dup {
			continue
		}
		findings = append(findings, PDFFinding{
			Record:    r,
			Key:       r.Key,
			Title:     record.DisplayTitle(r),
			Filenames: names,
			Redundant: len(ResolveDuplicatePDFs(r, children)) > 0,
		})
	}
	return findings, nil
}
