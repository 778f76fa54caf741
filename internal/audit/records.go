package audit

import (
	"github.com/chraibi/ZoteroTidy/internal/record"
)

// SuspiciousCatalog is the libraryCatalog value Zotero assigns to records it
// built from a bare PDF. Such metadata is often incomplete.
const SuspiciousCatalog = "Zotero"

// Standalone returns notes, attachments and annotations without a parent.
func Standalone(records []record.Record) []record.Record {
	var out []record.Record
	for _, r := range records {
		if record.IsStandalone(r) {
			out = append(out, r)
		}
	}
	return out
}

// Suspicious returns records whose library catalog marks them as imported
// from a PDF without proper metadata.
func Suspicious(records []record.Record) []record.Record {
	var out []record.Record
	for _, r := range records {
		if r.LibraryCatalog == SuspiciousCatalog {
			out = append(out, r)
		}
	}
	return out
}

// WithoutPDF returns top-level records for which MissingPDF holds.
func WithoutPDF(records []record.Record) []record.Record {
	var out []record.Record
	for _, r := range records {
		if r.Kind == record.KindUnknown {
			continue
		}
		if MissingPDF(r) {
			out = append(out, r)
		}
	}
	return out
}

// MissingIdentifiers returns top-level records with neither a DOI nor an
// ISBN. An absent field and an empty one are treated alike. Records of
// unknown type are left out.
func MissingIdentifiers(records []record.Record) []record.Record {
	var out []record.Record
	for _, r := range records {
		if r.Kind == record.KindUnknown || record.IsFile(r) {
			continue
		}
		if !record.HasDOI(r) && !record.HasISBN(r) {
			out = append(out, r)
		}
	}
	return out
}

// EmptyIdentifiers returns articles without a DOI and books without an ISBN.
// Records of any other top-level kind have no expected identifier and are
// returned in skipped so the caller can log them.
func EmptyIdentifiers(records []record.Record) (empty, skipped []record.Record) {
	for _, r := range records {
		if record.IsFile(r) {
			continue
		}
		switch r.Kind {
		case record.KindArticle:
			if !record.HasDOI(r) {
				empty = append(empty, r)
			}
		case record.KindBook:
			if !record.HasISBN(r) {
				empty = append(empty, r)
			}
		case record.KindMisc, record.KindOther, record.KindUnknown:
			skipped = append(skipped, r)
		}
	}
	return empty, skipped
}
