package record

import (
	"fmt"
	"strings"
)

// IsFile reports whether the record is a child-style object
// (note, attachment or annotation), regardless of whether it has a parent.
func IsFile(r Record) bool {
	switch r.Kind {
	case KindNote, KindAttachment, KindAnnotation:
		return true
	default:
		return false
	}
}

// IsStandalone reports whether the record is a note, attachment or annotation
// without a parent. A record with a parent is never standalone.
func IsStandalone(r Record) bool {
	return r.ParentKey == "" && IsFile(r)
}

// IsArticle reports whether the record is a journal, conference or encyclopedia article.
func IsArticle(r Record) bool {
	return r.Kind == KindArticle
}

// IsBook reports whether the record is a book or book section.
func IsBook(r Record) bool {
	return r.Kind == KindBook
}

// IsMisc reports whether the record is a thesis, report or document.
func IsMisc(r Record) bool {
	return r.Kind == KindMisc
}

// AttachmentIsPDF reports whether the record is an attachment holding a PDF
// file. Linked URLs never count, even with a PDF content type.
// See https://www.zotero.org/support/dev/web_api/v3/file_upload
func AttachmentIsPDF(r Record) bool {
	if r.Kind != KindAttachment || r.Attachment == nil {
		return false
	}
	if r.Attachment.ContentType != ContentTypePDF {
		return false
	}
	switch r.Attachment.LinkMode {
	case LinkModeImportedFile, LinkModeLinkedFile, LinkModeImportedURL:
		return true
	default:
		return false
	}
}

// HasDOI reports whether the record carries a non-empty DOI.
// A missing DOI and an empty DOI are equivalent.
func HasDOI(r Record) bool {
	return strings.TrimSpace(r.DOI) != ""
}

// HasISBN reports whether the record carries a non-empty ISBN.
func HasISBN(r Record) bool {
	return strings.TrimSpace(r.ISBN) != ""
}

// DisplayTitle returns a one-line label for reports. Standalone records have
// no meaningful title, so their type (and filename) is shown instead.
func DisplayTitle(r Record) string {
	if IsStandalone(r) {
		label := fmt.Sprintf("Standalone item of type: <%s>", r.ItemType)
		if name := r.Filename(); name != "" {
			label += fmt.Sprintf(" (%s)", name)
		}
		return label
	}
	return r.Title
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindUnknown; c <= KindOther; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown record kind %q", string(text))
}
