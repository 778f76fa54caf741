// Package record defines the domain types for Zotero library records.
package record

import "time"

// Kind is the closed set of record variants the maintenance checks care about.
type Kind int

const (
	KindUnknown Kind = iota // itemType missing from the payload
	KindArticle
	KindBook
	KindMisc
	KindNote
	KindAttachment
	KindAnnotation
	KindOther // a valid Zotero itemType outside the buckets above
)

// Zotero item types grouped into kinds.
var (
	articleTypes = []string{"conferencePaper", "encyclopediaArticle", "journalArticle"}
	bookTypes    = []string{"book", "bookSection"}
	miscTypes    = []string{"thesis", "report", "document"}
)

// Attachment link modes and content types.
const (
	LinkModeImportedFile = "imported_file"
	LinkModeLinkedFile   = "linked_file"
	LinkModeImportedURL  = "imported_url"
	LinkModeLinkedURL    = "linked_url"

	ContentTypePDF = "application/pdf"
)

// Record is one bibliographic entity (or child object) in a remote library.
type Record struct {
	// Identity
	Key     string `json:"key"`
	Version int64  `json:"version"`

	// Type
	Kind     Kind   `json:"kind"`
	ItemType string `json:"item_type"` // raw Zotero itemType, empty if missing

	// Metadata
	Title          string    `json:"title"`
	DOI            string    `json:"doi,omitempty"`
	ISBN           string    `json:"isbn,omitempty"`
	LibraryCatalog string    `json:"library_catalog,omitempty"`
	DateAdded      time.Time `json:"date_added"`
	Tags           []Tag     `json:"tags,omitempty"`

	// Relationships
	ParentKey   string `json:"parent_key,omitempty"`
	NumChildren int    `json:"num_children"` // -1 when the server did not report it

	// LinkAttachmentType is the content type of the best attachment as
	// advertised by the list endpoint (links.attachment.attachmentType).
	LinkAttachmentType string `json:"link_attachment_type,omitempty"`

	// Attachment is set only for KindAttachment.
	Attachment *AttachmentData `json:"attachment,omitempty"`
}

// Tag is a record tag as stored remotely. Type 0 is a manual tag, 1 an
// automatic one; the type must survive every write.
type Tag struct {
	Name string `json:"tag"`
	Type int    `json:"type,omitempty"`
}

// AttachmentData carries the attachment-only fields.
type AttachmentData struct {
	ContentType string `json:"content_type"`
	LinkMode    string `json:"link_mode"`
	Filename    string `json:"filename,omitempty"`
	MD5         string `json:"md5,omitempty"`
}

// ParseKind maps a Zotero itemType to its Kind.
func ParseKind(itemType string) Kind {
	switch itemType {
	case "":
		return KindUnknown
	case "note":
		return KindNote
	case "attachment":
		return KindAttachment
	case "annotation":
		return KindAnnotation
	}
	switch {
	case contains(articleTypes, itemType):
		return KindArticle
	case contains(bookTypes, itemType):
		return KindBook
	case contains(miscTypes, itemType):
		return KindMisc
	}
	return KindOther
}

func (k Kind) String() string {
	switch k {
	case KindArticle:
		return "article"
	case KindBook:
		return "book"
	case KindMisc:
		return "misc"
	case KindNote:
		return "note"
	case KindAttachment:
		return "attachment"
	case KindAnnotation:
		return "annotation"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// HasTag reports whether the record already carries tag.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t.Name == tag {
			return true
		}
	}
	return false
}

// TagNames returns the names of the record's tags in order.
func (r Record) TagNames() []string {
	names := make([]string, len(r.Tags))
	for i, t := range r.Tags {
		names[i] = t.Name
	}
	return names
}

// Filename returns the attachment filename, or "" for non-attachments.
func (r Record) Filename() string {
	if r.Attachment == nil {
		return ""
	}
	return r.Attachment.Filename
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
