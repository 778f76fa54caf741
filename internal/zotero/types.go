// Package zotero provides a client for the Zotero Web API v3.
package zotero

// Item is one object as returned by the items endpoints with format=json.
type Item struct {
	Key     string   `json:"key"`
	Version int64    `json:"version"`
	Links   Links    `json:"links"`
	Meta    ItemMeta `json:"meta"`
	Data    ItemData `json:"data"`
}

// Links holds the link relations of an item. Only the attachment hint is used.
type Links struct {
	Attachment *AttachmentLink `json:"attachment,omitempty"`
}

// AttachmentLink is the best attachment the server advertises for a parent item.
type AttachmentLink struct {
	Href           string `json:"href"`
	AttachmentType string `json:"attachmentType"`
	AttachmentSize int64  `json:"attachmentSize,omitempty"`
}

// ItemMeta carries server-computed item metadata.
type ItemMeta struct {
	NumChildren *int `json:"numChildren,omitempty"`
}

// ItemData is the editable part of an item.
type ItemData struct {
	Key            string `json:"key"`
	Version        int64  `json:"version"`
	ItemType       string `json:"itemType"`
	Title          string `json:"title"`
	DOI            string `json:"DOI,omitempty"`
	ISBN           string `json:"ISBN,omitempty"`
	LibraryCatalog string `json:"libraryCatalog,omitempty"`
	DateAdded      string `json:"dateAdded"` // RFC 3339, UTC
	Tags           []Tag  `json:"tags"`
	ParentItem     string `json:"parentItem,omitempty"`

	// Attachment-only fields
	ContentType string `json:"contentType,omitempty"`
	LinkMode    string `json:"linkMode,omitempty"`
	Filename    string `json:"filename,omitempty"`
	MD5         string `json:"md5,omitempty"`
}

// Tag is a Zotero tag object. Type 1 marks automatic tags.
type Tag struct {
	Tag  string `json:"tag"`
	Type int    `json:"type,omitempty"`
}

// reparentPatch moves a child item under another parent.
type reparentPatch struct {
	ParentItem string `json:"parentItem"`
}

// tagsPatch replaces an item's tag list.
type tagsPatch struct {
	Tags []Tag `json:"tags"`
}
