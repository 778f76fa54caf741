package zotero

import (
	"strings"
	"time"

	"github.com/chraibi/ZoteroTidy/internal/record"
	"github.com/rs/zerolog"
)

// MapItemToRecord converts an API item to a record. Items without an
// itemType map to record.KindUnknown and are logged; they are never dropped.
func MapItemToRecord(item Item, log zerolog.Logger) record.Record {
	d := item.Data
	r := record.Record{
		Key:            item.Key,
		Version:        item.Version,
		Kind:           record.ParseKind(d.ItemType),
		ItemType:       d.ItemType,
		Title:          strings.TrimSpace(d.Title),
		DOI:            strings.TrimSpace(d.DOI),
		ISBN:           strings.TrimSpace(d.ISBN),
		LibraryCatalog: d.LibraryCatalog,
		ParentKey:      d.ParentItem,
		Tags:           mapTags(d.Tags),
		NumChildren:    -1,
	}
	if r.Key == "" {
		r.Key = d.Key
	}
	if r.Version == 0 {
		r.Version = d.Version
	}
	if item.Meta.NumChildren != nil {
		r.NumChildren = *item.Meta.NumChildren
	}
	if item.Links.Attachment != nil {
		r.LinkAttachmentType = item.Links.Attachment.AttachmentType
	}

	if d.DateAdded != "" {
		added, err := time.Parse(time.RFC3339, d.DateAdded)
		if err != nil {
			log.Warn().Str("key", r.Key).Str("dateAdded", d.DateAdded).Msg("unparseable dateAdded")
		} else {
			r.DateAdded = added.UTC()
		}
	}

	if r.Kind == record.KindUnknown {
		log.Warn().Str("key", r.Key).Msg("item has no itemType; excluded from type-dependent reports")
	}

	if r.Kind == record.KindAttachment {
		r.Attachment = &record.AttachmentData{
			ContentType: d.ContentType,
			LinkMode:    d.LinkMode,
			Filename:    d.Filename,
			MD5:         d.MD5,
		}
	}

	return r
}

// MapItems converts a page of items.
func MapItems(items []Item, log zerolog.Logger) []record.Record {
	out := make([]record.Record, 0, len(items))
	for _, it := range items {
		out = append(out, MapItemToRecord(it, log))
	}
	return out
}

func mapTags(tags []Tag) []record.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]record.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, record.Tag{Name: t.Tag, Type: t.Type})
	}
	return out
}

// mergeTags returns existing, untouched, followed by any of add not already
// present as manual tags, and whether anything was added.
func mergeTags(existing []record.Tag, add []string) ([]record.Tag, bool) {
	merged := append([]record.Tag(nil), existing...)
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t.Name] = true
	}
	changed := false
	for _, name := range add {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		merged = append(merged, record.Tag{Name: name})
		changed = true
	}
	return merged, changed
}

func toTags(tags []record.Tag) []Tag {
	out := make([]Tag, len(tags))
	for i, t := range tags {
		out[i] = Tag{Tag: t.Name, Type: t.Type}
	}
	return out
}
