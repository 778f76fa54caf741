package zotero

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chraibi/ZoteroTidy/internal/record"
	"github.com/rs/zerolog"
)

const sampleItem = `{
  "key": "ABCD2345",
  "version": 1234,
  "links": {"attachment": {"href": "https://api.zotero.org/users/1/items/PDF1", "attachmentType": "application/pdf"}},
  "meta": {"numChildren": 2},
  "data": {
    "key": "ABCD2345",
    "version": 1234,
    "itemType": "journalArticle",
    "title": " Crowd dynamics ",
    "DOI": "10.1016/j.physa.2020.1",
    "libraryCatalog": "Zotero",
    "dateAdded": "2021-03-04T05:06:07Z",
    "tags": [{"tag": "nopdf"}, {"tag": "auto", "type": 1}]
  }
}`

func TestMapItemToRecord(t *testing.T) {
	var item Item
	if err := json.Unmarshal([]byte(sampleItem), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	r := MapItemToRecord(item, zerolog.Nop())

	if r.Key != "ABCD2345" || r.Version != 1234 {
		t.Errorf("identity = %s/%d", r.Key, r.Version)
	}
	if r.Kind != record.KindArticle || r.ItemType != "journalArticle" {
		t.Errorf("kind = %v (%s), want article", r.Kind, r.ItemType)
	}
	if r.Title != "Crowd dynamics" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.DOI != "10.1016/j.physa.2020.1" {
		t.Errorf("DOI = %q", r.DOI)
	}
	if r.LibraryCatalog != "Zotero" {
		t.Errorf("LibraryCatalog = %q", r.LibraryCatalog)
	}
	if want := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC); !r.DateAdded.Equal(want) {
		t.Errorf("DateAdded = %v, want %v", r.DateAdded, want)
	}
	if r.NumChildren != 2 {
		t.Errorf("NumChildren = %d, want 2", r.NumChildren)
	}
	if r.LinkAttachmentType != record.ContentTypePDF {
		t.Errorf("LinkAttachmentType = %q", r.LinkAttachmentType)
	}
	if len(r.Tags) != 2 || !r.HasTag("nopdf") {
		t.Errorf("Tags = %v", r.Tags)
	} else if r.Tags[1] != (record.Tag{Name: "auto", Type: 1}) {
		t.Errorf("automatic tag = %+v, want type 1 kept", r.Tags[1])
	}
	if r.Attachment != nil {
		t.Errorf("Attachment = %+v, want nil for article", r.Attachment)
	}
}

func TestMapItemToRecord_PartialData(t *testing.T) {
	tests := []struct {
		name         string
		item         Item
		wantKind     record.Kind
		wantChildren int
	}{
		{
			name:         "missing item type",
			item:         Item{Key: "X", Data: ItemData{Title: "orphan"}},
			wantKind:     record.KindUnknown,
			wantChildren: -1,
		},
		{
			name:         "unlisted item type",
			item:         Item{Key: "Y", Data: ItemData{ItemType: "podcast"}},
			wantKind:     record.KindOther,
			wantChildren: -1,
		},
		{
			name:         "bad date is tolerated",
			item:         Item{Key: "Z", Data: ItemData{ItemType: "book", DateAdded: "yesterday"}},
			wantKind:     record.KindBook,
			wantChildren: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MapItemToRecord(tt.item, zerolog.Nop())
			if r.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", r.Kind, tt.wantKind)
			}
			if r.NumChildren != tt.wantChildren {
				t.Errorf("NumChildren = %d, want %d", r.NumChildren, tt.wantChildren)
			}
		})
	}
}

func TestMapItemToRecord_Attachment(t *testing.T) {
	item := Item{Key: "ATT", Data: ItemData{
		ItemType:    "attachment",
		ParentItem:  "P",
		ContentType: record.ContentTypePDF,
		LinkMode:    record.LinkModeImportedURL,
		Filename:    "paper.pdf",
		MD5:         "abc",
	}}

	r := MapItemToRecord(item, zerolog.Nop())
	if r.Attachment == nil {
		t.Fatal("Attachment = nil")
	}
	if !record.AttachmentIsPDF(r) {
		t.Error("AttachmentIsPDF() = false")
	}
	if r.ParentKey != "P" || record.IsStandalone(r) {
		t.Errorf("ParentKey = %q, standalone = %v", r.ParentKey, record.IsStandalone(r))
	}
}

func TestMergeTags(t *testing.T) {
	auto := record.Tag{Name: "Physics", Type: 1}
	tests := []struct {
		name        string
		existing    []record.Tag
		add         []string
		want        []record.Tag
		wantChanged bool
	}{
		{"all new", nil, []string{"a", "b"}, []record.Tag{{Name: "a"}, {Name: "b"}}, true},
		{"already present", []record.Tag{{Name: "a"}}, []string{"a"}, []record.Tag{{Name: "a"}}, false},
		{"partial", []record.Tag{{Name: "a"}}, []string{"a", "b", "b"}, []record.Tag{{Name: "a"}, {Name: "b"}}, true},
		{"empty tag ignored", []record.Tag{{Name: "a"}}, []string{""}, []record.Tag{{Name: "a"}}, false},
		{"automatic tag kept", []record.Tag{auto}, []string{"nopdf"}, []record.Tag{auto, {Name: "nopdf"}}, true},
		{"automatic tag not duplicated", []record.Tag{auto}, []string{"Physics"}, []record.Tag{auto}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := mergeTags(tt.existing, tt.add)
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("merged = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("merged = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
