package dedupe

import (
	"testing"
	"time"

	"github.com/chraibi/ZoteroTidy/internal/record"
)

var t0 = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return t0.AddDate(0, 0, n)
}

func article(key, doi string, added int) record.Record {
	return record.Record{Key: key, Kind: record.KindArticle, ItemType: "journalArticle", DOI: doi, DateAdded: day(added)}
}

func book(key, isbn string, added int) record.Record {
	return record.Record{Key: key, Kind: record.KindBook, ItemType: "book", ISBN: isbn, DateAdded: day(added)}
}

func TestGroupByIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		records    []record.Record
		wantGroups int
		wantDupes  int // total members across groups
	}{
		{
			name:       "no duplicates",
			records:    []record.Record{article("A", "10.1/a", 0), article("B", "10.1/b", 1)},
			wantGroups: 0,
		},
		{
			name:       "one duplicate pair",
			records:    []record.Record{article("A", "10.1/a", 0), article("A2", "10.1/a", 1), article("B", "10.1/b", 2)},
			wantGroups: 1,
			wantDupes:  2,
		},
		{
			name:       "doi compared case-insensitively",
			records:    []record.Record{article("A", "10.1/ABC", 0), article("A2", "10.1/abc", 1)},
			wantGroups: 1,
			wantDupes:  2,
		},
		{
			name:       "isbn groups books",
			records:    []record.Record{book("B1", "978-3-16", 0), book("B2", "978-3-16", 1)},
			wantGroups: 1,
			wantDupes:  2,
		},
		{
			name:       "isbn formatting not reconciled",
			records:    []record.Record{book("B1", "0968-090X", 0), book("B2", "0968090X", 1)},
			wantGroups: 0,
		},
		{
			name: "records without item type excluded",
			records: []record.Record{
				article("A", "10.1/a", 0),
				{Key: "U", Kind: record.KindUnknown, DOI: "10.1/a"},
			},
			wantGroups: 0,
		},
		{
			name:       "doi preferred over isbn",
			records:    []record.Record{{Key: "X", Kind: record.KindBook, DOI: "10.1/x", ISBN: "111"}, book("Y", "111", 1)},
			wantGroups: 0,
		},
		{
			name:       "empty identifiers skipped",
			records:    []record.Record{article("A", "", 0), article("B", "", 1), book("C", "", 2), book("D", "", 3)},
			wantGroups: 0,
		},
		{
			name: "attachments and notes skipped",
			records: []record.Record{
				{Key: "F1", Kind: record.KindAttachment, DOI: "10.1/a"},
				{Key: "F2", Kind: record.KindNote, DOI: "10.1/a", ParentKey: "P"},
				article("A", "10.1/a", 0),
			},
			wantGroups: 0,
		},
		{
			name: "multiple groups",
			records: []record.Record{
				article("A", "10.1/a", 0), article("A2", "10.1/a", 1), article("A3", "10.1/a", 2),
				book("B", "42", 0), book("B2", "42", 1),
			},
			wantGroups: 2,
			wantDupes:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := GroupByIdentifier(tt.records)
			if len(groups) != tt.wantGroups {
				t.Errorf("got %d groups, want %d", len(groups), tt.wantGroups)
			}
			if got := len(Members(groups)); got != tt.wantDupes {
				t.Errorf("got %d duplicated records, want %d", got, tt.wantDupes)
			}
		})
	}
}

func TestGroupByIdentifier_GroupsAreHomogeneous(t *testing.T) {
	records := []record.Record{
		article("A", "10.1/A", 3), article("B", "10.1/b", 2), article("C", "10.1/a", 1),
		book("D", "9", 0), article("E", "10.1/B", 4), book("F", "9", 5), article("G", "", 6),
	}

	for _, g := range GroupByIdentifier(records) {
		if len(g.Records) < 2 {
			t.Errorf("group %s has %d records, want >= 2", g.Identifier, len(g.Records))
		}
		for _, r := range g.Records {
			_, id, ok := IdentifierOf(r)
			if !ok || id != g.Identifier {
				t.Errorf("record %s (id %q) in group %q", r.Key, id, g.Identifier)
			}
		}
	}
}

func TestGroupByIdentifier_OldestFirst(t *testing.T) {
	records := []record.Record{article("new", "10.1/x", 3), article("old", "10.1/x", 1), article("mid", "10.1/x", 2)}

	groups := GroupByIdentifier(records)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}

	want := []string{"old", "mid", "new"}
	got := groups[0].Keys()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGroupByTitle(t *testing.T) {
	records := []record.Record{
		{Key: "A", Kind: record.KindArticle, ItemType: "journalArticle", Title: "Crowd Dynamics"},
		{Key: "B", Kind: record.KindArticle, ItemType: "journalArticle", Title: "crowd dynamics"},
		{Key: "C", Kind: record.KindBook, ItemType: "book", Title: "Crowd dynamics"},
		{Key: "D", Kind: record.KindBook, ItemType: "book", Title: "Pedestrians"},
		{Key: "E", Kind: record.KindBook, ItemType: "book", Title: "PEDESTRIANS"},
		{Key: "F", Kind: record.KindAttachment, ItemType: "attachment", Title: "Full Text PDF", ParentKey: "A"},
		{Key: "G", Kind: record.KindAttachment, ItemType: "attachment", Title: "Full Text PDF", ParentKey: "B"},
	}

	dups := GroupByTitle(records)
	if len(dups) != 2 {
		t.Fatalf("GroupByTitle() returned %d duplicates, want 2: %+v", len(dups), dups)
	}

	if dups[0].ItemType != "book" || dups[0].Title != "Pedestrians" || len(dups[0].Keys) != 2 {
		t.Errorf("dups[0] = %+v", dups[0])
	}
	if dups[1].ItemType != "journalArticle" || dups[1].Title != "Crowd dynamics" || len(dups[1].Keys) != 2 {
		t.Errorf("dups[1] = %+v", dups[1])
	}
}

func TestFoldTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello WORLD", "Hello world"},
		{"  spaced ", "Spaced"},
		{"élan", "Élan"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FoldTitle(tt.in); got != tt.want {
			t.Errorf("FoldTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
