package audit

import (
	"context"
	"testing"

	"github.com/chraibi/ZoteroTidy/internal/record"
)

type childMap map[string][]record.Record

func (m childMap) Children(_ context.Context, key string) ([]record.Record, error) {
	return m[key], nil
}

func pdf(key, filename string) record.Record {
	return record.Record{
		Key:        key,
		Kind:       record.KindAttachment,
		ParentKey:  "P",
		Attachment: &record.AttachmentData{ContentType: record.ContentTypePDF, LinkMode: record.LinkModeImportedFile, Filename: filename},
	}
}

func html(key string) record.Record {
	return record.Record{
		Key:        key,
		Kind:       record.KindAttachment,
		ParentKey:  "P",
		Attachment: &record.AttachmentData{ContentType: "text/html", LinkMode: record.LinkModeImportedURL, Filename: "snapshot.html"},
	}
}

var parent = record.Record{Key: "P", Kind: record.KindArticle, ItemType: "journalArticle", Title: "Paper"}

func TestResolveDuplicatePDFs(t *testing.T) {
	tests := []struct {
		name     string
		children []record.Record
		want     []string
	}{
		{"identical names delete one", []record.Record{pdf("A", "paper.pdf"), pdf("B", "paper.pdf")}, []string{"B"}},
		{"different names keep all", []record.Record{pdf("A", "paper.pdf"), pdf("B", "supplement.pdf")}, nil},
		{"three copies delete two", []record.Record{pdf("A", "x.pdf"), pdf("B", "x.pdf"), pdf("C", "x.pdf")}, []string{"B", "C"}},
		{"single pdf", []record.Record{pdf("A", "x.pdf")}, nil},
		{"non-pdf first is never deleted", []record.Record{html("H"), pdf("A", "x.pdf"), pdf("B", "x.pdf")}, []string{"B"}},
		{"two of three match", []record.Record{pdf("A", "x.pdf"), pdf("B", "x.pdf"), pdf("C", "y.pdf")}, nil},
		{"no children", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveDuplicatePDFs(parent, tt.children)
			if len(got) != len(tt.want) {
				t.Fatalf("ResolveDuplicatePDFs() = %d deletions, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].Key != tt.want[i] {
					t.Errorf("deletion[%d] = %s, want %s", i, got[i].Key, tt.want[i])
				}
			}
		})
	}
}

func TestResolveDuplicatePDFs_CountProperty(t *testing.T) {
	for n := 2; n <= 6; n++ {
		var same, mixed []record.Record
		for i := 0; i < n; i++ {
			key := string(rune('A' + i))
			same = append(same, pdf(key, "dup.pdf"))
			name := "dup.pdf"
			if i == n-1 {
				name = "other.pdf"
			}
			mixed = append(mixed, pdf(key, name))
		}
		if got := len(ResolveDuplicatePDFs(parent, same)); got != n-1 {
			t.Errorf("n=%d identical: %d deletions, want %d", n, got, n-1)
		}
		if got := len(ResolveDuplicatePDFs(parent, mixed)); got != 0 {
			t.Errorf("n=%d mixed: %d deletions, want 0", n, got)
		}
	}
}

func TestDuplicatePDFs(t *testing.T) {
	dup, names := DuplicatePDFs(parent, []record.Record{pdf("A", "a.pdf"), html("H"), pdf("B", "b.pdf")})
	if !dup {
		t.Error("DuplicatePDFs() = false, want true")
	}
	if len(names) != 2 || names[0] != "a.pdf" || names[1] != "b.pdf" {
		t.Errorf("names = %v, want [a.pdf b.pdf]", names)
	}

	dup, _ = DuplicatePDFs(parent, []record.Record{pdf("A", "a.pdf"), html("H")})
	if dup {
		t.Error("DuplicatePDFs() with one pdf = true, want false")
	}
}

func TestMissingPDF(t *testing.T) {
	tests := []struct {
		name string
		rec  record.Record
		want bool
	}{
		{"pdf hint", record.Record{Kind: record.KindArticle, LinkAttachmentType: record.ContentTypePDF}, false},
		{"no attachment link", record.Record{Kind: record.KindArticle}, true},
		{"html attachment", record.Record{Kind: record.KindBook, LinkAttachmentType: "text/html"}, true},
		{"standalone attachment", record.Record{Kind: record.KindAttachment}, false},
		{"child note", record.Record{Kind: record.KindNote, ParentKey: "P"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MissingPDF(tt.rec); got != tt.want {
				t.Errorf("MissingPDF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindDuplicatePDFs(t *testing.T) {
	records := []record.Record{
		{Key: "R1", Kind: record.KindArticle, Title: "Same names"},
		{Key: "R2", Kind: record.KindArticle, Title: "Supplement"},
		{Key: "R3", Kind: record.KindArticle, Title: "Single"},
		{Key: "S", Kind: record.KindAttachment},
	}
	children := childMap{
		"R1": {pdf("A", "paper.pdf"), pdf("B", "paper.pdf")},
		"R2": {pdf("C", "paper.pdf"), pdf("D", "supplement.pdf")},
		"R3": {pdf("E", "paper.pdf")},
	}

	findings, err := FindDuplicatePDFs(context.Background(), records, children)
	if err != nil {
		t.Fatalf("FindDuplicatePDFs() error = %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("FindDuplicatePDFs() = %d findings, want 2", len(findings))
	}
	if findings[0].Key != "R1" || !findings[0].Redundant {
		t.Errorf("findings[0] = %+v, want R1 redundant", findings[0])
	}
	if findings[1].Key != "R2" || findings[1].Redundant {
		t.Errorf("findings[1] = %+v, want R2 not redundant", findings[1])
	}
}

func TestMissingIdentifiers_EmptyEqualsAbsent(t *testing.T) {
	records := []record.Record{
		{Key: "EMPTY", Kind: record.KindArticle, ItemType: "journalArticle", DOI: ""},
		{Key: "ABSENT", Kind: record.KindArticle, ItemType: "journalArticle"},
		{Key: "HASDOI", Kind: record.KindArticle, ItemType: "journalArticle", DOI: "10.1/x"},
		{Key: "HASISBN", Kind: record.KindBook, ItemType: "book", ISBN: "123"},
		{Key: "UNKNOWN", Kind: record.KindUnknown},
		{Key: "NOTE", Kind: record.KindNote},
	}

	got := MissingIdentifiers(records)
	if len(got) != 2 || got[0].Key != "EMPTY" || got[1].Key != "ABSENT" {
		t.Errorf("MissingIdentifiers() = %v, want [EMPTY ABSENT]", keys(got))
	}
}

func TestEmptyIdentifiers(t *testing.T) {
	records := []record.Record{
		{Key: "A1", Kind: record.KindArticle},
		{Key: "A2", Kind: record.KindArticle, DOI: "10.1/x"},
		{Key: "B1", Kind: record.KindBook},
		{Key: "B2", Kind: record.KindBook, DOI: "10.1/y"}, // a DOI does not stand in for an ISBN
		{Key: "M", Kind: record.KindMisc},
		{Key: "U", Kind: record.KindUnknown},
		{Key: "S", Kind: record.KindAttachment},
	}

	empty, skipped := EmptyIdentifiers(records)
	if got := keys(empty); len(got) != 3 || got[0] != "A1" || got[1] != "B1" || got[2] != "B2" {
		t.Errorf("empty = %v, want [A1 B1 B2]", got)
	}
	if got := keys(skipped); len(got) != 2 || got[0] != "M" || got[1] != "U" {
		t.Errorf("skipped = %v, want [M U]", got)
	}
}

func TestSuspiciousAndStandalone(t *testing.T) {
	records := []record.Record{
		{Key: "Z", Kind: record.KindArticle, LibraryCatalog: "Zotero"},
		{Key: "C", Kind: record.KindArticle, LibraryCatalog: "Crossref"},
		{Key: "S", Kind: record.KindNote},
		{Key: "N", Kind: record.KindNote, ParentKey: "C"},
	}
	if got := keys(Suspicious(records)); len(got) != 1 || got[0] != "Z" {
		t.Errorf("Suspicious() = %v, want [Z]", got)
	}
	if got := keys(Standalone(records)); len(got) != 1 || got[0] != "S" {
		t.Errorf("Standalone() = %v, want [S]", got)
	}
}

func keys(records []record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key
	}
	return out
}
