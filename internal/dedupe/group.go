// Package dedupe finds duplicate records and plans how to merge them.
package dedupe

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chraibi/ZoteroTidy/internal/record"
)

// Identifier types used as group keys.
const (
	IdentifierDOI  = "doi"
	IdentifierISBN = "isbn"
)

// Group is a set of records sharing a DOI or ISBN, oldest first.
type Group struct {
	IdentifierType string          `json:"identifier_type"`
	Identifier     string          `json:"identifier"`
	Records        []record.Record `json:"-"`
}

// Keys returns the record keys of the group in order.
func (g Group) Keys() []string {
	keys := make([]string, len(g.Records))
	for i, r := range g.Records {
		keys[i] = r.Key
	}
	return keys
}

// IdentifierOf returns the grouping key of a record: its DOI (case-folded)
// when present, otherwise its ISBN. ok is false for records with neither.
//
// ISBNs are compared literally: "0968-090X" and "0968090X" are different
// keys, as are ISBN-10 and ISBN-13 forms of the same book.
func IdentifierOf(r record.Record) (idType, id string, ok bool) {
	if record.HasDOI(r) {
		return IdentifierDOI, strings.ToLower(strings.TrimSpace(r.DOI)), true
	}
	if record.HasISBN(r) {
		return IdentifierISBN, strings.TrimSpace(r.ISBN), true
	}
	return "", "", false
}

// GroupByIdentifier groups non-file records of known type by DOI or ISBN and
// returns only the groups with more than one member. Records within a group
// are sorted by date added, oldest first; groups are sorted by identifier.
func GroupByIdentifier(records []record.Record) []Group {
	byID := make(map[string]*Group)
	var order []string

	for _, r := range records {
		if record.IsFile(r) || r.Kind == record.KindUnknown {
			continue // covers standalone items too
		}
		idType, id, ok := IdentifierOf(r)
		if !ok {
			continue
		}
		mapKey := idType + ":" + id
		g, exists := byID[mapKey]
		if !exists {
			g = &Group{IdentifierType: idType, Identifier: id}
			byID[mapKey] = g
			order = append(order, mapKey)
		}
		g.Records = append(g.Records, r)
	}

	var groups []Group
	for _, k := range order {
		g := byID[k]
		if len(g.Records) < 2 {
			continue
		}
		sortOldestFirst(g.Records)
		groups = append(groups, *g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Identifier < groups[j].Identifier
	})
	return groups
}

// Members flattens groups into the list of every duplicated record.
func Members(groups []Group) []record.Record {
	var out []record.Record
	for _, g := range groups {
		out = append(out, g.Records...)
	}
	return out
}

// TitleDuplicate is a title seen more than once within one item type.
type TitleDuplicate struct {
	ItemType string   `json:"item_type"`
	Title    string   `json:"title"`
	Keys     []string `json:"keys"`
}

// GroupByTitle reports titles that occur more than once within the same item
// type after capitalization folding. This is a weak heuristic for records
// without identifiers: distinct works sharing a title are reported too. The
// result is for reporting only and is never used to merge.
func GroupByTitle(records []record.Record) []TitleDuplicate {
	type bucketKey struct{ itemType, title string }
	keys := make(map[bucketKey][]string)
	var order []bucketKey

	for _, r := range records {
		if record.IsFile(r) || r.Kind == record.KindUnknown {
			continue
		}
		k := bucketKey{r.ItemType, FoldTitle(r.Title)}
		if _, seen := keys[k]; !seen {
			order = append(order, k)
		}
		keys[k] = append(keys[k], r.Key)
	}

	var dups []TitleDuplicate
	for _, k := range order {
		if len(keys[k]) < 2 {
			continue
		}
		dups = append(dups, TitleDuplicate{ItemType: k.itemType, Title: k.title, Keys: keys[k]})
	}

	sort.SliceStable(dups, func(i, j int) bool {
		if dups[i].ItemType != dups[j].ItemType {
			return dups[i].ItemType < dups[j].ItemType
		}
		return dups[i].Title < dups[j].Title
	})
	return dups
}

// FoldTitle upper-cases the first letter and lower-cases the rest, so titles
// differing only in capitalization compare equal.
func FoldTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(first)) + strings.ToLower(title[size:])
}

func sortOldestFirst(records []record.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DateAdded.Before(records[j].DateAdded)
	})
}
