package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/chraibi/ZoteroTidy/internal/audit"
	"github.com/chraibi/ZoteroTidy/internal/dedupe"
	"github.com/chraibi/ZoteroTidy/internal/intent"
	"github.com/chraibi/ZoteroTidy/internal/record"
)

// Tags written by the maintenance commands.
const (
	TagSuspicious    = "todo_catalog"
	TagNoPDF         = "nopdf"
	TagDuplicatePDF  = "duplicate_pdf"
	TagDuplicateItem = "duplicate_item"
	TagOpenAccess    = "open-access"
)

// MergeIntents plans the merge of every duplicate group. When anything is to
// be merged, the duplicate_item marker tag is removed library-wide last.
func (s *Snapshot) MergeIntents(ctx context.Context, opts dedupe.MergeOptions) ([]intent.Intent, []dedupe.Plan, error) {
	plans, err := dedupe.PlanMerges(ctx, s.Analysis().Duplicates().Items, s, opts)
	if err != nil {
		return nil, nil, err
	}
	var intents []intent.Intent
	for _, p := range plans {
		intents = append(intents, p.Intents()...)
	}
	if len(intents) > 0 {
		intents = append(intents, intent.RemoveTag(TagDuplicateItem))
	}
	return intent.Ordered(intents), plans, nil
}

// PDFDedupeIntents schedules the redundant copies of identically named PDF
// attachments for deletion. When anything is deleted, the duplicate_pdf
// marker tag is removed library-wide last.
func (s *Snapshot) PDFDedupeIntents(ctx context.Context) ([]intent.Intent, error) {
	findings, err := s.Analysis().MultiplePDF(ctx)
	if err != nil {
		return nil, err
	}

	var intents []intent.Intent
	for _, f := range findings.Items {
		if !f.Redundant {
			s.logger.Info().Str("key", f.Key).Strs("files", f.Filenames).Msg("pdf names differ; keeping all")
			continue
		}
		children, err := s.Children(ctx, f.Key)
		if err != nil {
			return nil, fmt.Errorf("listing children of %s: %w", f.Key, err)
		}
		for _, c := range audit.ResolveDuplicatePDFs(f.Record, children) {
			intents = append(intents, intent.Delete(c))
		}
	}
	if len(intents) > 0 {
		intents = append(intents, intent.RemoveTag(TagDuplicatePDF))
	}
	return intent.Ordered(intents), nil
}

// TagOptions selects which checks feed the tag command.
type TagOptions struct {
	Suspicious  bool
	NoPDF       bool
	MultiplePDF bool
	Duplicates  bool
	// OpenAccessDOIs holds lower-cased DOIs known to be open access.
	OpenAccessDOIs map[string]bool
}

// TagIntents collects the tags each selected check assigns and emits one
// tag intent per record, so a record is written at most once.
func (s *Snapshot) TagIntents(ctx context.Context, opts TagOptions) ([]intent.Intent, error) {
	a := s.Analysis()
	tags := make(map[string][]string)
	var order []string
	add := func(r record.Record, tag string) {
		if record.IsStandalone(r) {
			return
		}
		if _, seen := tags[r.Key]; !seen {
			order = append(order, r.Key)
		}
		for _, t := range tags[r.Key] {
			if t == tag {
				return
			}
		}
		tags[r.Key] = append(tags[r.Key], tag)
	}

	if opts.Suspicious {
		for _, r := range a.Suspicious().Items {
			add(r, TagSuspicious)
		}
	}
	if opts.MultiplePDF {
		findings, err := a.MultiplePDF(ctx)
		if err != nil {
			return nil, err
		}
		for _, f := range findings.Items {
			add(f.Record, TagDuplicatePDF)
		}
	}
	if opts.NoPDF {
		for _, r := range a.WithoutPDF().Items {
			add(r, TagNoPDF)
		}
	}
	if opts.Duplicates {
		for _, r := range a.DuplicateRecords().Items {
			add(r, TagDuplicateItem)
		}
	}
	if len(opts.OpenAccessDOIs) > 0 {
		for _, r := range s.records {
			if record.IsFile(r) || !record.HasDOI(r) {
				continue
			}
			if opts.OpenAccessDOIs[normalizeDOI(r.DOI)] {
				add(r, TagOpenAccess)
			}
		}
	}

	intents := make([]intent.Intent, 0, len(order))
	for _, key := range order {
		r, _ := s.Get(key)
		intents = append(intents, intent.Tag(r, tags[key]...))
	}
	return intents, nil
}

// DOIs returns the distinct, lower-cased DOIs of all non-file records in
// sorted order.
func (s *Snapshot) DOIs() []string {
	seen := make(map[string]bool)
	var dois []string
	for _, r := range s.records {
		if record.IsFile(r) || !record.HasDOI(r) {
			continue
		}
		d := normalizeDOI(r.DOI)
		if !seen[d] {
			seen[d] = true
			dois = append(dois, d)
		}
	}
	sort.Strings(dois)
	return dois
}

func normalizeDOI(doi string) string {
	return strings.ToLower(strings.TrimSpace(doi))
}
