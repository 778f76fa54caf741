package snapshot

import (
	"context"

	"github.com/chraibi/ZoteroTidy/internal/audit"
	"github.com/chraibi/ZoteroTidy/internal/dedupe"
	"github.com/chraibi/ZoteroTidy/internal/record"
	"github.com/chraibi/ZoteroTidy/internal/report"
)

// Analysis computes each check at most once per snapshot. It is discarded
// together with its snapshot, so a reload never sees stale findings.
type Analysis struct {
	snap *Snapshot

	duplicates      report.Report[dedupe.Group]
	titleDuplicates report.Report[dedupe.TitleDuplicate]
	standalone      report.Report[record.Record]
	multiplePDF     report.Report[audit.PDFFinding]
	withoutPDF      report.Report[record.Record]
	noIdentifier    report.Report[record.Record]
	emptyIdentifier report.Report[record.Record]
	skippedKinds    report.Report[record.Record]
	suspicious      report.Report[record.Record]
}

// Duplicates groups records sharing a DOI or ISBN.
func (a *Analysis) Duplicates() report.Report[dedupe.Group] {
	if !a.duplicates.Computed {
		a.duplicates = report.Of(dedupe.GroupByIdentifier(a.snap.records))
	}
	return a.duplicates
}

// DuplicateRecords returns every member of every duplicate group.
func (a *Analysis) DuplicateRecords() report.Report[record.Record] {
	return report.Of(dedupe.Members(a.Duplicates().Items))
}

// TitleDuplicates reports titles repeated within an item type.
func (a *Analysis) TitleDuplicates() report.Report[dedupe.TitleDuplicate] {
	if !a.titleDuplicates.Computed {
		a.titleDuplicates = report.Of(dedupe.GroupByTitle(a.snap.records))
	}
	return a.titleDuplicates
}

// Standalone lists notes, attachments and annotations without a parent.
func (a *Analysis) Standalone() report.Report[record.Record] {
	if !a.standalone.Computed {
		a.standalone = report.Of(audit.Standalone(a.snap.records))
	}
	return a.standalone
}

// MultiplePDF lists records with more than one PDF attachment. Children not
// held by the snapshot are fetched remotely, so this may fail.
func (a *Analysis) MultiplePDF(ctx context.Context) (report.Report[audit.PDFFinding], error) {
	if !a.multiplePDF.Computed {
		findings, err := audit.FindDuplicatePDFs(ctx, a.snap.records, a.snap)
		if err != nil {
			return report.Report[audit.PDFFinding]{}, err
		}
		a.multiplePDF = report.Of(findings)
	}
	return a.multiplePDF, nil
}

// WithoutPDF lists top-level records with no PDF attachment.
func (a *Analysis) WithoutPDF() report.Report[record.Record] {
	if !a.withoutPDF.Computed {
		a.withoutPDF = report.Of(audit.WithoutPDF(a.snap.records))
	}
	return a.withoutPDF
}

// NoIdentifier lists records with neither DOI nor ISBN.
func (a *Analysis) NoIdentifier() report.Report[record.Record] {
	if !a.noIdentifier.Computed {
		a.noIdentifier = report.Of(audit.MissingIdentifiers(a.snap.records))
	}
	return a.noIdentifier
}

// EmptyIdentifier lists articles without DOI and books without ISBN. The
// second report holds the records whose kind has no expected identifier.
func (a *Analysis) EmptyIdentifier() (empty, skipped report.Report[record.Record]) {
	if !a.emptyIdentifier.Computed {
		e, s := audit.EmptyIdentifiers(a.snap.records)
		a.emptyIdentifier = report.Of(e)
		a.skippedKinds = report.Of(s)
		for _, r := range s {
			a.snap.logger.Warn().Str("key", r.Key).Str("type", r.ItemType).Msg("no expected identifier for item type")
		}
	}
	return a.emptyIdentifier, a.skippedKinds
}

// Suspicious lists records whose metadata was likely built from a bare PDF.
func (a *Analysis) Suspicious() report.Report[record.Record] {
	if !a.suspicious.Computed {
		a.suspicious = report.Of(audit.Suspicious(a.snap.records))
	}
	return a.suspicious
}

// Head returns the first n records in fetch order, most recently modified first.
func (a *Analysis) Head(n int) report.Report[record.Record] {
	return report.Of(a.snap.records).Head(n)
}
