package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/chraibi/ZoteroTidy/internal/intent"
	"github.com/chraibi/ZoteroTidy/internal/record"
)

type childMap map[string][]record.Record

func (m childMap) Children(_ context.Context, key string) ([]record.Record, error) {
	return m[key], nil
}

type failingLister struct{}

func (failingLister) Children(context.Context, string) ([]record.Record, error) {
	return nil, errors.New("network down")
}

func pdfChild(key, parent, filename string) record.Record {
	return record.Record{
		Key:        key,
		Kind:       record.KindAttachment,
		ItemType:   "attachment",
		ParentKey:  parent,
		Attachment: &record.AttachmentData{ContentType: record.ContentTypePDF, LinkMode: record.LinkModeImportedFile, Filename: filename},
	}
}

func noteChild(key, parent string) record.Record {
	return record.Record{Key: key, Kind: record.KindNote, ItemType: "note", ParentKey: parent}
}

func keysOf(records []record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key
	}
	return out
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// applyPlan simulates the remote effect of a plan on a child index.
func applyPlan(children childMap, p Plan) {
	for _, c := range p.Reparent {
		for parent, list := range children {
			var kept []record.Record
			for _, x := range list {
				if x.Key != c.Key {
					kept = append(kept, x)
				}
			}
			children[parent] = kept
		}
		c.ParentKey = p.Keep.Key
		children[p.Keep.Key] = append(children[p.Keep.Key], c)
	}
	for _, d := range p.Delete {
		delete(children, d.Key)
	}
}

// Three records share a DOI; only the newest has children.
func TestPlanMerge_NewestChildrenMoveToOldest(t *testing.T) {
	t1 := article("T1", "10.1/x", 1)
	t2 := article("T2", "10.1/x", 2)
	t3 := article("T3", "10.1/x", 3)
	children := childMap{
		"T1": {noteChild("N1", "T1")},
		"T3": {pdfChild("P3", "T3", "paper.pdf"), noteChild("N3", "T3")},
	}

	groups := GroupByIdentifier([]record.Record{t3, t1, t2})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}

	plan, err := PlanMerge(context.Background(), groups[0], children, MergeOptions{})
	if err != nil {
		t.Fatalf("PlanMerge() error = %v", err)
	}

	if plan.Keep.Key != "T1" {
		t.Errorf("Keep = %s, want T1", plan.Keep.Key)
	}
	if got := keysOf(plan.Reparent); !equalKeys(got, []string{"P3", "N3"}) {
		t.Errorf("Reparent = %v, want [P3 N3]", got)
	}
	if got := keysOf(plan.Delete); !equalKeys(got, []string{"T2", "T3"}) {
		t.Errorf("Delete = %v, want [T2 T3]", got)
	}

	before := len(children["T1"])
	applyPlan(children, plan)
	if got := len(children["T1"]); got != before+2 {
		t.Errorf("kept record has %d children, want %d", got, before+2)
	}
}

func TestPlanMerge_OnlyNewestChildrenKept(t *testing.T) {
	older := article("OLD", "10.1/y", 1)
	newer := article("NEW", "10.1/y", 2)
	extra := article("EXTRA", "10.1/y", 0)
	children := childMap{
		"OLD": {pdfChild("PO", "OLD", "old.pdf")},
		"NEW": {pdfChild("PN", "NEW", "new.pdf")},
	}
	g := Group{Identifier: "10.1/y", Records: []record.Record{older, newer, extra}}

	plan, err := PlanMerge(context.Background(), g, children, MergeOptions{})
	if err != nil {
		t.Fatalf("PlanMerge() error = %v", err)
	}
	if plan.Keep.Key != "EXTRA" {
		t.Errorf("Keep = %s, want EXTRA", plan.Keep.Key)
	}
	if got := keysOf(plan.Reparent); !equalKeys(got, []string{"PN"}) {
		t.Errorf("Reparent = %v, want [PN] (older duplicate's children are discarded)", got)
	}
}

func TestPlanMerge_AllAttachmentsPolicy(t *testing.T) {
	g := Group{Identifier: "10.1/y", Records: []record.Record{
		article("K", "10.1/y", 0), article("OLD", "10.1/y", 1), article("NEW", "10.1/y", 2),
	}}
	children := childMap{
		"OLD": {pdfChild("PO", "OLD", "old.pdf")},
		"NEW": {pdfChild("PN", "NEW", "new.pdf")},
	}

	plan, err := PlanMerge(context.Background(), g, children, MergeOptions{Policy: AllAttachments})
	if err != nil {
		t.Fatalf("PlanMerge() error = %v", err)
	}
	if got := keysOf(plan.Reparent); !equalKeys(got, []string{"PN", "PO"}) {
		t.Errorf("Reparent = %v, want [PN PO]", got)
	}
}

func TestPlanMerge_NoChildrenOnlyDeletes(t *testing.T) {
	g := Group{Identifier: "10.1/z", Records: []record.Record{article("A", "10.1/z", 0), article("B", "10.1/z", 1)}}

	plan, err := PlanMerge(context.Background(), g, childMap{}, MergeOptions{})
	if err != nil {
		t.Fatalf("PlanMerge() error = %v", err)
	}
	if len(plan.Reparent) != 0 {
		t.Errorf("Reparent = %v, want none", keysOf(plan.Reparent))
	}
	if got := keysOf(plan.Delete); !equalKeys(got, []string{"B"}) {
		t.Errorf("Delete = %v, want [B]", got)
	}
}

func TestPlanMerge_ReplaceOwnAttachments(t *testing.T) {
	g := Group{Identifier: "10.1/z", Records: []record.Record{article("K", "10.1/z", 0), article("D", "10.1/z", 1)}}
	children := childMap{
		"K": {pdfChild("KP", "K", "mine.pdf")},
		"D": {pdfChild("DP", "D", "theirs.pdf")},
	}

	plan, err := PlanMerge(context.Background(), g, children, MergeOptions{ReplaceOwnAttachments: true})
	if err != nil {
		t.Fatalf("PlanMerge() error = %v", err)
	}
	if got := keysOf(plan.Delete); !equalKeys(got, []string{"KP", "D"}) {
		t.Errorf("Delete = %v, want [KP D]", got)
	}

	// Without a PDF among the moved children, the kept record's own
	// attachments stay.
	children["D"] = []record.Record{noteChild("DN", "D")}
	plan, err = PlanMerge(context.Background(), g, children, MergeOptions{ReplaceOwnAttachments: true})
	if err != nil {
		t.Fatalf("PlanMerge() error = %v", err)
	}
	if got := keysOf(plan.Delete); !equalKeys(got, []string{"D"}) {
		t.Errorf("Delete = %v, want [D]", got)
	}
}

func TestPlanMerge_Idempotent(t *testing.T) {
	t1 := article("T1", "10.1/x", 1)
	t2 := article("T2", "10.1/x", 2)
	children := childMap{"T2": {pdfChild("P2", "T2", "a.pdf")}}

	plan, err := PlanMerge(context.Background(), Group{Identifier: "10.1/x", Records: []record.Record{t1, t2}}, children, MergeOptions{})
	if err != nil {
		t.Fatalf("PlanMerge() error = %v", err)
	}
	applyPlan(children, plan)

	// The survivor alone is no longer a duplicate group.
	if groups := GroupByIdentifier([]record.Record{plan.Keep}); len(groups) != 0 {
		t.Fatalf("survivor still grouped: %+v", groups)
	}
	again, err := PlanMerge(context.Background(), Group{Identifier: "10.1/x", Records: []record.Record{plan.Keep}}, children, MergeOptions{})
	if err != nil {
		t.Fatalf("PlanMerge() error = %v", err)
	}
	if !again.Empty() {
		t.Errorf("second PlanMerge() = %+v, want empty", again)
	}
}

func TestPlan_IntentsReparentBeforeDelete(t *testing.T) {
	plan := Plan{
		Keep:     article("K", "10.1/x", 0),
		Reparent: []record.Record{pdfChild("C", "D", "a.pdf")},
		Delete:   []record.Record{article("D", "10.1/x", 1)},
	}

	intents := plan.Intents()
	if len(intents) != 2 {
		t.Fatalf("Intents() len = %d, want 2", len(intents))
	}
	if intents[0].Op != intent.OpReparent || intents[0].NewParent != "K" {
		t.Errorf("intents[0] = %v, want reparent to K", intents[0])
	}
	if intents[1].Op != intent.OpDelete || intents[1].Key != "D" {
		t.Errorf("intents[1] = %v, want delete D", intents[1])
	}
}

func TestPlanMerge_ListerError(t *testing.T) {
	g := Group{Identifier: "10.1/x", Records: []record.Record{article("A", "10.1/x", 0), article("B", "10.1/x", 1)}}
	if _, err := PlanMerge(context.Background(), g, failingLister{}, MergeOptions{}); err == nil {
		t.Error("PlanMerge() expected error")
	}
}

func TestParseAttachmentPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    AttachmentPolicy
		wantErr bool
	}{
		{"", NewestAttachments, false},
		{"newest", NewestAttachments, false},
		{"all", AllAttachments, false},
		{"oldest", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAttachmentPolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAttachmentPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAttachmentPolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlanMerges_DropsEmpty(t *testing.T) {
	groups := []Group{
		{Identifier: "solo", Records: []record.Record{article("S", "solo", 0)}},
		{Identifier: "pair", Records: []record.Record{article("A", "pair", 0), article("B", "pair", 1)}},
	}
	plans, err := PlanMerges(context.Background(), groups, childMap{}, MergeOptions{})
	if err != nil {
		t.Fatalf("PlanMerges() error = %v", err)
	}
	if len(plans) != 1 || plans[0].Identifier != "pair" {
		t.Errorf("PlanMerges() = %+v, want only the pair", plans)
	}
}
