package dedupe

import (
	"context"
	"fmt"

	"github.com/chraibi/ZoteroTidy/internal/intent"
	"github.com/chraibi/ZoteroTidy/internal/record"
)

// ChildLister returns the immediate children of a record.
type ChildLister interface {
	Children(ctx context.Context, key string) ([]record.Record, error)
}

// AttachmentPolicy decides whose children survive a merge.
type AttachmentPolicy int

const (
	// NewestAttachments moves only the children of the most recently added
	// duplicate that has any. Older duplicates' children are deleted with
	// their parents.
	NewestAttachments AttachmentPolicy = iota
	// AllAttachments moves the children of every duplicate.
	AllAttachments
)

// ParseAttachmentPolicy parses "newest" or "all".
func ParseAttachmentPolicy(s string) (AttachmentPolicy, error) {
	switch s {
	case "", "newest":
		return NewestAttachments, nil
	case "all":
		return AllAttachments, nil
	default:
		return 0, fmt.Errorf("invalid attachment policy %q (valid: newest, all)", s)
	}
}

func (p AttachmentPolicy) String() string {
	if p == AllAttachments {
		return "all"
	}
	return "newest"
}

// MergeOptions tunes PlanMerge.
type MergeOptions struct {
	Policy AttachmentPolicy
	// ReplaceOwnAttachments deletes the kept record's own children when the
	// moved children include a PDF.
	ReplaceOwnAttachments bool
}

// Plan is the outcome of planning one duplicate group.
type Plan struct {
	Identifier string          `json:"identifier"`
	Keep       record.Record   `json:"-"`
	Reparent   []record.Record `json:"-"`
	Delete     []record.Record `json:"-"`
}

// Empty reports whether the plan has nothing to do.
func (p Plan) Empty() bool {
	return len(p.Reparent) == 0 && len(p.Delete) == 0
}

// Intents returns the plan as ordered intents: every reparent before any
// delete, so a moved child never points at a key about to be destroyed.
func (p Plan) Intents() []intent.Intent {
	out := make([]intent.Intent, 0, len(p.Reparent)+len(p.Delete))
	for _, c := range p.Reparent {
		out = append(out, intent.Reparent(c, p.Keep.Key))
	}
	for _, r := range p.Delete {
		out = append(out, intent.Delete(r))
	}
	return out
}

// PlanMerge decides which record of a duplicate group survives and what
// happens to the children of the others. The oldest record is kept; every
// other member is deleted. With NewestAttachments, duplicates are scanned
// newest first and the first non-empty child list is moved to the kept
// record. A group with fewer than two records yields an empty plan.
func PlanMerge(ctx context.Context, g Group, lister ChildLister, opts MergeOptions) (Plan, error) {
	plan := Plan{Identifier: g.Identifier}
	if len(g.Records) == 0 {
		return plan, nil
	}

	members := make([]record.Record, len(g.Records))
	copy(members, g.Records)
	sortOldestFirst(members)

	plan.Keep = members[0]
	if len(members) < 2 {
		return plan, nil
	}

	movedPDF := false
	for i := len(members) - 1; i >= 1; i-- {
		children, err := lister.Children(ctx, members[i].Key)
		if err != nil {
			return Plan{}, fmt.Errorf("listing children of %s: %w", members[i].Key, err)
		}
		if len(children) == 0 {
			continue
		}
		for _, c := range children {
			if record.AttachmentIsPDF(c) {
				movedPDF = true
			}
		}
		plan.Reparent = append(plan.Reparent, children...)
		if opts.Policy == NewestAttachments {
			break
		}
	}

	if opts.ReplaceOwnAttachments && movedPDF {
		own, err := lister.Children(ctx, plan.Keep.Key)
		if err != nil {
			return Plan{}, fmt.Errorf("listing children of %s: %w", plan.Keep.Key, err)
		}
		plan.Delete = append(plan.Delete, own...)
	}

	plan.Delete = append(plan.Delete, members[1:]...)
	return plan, nil
}

// PlanMerges plans every group and drops empty plans.
func PlanMerges(ctx context.Context, groups []Group, lister ChildLister, opts MergeOptions) ([]Plan, error) {
	var plans []Plan
	for _, g := range groups {
		p, err := PlanMerge(ctx, g, lister, opts)
		if err != nil {
			return nil, err
		}
		if !p.Empty() {
			plans = append(plans, p)
		}
	}
	return plans, nil
}
