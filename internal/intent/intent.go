// Package intent models remote mutations as an ordered list of intents and
// applies them in a single loop.
package intent

import (
	"fmt"

	"github.com/chraibi/ZoteroTidy/internal/record"
)

// Op is the kind of remote mutation an intent performs.
type Op int

const (
	OpReparent  Op = iota // rewrite a child's parent reference
	OpTag                 // add tags to a record
	OpDelete              // delete a record (and, remotely, its children)
	OpRemoveTag           // remove a tag from every record in the library
)

func (o Op) String() string {
	switch o {
	case OpReparent:
		return "reparent"
	case OpTag:
		return "tag"
	case OpDelete:
		return "delete"
	case OpRemoveTag:
		return "remove_tag"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// MarshalText encodes the op by name.
func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// phase orders ops so that updates land before deletes, and library-wide tag
// cleanup runs last.
func (o Op) phase() int {
	switch o {
	case OpReparent, OpTag:
		return 0
	case OpDelete:
		return 1
	default:
		return 2
	}
}

// Intent is one planned remote mutation.
type Intent struct {
	Op     Op            `json:"op" yaml:"op"`
	Record record.Record `json:"-" yaml:"-"`
	Key    string        `json:"key,omitempty" yaml:"key,omitempty"`
	Title  string        `json:"title,omitempty" yaml:"title,omitempty"`

	NewParent string   `json:"new_parent,omitempty" yaml:"new_parent,omitempty"` // OpReparent
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty"`             // OpTag
	Tag       string   `json:"tag,omitempty" yaml:"tag,omitempty"`               // OpRemoveTag
}

// Reparent moves child under parentKey.
func Reparent(child record.Record, parentKey string) Intent {
	return Intent{Op: OpReparent, Record: child, Key: child.Key, Title: record.DisplayTitle(child), NewParent: parentKey}
}

// Delete removes r from the library.
func Delete(r record.Record) Intent {
	return Intent{Op: OpDelete, Record: r, Key: r.Key, Title: record.DisplayTitle(r)}
}

// Tag adds tags to r.
func Tag(r record.Record, tags ...string) Intent {
	return Intent{Op: OpTag, Record: r, Key: r.Key, Title: record.DisplayTitle(r), Tags: tags}
}

// RemoveTag removes tag from every record in the library.
func RemoveTag(tag string) Intent {
	return Intent{Op: OpRemoveTag, Tag: tag}
}

func (i Intent) String() string {
	switch i.Op {
	case OpReparent:
		return fmt.Sprintf("reparent %s -> %s", i.Key, i.NewParent)
	case OpTag:
		return fmt.Sprintf("tag %s %v", i.Key, i.Tags)
	case OpDelete:
		return fmt.Sprintf("delete %s", i.Key)
	case OpRemoveTag:
		return fmt.Sprintf("remove tag %q", i.Tag)
	default:
		return i.Op.String()
	}
}

// Ordered returns a copy of intents with updates first, deletes second and
// library-wide tag removals last. Relative order within a phase is kept.
func Ordered(intents []Intent) []Intent {
	out := make([]Intent, 0, len(intents))
	for phase := 0; phase <= 2; phase++ {
		for _, in := range intents {
			if in.Op.phase() == phase {
				out = append(out, in)
			}
		}
	}
	return out
}
