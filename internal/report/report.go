// Package report holds the result type shared by every library check.
package report

import "encoding/json"

// Report is the outcome of one check. The zero value means the check has
// not run, which is distinct from a computed report with no findings.
type Report[T any] struct {
	Computed bool
	Items    []T
}

// Of returns a computed report over items.
func Of[T any](items []T) Report[T] {
	return Report[T]{Computed: true, Items: items}
}

// Len returns the number of findings.
func (r Report[T]) Len() int {
	return len(r.Items)
}

// Empty reports whether the check ran and found nothing.
func (r Report[T]) Empty() bool {
	return r.Computed && len(r.Items) == 0
}

// Head returns a report over at most the first n findings. n <= 0 keeps all.
func (r Report[T]) Head(n int) Report[T] {
	if n <= 0 || n >= len(r.Items) {
		return r
	}
	return Report[T]{Computed: r.Computed, Items: r.Items[:n]}
}

type wire[T any] struct {
	Computed bool `json:"computed"`
	Count    int  `json:"count"`
	Items    []T  `json:"items"`
}

// MarshalJSON renders a not-computed report as {"computed":false} and a
// computed one with its count and findings.
func (r Report[T]) MarshalJSON() ([]byte, error) {
	if !r.Computed {
		return []byte(`{"computed":false}`), nil
	}
	items := r.Items
	if items == nil {
		items = []T{}
	}
	return json.Marshal(wire[T]{Computed: true, Count: len(items), Items: items})
}

// MarshalYAML mirrors MarshalJSON for the yaml encoder.
func (r Report[T]) MarshalYAML() (any, error) {
	if !r.Computed {
		return map[string]bool{"computed": false}, nil
	}
	items := r.Items
	if items == nil {
		items = []T{}
	}
	return wire[T]{Computed: true, Count: len(items), Items: items}, nil
}
