package pdf

import (
	"errors"
	"strings"
	"testing"
)

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "see doi:10.1016/j.physa.2019.123 for details", "10.1016/j.physa.2019.123"},
		{"trailing punctuation", "https://doi.org/10.1103/PhysRevE.51.4282.", "10.1103/PhysRevE.51.4282"},
		{"in parentheses", "(10.1038/nature12373)", "10.1038/nature12373"},
		{"first of several", "10.1000/abc123 and 10.2000/def456", "10.1000/abc123"},
		{"too few registrant digits", "10.12/abc", ""},
		{"none", "no identifier here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findDOI(tt.text); got != tt.want {
				t.Errorf("findDOI(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTitleLine(t *testing.T) {
	text := "Journal of Crowd Science\nshort\nPedestrian dynamics in narrow bottlenecks\nAuthors"
	if got := titleLine(text); got != "Pedestrian dynamics in narrow bottlenecks" {
		t.Errorf("titleLine() = %q", got)
	}
}

func TestIdentify_RejectsNonPDF(t *testing.T) {
	id, err := Identify(strings.NewReader("<html><body>login required</body></html>"), 0)
	if !errors.Is(err, ErrNotPDF) {
		t.Fatalf("Identify() error = %v, want ErrNotPDF", err)
	}
	if !strings.HasPrefix(id.MIME, "text/html") {
		t.Errorf("MIME = %q, want text/html", id.MIME)
	}
}
