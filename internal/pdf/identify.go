// Package pdf extracts identifying metadata from PDF attachments.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// MaxSize caps how much of a download is read into memory.
const MaxSize = 64 << 20

// DefaultPages is how many leading pages are searched.
const DefaultPages = 3

// ErrNotPDF is returned when the content is not a PDF document.
var ErrNotPDF = errors.New("content is not a PDF")

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Identification is what could be read from a document.
type Identification struct {
	MIME  string `json:"mime"`
	Pages int    `json:"pages"`
	DOI   string `json:"doi,omitempty"`
	Title string `json:"title,omitempty"`
	Bytes int64  `json:"bytes"`
}

// Identify reads a document, checks that it is a PDF and searches its first
// maxPages pages for a DOI and a title line. maxPages <= 0 means DefaultPages.
// A document without a DOI is not an error.
func Identify(r io.Reader, maxPages int) (Identification, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return Identification{}, fmt.Errorf("reading document: %w", err)
	}
	if len(data) > MaxSize {
		return Identification{}, fmt.Errorf("document larger than %d bytes", MaxSize)
	}

	mt := mimetype.Detect(data)
	id := Identification{MIME: mt.String(), Bytes: int64(len(data))}
	if !mt.Is("application/pdf") {
		return id, fmt.Errorf("%w: detected %s", ErrNotPDF, mt.String())
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return id, fmt.Errorf("parsing pdf: %w", err)
	}
	id.Pages = reader.NumPage()

	if maxPages <= 0 {
		maxPages = DefaultPages
	}
	if maxPages > id.Pages {
		maxPages = id.Pages
	}

	for i := 1; i <= maxPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i == 1 {
			id.Title = titleLine(text)
		}
		if doi := findDOI(text); doi != "" {
			id.DOI = doi
			break
		}
	}
	return id, nil
}

// findDOI finds a DOI in text.
func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	return slashIdx != -1 && slashIdx < len(doi)-1
}

// titleLine returns the first substantial line of a page, a best-effort
// guess at the title.
func titleLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

// isHeaderLine checks if a line is likely a running header or footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "copyright"):
		return true
	case strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	}
	return false
}
