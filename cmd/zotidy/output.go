package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Machine output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// ListTitleMaxLen bounds titles in human list output.
const ListTitleMaxLen = 70

// stdout is where command results go. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	warnMark = color.New(color.FgYellow).Sprint("!")
)

// outputResult writes v in the selected machine format.
func outputResult(v any) error {
	if outputFormat == formatYAML {
		return outputYAML(v)
	}
	return outputJSON(v)
}

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputYAML writes a value as YAML to stdout.
func outputYAML(v any) error {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...any) {
	fmt.Fprintf(stdout, format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "%s error: %s\n", failMark, msg)
	} else {
		outputResult(ErrorResponse{Error: msg, Code: code})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error" yaml:"error"`
	Code  int    `json:"code" yaml:"code"`
}

// mark returns the check or cross used in human output.
func mark(ok bool) string {
	if ok {
		return okMark
	}
	return failMark
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

// formatAgo renders t relative to now, or "never" for the zero time.
func formatAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
