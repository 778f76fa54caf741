package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARN", zerolog.WarnLevel, false},
		{" error ", zerolog.ErrorLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l.Close()

	l.Info().Msg("hidden")
	l.Warn().Str("key", "ABC").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, `"key":"ABC"`) {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zotidy.log")
	l, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info().Msg("to file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q", data)
	}
}
