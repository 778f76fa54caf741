package guard

import (
	"context"
	"errors"
	"testing"
)

type fixedVersion struct {
	version int64
	err     error
}

func (f fixedVersion) CurrentVersion(context.Context) (int64, error) {
	return f.version, f.err
}

func TestIsCurrent(t *testing.T) {
	tests := []struct {
		name     string
		captured int64
		remote   int64
		want     bool
	}{
		{"same version", 42, 42, true},
		{"remote advanced", 42, 43, false},
		// Equality, not >=: a remote that went backwards is also not current.
		{"remote behind", 42, 41, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.captured, fixedVersion{version: tt.remote})
			got, err := g.IsCurrent(context.Background())
			if err != nil {
				t.Fatalf("IsCurrent() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsCurrent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheck_Stale(t *testing.T) {
	g := New(42, fixedVersion{version: 43})

	err := g.Check(context.Background())
	if !errors.Is(err, ErrStale) {
		t.Fatalf("Check() error = %v, want ErrStale", err)
	}

	var stale *StaleError
	if !errors.As(err, &stale) {
		t.Fatalf("Check() error is not a *StaleError: %T", err)
	}
	if stale.Captured != 42 || stale.Current != 43 {
		t.Errorf("StaleError = %+v, want captured 42 current 43", stale)
	}
}

func TestCheck_Current(t *testing.T) {
	g := New(7, fixedVersion{version: 7})
	if err := g.Check(context.Background()); err != nil {
		t.Errorf("Check() error = %v, want nil", err)
	}
}

func TestCheck_SourceError(t *testing.T) {
	boom := errors.New("network down")
	g := New(7, fixedVersion{err: boom})

	err := g.Check(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Check() error = %v, want wrapped %v", err, boom)
	}
	if errors.Is(err, ErrStale) {
		t.Error("a failed version query must not look like staleness")
	}
}
