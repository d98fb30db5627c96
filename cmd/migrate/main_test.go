package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/finance-health/internal/bqexport"
)

func TestSourceDefaultsToEmbedded(t *testing.T) {
	migs, err := bqexport.ParseMigrations(source(""), "p", "d")
	if err != nil {
		t.Fatalf("ParseMigrations: %v", err)
	}
	if len(migs) == 0 {
		t.Fatal("expected embedded migrations")
	}
}

func TestSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0007_extra.sql"), []byte("SELECT 1"), 0o600); err != nil {
		t.Fatal(err)
	}

	migs, err := bqexport.ParseMigrations(source(dir), "p", "d")
	if err != nil {
		t.Fatalf("ParseMigrations: %v", err)
	}
	if len(migs) != 1 || migs[0].Version != 7 || migs[0].Name != "extra" {
		t.Fatalf("unexpected migrations: %+v", migs)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"", "b"}, "b"},
		{[]string{"a", "b"}, "a"},
		{[]string{"", ""}, ""},
	}
	for _, tt := range tests {
		if got := firstNonEmpty(tt.in...); got != tt.want {
			t.Errorf("firstNonEmpty(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
