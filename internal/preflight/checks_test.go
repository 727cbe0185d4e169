package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	"mnemo/internal/preflight"
	"mnemo/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := preflight.CheckDirectoryAccess("Data directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for %s: %s", dir, result.Detail)
	}

	missing := preflight.CheckDirectoryAccess("Data directory", filepath.Join(dir, "nope"))
	if missing.Passed {
		t.Fatal("expected failure for a missing directory")
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	notDir := preflight.CheckDirectoryAccess("Data directory", file)
	if notDir.Passed {
		t.Fatal("expected failure for a regular file")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()

	ok := preflight.CheckFreeSpace("Data volume", dir, 1)
	if !ok.Passed {
		t.Fatalf("expected pass for a 1-byte floor: %s", ok.Detail)
	}

	absurd := preflight.CheckFreeSpace("Data volume", dir, 1<<62)
	if absurd.Passed {
		t.Fatal("expected failure for an impossible floor")
	}
}

func TestRunAllCoversConfiguredPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	results := preflight.RunAll(cfg)
	if len(results) == 0 {
		t.Fatal("expected at least one check")
	}
	if !preflight.AllPassed(results) {
		t.Fatalf("expected all checks to pass: %#v", results)
	}
}
