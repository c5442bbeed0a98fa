package usecase

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSweepRemovesExpiredFilesAndEmptyFolders(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	oldFolder := filepath.Join(dataDir, "100-1")
	freshFolder := filepath.Join(dataDir, "200-1")
	for _, dir := range []string{oldFolder, freshFolder} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	oldFile := filepath.Join(oldFolder, "ts.pdf")
	if err := os.WriteFile(oldFile, []byte("устаревший"), 0o644); err != nil {
		t.Fatalf("write old file: %v", err)
	}
	stale := time.Now().Add(-100 * 24 * time.Hour)
	if err := os.Chtimes(oldFile, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	freshFile := filepath.Join(freshFolder, "ts.pdf")
	if err := os.WriteFile(freshFile, []byte("свежий"), 0o644); err != nil {
		t.Fatalf("write fresh file: %v", err)
	}

	cleaner := NewCleaner(dataDir, 90*24*time.Hour, nil)
	stats, err := cleaner.Sweep(time.Now())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}

	if stats.RemovedFiles != 1 || stats.RemovedDirs != 1 || stats.Errors != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if _, err := os.Stat(oldFolder); !os.IsNotExist(err) {
		t.Fatal("expired folder must be pruned")
	}
	if _, err := os.Stat(freshFile); err != nil {
		t.Fatalf("fresh file must survive: %v", err)
	}
}

func TestSweepKeepsRootStateFiles(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	folder := filepath.Join(dataDir, "100-1")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	stale := time.Now().Add(-100 * 24 * time.Hour)
	stateFile := filepath.Join(dataDir, "filtered.json")
	document := filepath.Join(folder, "ts.pdf")
	for _, path := range []string{stateFile, document} {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}

	cleaner := NewCleaner(dataDir, 90*24*time.Hour, nil)
	stats, err := cleaner.Sweep(time.Now())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}

	if stats.RemovedFiles != 1 {
		t.Fatalf("expected only the document removed, got %+v", stats)
	}
	// The progress sets share the data directory with the documents; age
	// never makes them collectable.
	if _, err := os.Stat(stateFile); err != nil {
		t.Fatalf("root state file must survive the sweep: %v", err)
	}
	if _, err := os.Stat(document); !os.IsNotExist(err) {
		t.Fatal("expired document must be removed")
	}
}

func TestSweepMissingDirectoryIsNoOp(t *testing.T) {
	t.Parallel()

	cleaner := NewCleaner(filepath.Join(t.TempDir(), "absent"), time.Hour, nil)
	stats, err := cleaner.Sweep(time.Now())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if stats.RemovedFiles != 0 || stats.RemovedDirs != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tc := range cases {
		if got := FormatSize(tc.n); got != tc.want {
			t.Fatalf("FormatSize(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}
