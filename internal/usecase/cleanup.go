package usecase

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/d1freeez14/neuro-tender/internal/domain"
)

// Cleaner removes downloaded documents past retention so the data directory
// does not grow without bound.
type Cleaner struct {
	dataDir string
	maxAge  time.Duration
	logger  *slog.Logger
}

// NewCleaner sets the sweep root and retention window.
func NewCleaner(dataDir string, maxAge time.Duration, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{dataDir: dataDir, maxAge: maxAge, logger: logger}
}

// Sweep deletes files older than the retention window and prunes folders
// left empty. A missing data directory is a no-op.
func (c *Cleaner) Sweep(now time.Time) (domain.RemovalStats, error) {
	var stats domain.RemovalStats

	cutoff := now.Add(-c.maxAge)
	root := filepath.Clean(c.dataDir)
	before, err := DirectorySize(root)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("measure %s: %w", root, err)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			stats.Errors++
			c.logger.Warn("sweep walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		// Downloaded documents live in per-announcement subfolders; files at
		// the data root are processing state and stay regardless of age.
		if filepath.Dir(path) == root {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			stats.Errors++
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			stats.Errors++
			c.logger.Warn("remove failed", "path", path, "error", err)
			return nil
		}
		stats.RemovedFiles++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("sweep %s: %w", root, err)
	}

	pruned, errs := pruneEmptyDirs(root)
	stats.RemovedDirs = pruned
	stats.Errors += errs

	after, err := DirectorySize(root)
	if err != nil {
		after = 0
	}
	c.logger.Info("retention sweep finished",
		"removed_files", stats.RemovedFiles,
		"removed_dirs", stats.RemovedDirs,
		"errors", stats.Errors,
		"freed", FormatSize(before-after))
	return stats, nil
}

// pruneEmptyDirs removes empty subdirectories bottom-up, keeping the root.
func pruneEmptyDirs(root string) (removed, errs int) {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})

	// Deepest first so a chain of empty folders collapses in one pass.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			errs++
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			errs++
			continue
		}
		removed++
	}
	return removed, errs
}

// DirectorySize sums the sizes of all regular files under root.
func DirectorySize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// FormatSize renders a byte count in human units.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
