// Package checkpoint persists processing progress as JSON files so repeated
// runs never re-process completed work.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/ports"
)

const (
	filteredFile = "filtered.json"
	stage1File   = "stage1_success.json"
	stage2File   = "stage2_success.json"
)

// SeenEntry is the minimal metadata kept for every announcement ever seen.
type SeenEntry struct {
	Name string `json:"name"`
}

// Store keeps the three checkpoint sets in memory and rewrites the backing
// file after each transition. The filtered set only ever grows; an id in
// stage2 is guaranteed to be present in stage1 and filtered as well.
type Store struct {
	dir    string
	logger *slog.Logger

	filtered map[string]SeenEntry
	stage1   map[string]bool
	stage2   map[string]domain.Announcement
}

var _ ports.CheckpointStore = (*Store)(nil)

// Load reads the checkpoint files from dir, creating the directory when
// missing. Absent files start as empty sets.
func Load(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}

	s := &Store{
		dir:      dir,
		logger:   logger,
		filtered: map[string]SeenEntry{},
		stage1:   map[string]bool{},
		stage2:   map[string]domain.Announcement{},
	}

	if err := s.read(filteredFile, &s.filtered); err != nil {
		return nil, err
	}
	if err := s.read(stage1File, &s.stage1); err != nil {
		return nil, err
	}
	if err := s.read(stage2File, &s.stage2); err != nil {
		return nil, err
	}

	logger.Info("checkpoints loaded",
		"seen", len(s.filtered),
		"stage1", len(s.stage1),
		"stage2", len(s.stage2))
	return s, nil
}

// Seen reports whether the announcement was already processed in any run.
func (s *Store) Seen(id string) bool {
	_, ok := s.filtered[id]
	return ok
}

// MarkSeen records the announcement into the filtered set.
func (s *Store) MarkSeen(id string, a domain.Announcement) error {
	s.filtered[id] = SeenEntry{Name: a.Name}
	return s.write(filteredFile, s.filtered)
}

// Stage1Passed reports whether the quick filter already accepted the id.
func (s *Store) Stage1Passed(id string) bool {
	return s.stage1[id]
}

// MarkStage1 records a quick-filter acceptance.
func (s *Store) MarkStage1(id string) error {
	s.stage1[id] = true
	return s.write(stage1File, s.stage1)
}

// Stage2Passed reports whether deep evaluation already accepted the id.
func (s *Store) Stage2Passed(id string) bool {
	_, ok := s.stage2[id]
	return ok
}

// MarkStage2 records a deep-evaluation acceptance with the enriched
// announcement. The stage1 and filtered sets are backfilled when needed so
// the containment invariant holds even for hand-edited files.
func (s *Store) MarkStage2(id string, a domain.Announcement) error {
	if _, ok := s.filtered[id]; !ok {
		if err := s.MarkSeen(id, a); err != nil {
			return err
		}
	}
	if !s.stage1[id] {
		if err := s.MarkStage1(id); err != nil {
			return err
		}
	}

	s.stage2[id] = a
	return s.write(stage2File, s.stage2)
}

func (s *Store) read(name string, v any) error {
	path := filepath.Join(s.dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("checkpoint file absent, starting empty", "file", name)
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// write rewrites the whole file through a temp-and-rename so an interrupted
// process never leaves a half-written checkpoint behind.
func (s *Store) write(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
