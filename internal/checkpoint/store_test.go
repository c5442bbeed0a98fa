package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/d1freeez14/neuro-tender/internal/domain"
)

func TestLoadEmptyDirectory(t *testing.T) {
	t.Parallel()

	store, err := Load(filepath.Join(t.TempDir(), "cnt"), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if store.Seen("100-1") || store.Stage1Passed("100-1") || store.Stage2Passed("100-1") {
		t.Fatal("empty store must report nothing as processed")
	}
}

func TestMarksSurviveReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	a := domain.Announcement{ID: "100-1", Name: "Сопровождение СЭД"}
	if err := store.MarkSeen("100-1", a); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := store.MarkStage1("100-1"); err != nil {
		t.Fatalf("MarkStage1: %v", err)
	}
	a.Summary = "Резюме"
	if err := store.MarkStage2("100-1", a); err != nil {
		t.Fatalf("MarkStage2: %v", err)
	}

	reloaded, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Seen("100-1") || !reloaded.Stage1Passed("100-1") || !reloaded.Stage2Passed("100-1") {
		t.Fatal("marks lost on reload")
	}
}

func TestMarkStage2BackfillsEarlierStages(t *testing.T) {
	t.Parallel()

	store, err := Load(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if err := store.MarkStage2("200-1", domain.Announcement{ID: "200-1", Name: "Тендер"}); err != nil {
		t.Fatalf("MarkStage2: %v", err)
	}
	if !store.Seen("200-1") {
		t.Fatal("stage2 id must be present in the filtered set")
	}
	if !store.Stage1Passed("200-1") {
		t.Fatal("stage2 id must be present in the stage1 set")
	}
}

func TestCheckpointFileFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := store.MarkSeen("300-1", domain.Announcement{ID: "300-1", Name: "Объявление"}); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "filtered.json"))
	if err != nil {
		t.Fatalf("read filtered.json: %v", err)
	}
	var decoded map[string]struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("parse filtered.json: %v", err)
	}
	if decoded["300-1"].Name != "Объявление" {
		t.Fatalf("unexpected content: %v", decoded)
	}
	if _, err := os.Stat(filepath.Join(dir, "filtered.json.tmp")); !os.IsNotExist(err) {
		t.Fatal("temp file must not survive a successful write")
	}
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	t.Parallel()

	store, err := Load(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	a := domain.Announcement{ID: "400-1", Name: "Первое имя"}
	if err := store.MarkSeen("400-1", a); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	a.Name = "Второе имя"
	if err := store.MarkSeen("400-1", a); err != nil {
		t.Fatalf("repeat MarkSeen: %v", err)
	}
	if !store.Seen("400-1") {
		t.Fatal("id must stay seen")
	}
}
