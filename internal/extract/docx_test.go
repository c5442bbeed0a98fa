package extract

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeDocx(t *testing.T, documentXML string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "spec.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	w := zip.NewWriter(f)
	entry, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := entry.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestExtractDOCX(t *testing.T) {
	t.Parallel()

	path := writeDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Техническая спецификация</w:t></w:r></w:p>
    <w:p><w:r><w:t>Система </w:t></w:r><w:r><w:t>электронного документооборота</w:t></w:r></w:p>
    <w:p></w:p>
  </w:body>
</w:document>`)

	text, err := ExtractDOCX(path)
	if err != nil {
		t.Fatalf("ExtractDOCX returned error: %v", err)
	}
	want := "Техническая спецификация\nСистема электронного документооборота"
	if text != want {
		t.Fatalf("unexpected text:\n%q\nwant:\n%q", text, want)
	}
}

func TestExtractDOCXWithoutDocumentXML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	w := zip.NewWriter(f)
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	if _, err := ExtractDOCX(path); err == nil {
		t.Fatal("expected error for archive without word/document.xml")
	}
}

func TestExtractDOCXRejectsNonArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain.docx")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := ExtractDOCX(path); err == nil {
		t.Fatal("expected error for a non-zip file")
	}
}
