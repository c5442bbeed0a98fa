// Package extract converts acquired office documents and PDFs to plain
// text, falling back to the remote OCR service when the native PDF text
// layer fails the quality check.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/d1freeez14/neuro-tender/internal/ports"
)

// Extractor reads the per-announcement document folder and produces one
// combined plain-text blob for evaluation.
type Extractor struct {
	dataDir    string
	ocr        ports.OCRClient
	garbage    QualityCheck
	extensions map[string]bool
	logger     *slog.Logger
}

var _ ports.TextExtractor = (*Extractor)(nil)

// NewExtractor wires the document folder root with the OCR fallback; ocr may
// be nil, in which case garbage text stays as-is.
func NewExtractor(dataDir string, ocr ports.OCRClient, garbage QualityCheck, extensions []string, logger *slog.Logger) *Extractor {
	if garbage == nil {
		garbage = CyrillicRatioCheck(0.4)
	}
	if logger == nil {
		logger = slog.Default()
	}
	supported := map[string]bool{}
	for _, ext := range extensions {
		supported[strings.ToLower(ext)] = true
	}
	if len(supported) == 0 {
		supported[".docx"] = true
		supported[".pdf"] = true
	}
	return &Extractor{
		dataDir:    dataDir,
		ocr:        ocr,
		garbage:    garbage,
		extensions: supported,
		logger:     logger,
	}
}

// Text combines the text of every supported document of the announcement.
// A missing folder or an empty result is a normal negative outcome reported
// as an empty string, not an error.
func (e *Extractor) Text(ctx context.Context, rawID string) (string, error) {
	folder := filepath.Join(e.dataDir, rawID)
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			e.logger.Warn("document folder absent", "id", rawID)
			return "", nil
		}
		return "", fmt.Errorf("read folder %s: %w", folder, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if e.extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var blocks []string
	for _, name := range names {
		path := filepath.Join(folder, name)

		var text string
		switch strings.ToLower(filepath.Ext(name)) {
		case ".docx":
			text, err = ExtractDOCX(path)
			if err != nil {
				e.logger.Error("docx extraction failed", "id", rawID, "file", name, "error", err)
				continue
			}
		case ".pdf":
			text = e.pdfText(ctx, rawID, path)
		}

		if text == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("=== Файл: %s ===\n%s", name, text))
		e.logger.Info("document extracted", "id", rawID, "file", name, "chars", len(text))
	}

	if len(blocks) == 0 {
		e.logger.Warn("no readable documents", "id", rawID)
		return "", nil
	}
	return strings.Join(blocks, "\n\n"), nil
}

// pdfText extracts the native text layer; when the combined result fails the
// quality check the whole file is sent to the OCR service instead.
func (e *Extractor) pdfText(ctx context.Context, rawID, path string) string {
	pages, err := ExtractPDFPages(path)
	if err != nil {
		e.logger.Error("pdf extraction failed", "id", rawID, "file", filepath.Base(path), "error", err)
		pages = nil
	}

	var native []string
	for i, page := range pages {
		if page == "" {
			continue
		}
		native = append(native, fmt.Sprintf("--- Страница %d (PDF text) ---\n%s", i+1, page))
	}
	combined := strings.Join(native, "\n")

	if !e.garbage(combined) {
		return combined
	}
	if e.ocr == nil {
		e.logger.Warn("pdf text looks unreadable, no OCR configured", "id", rawID, "file", filepath.Base(path))
		return combined
	}

	content, err := os.ReadFile(path)
	if err != nil {
		e.logger.Error("read pdf for OCR failed", "id", rawID, "file", filepath.Base(path), "error", err)
		return combined
	}

	recognized, err := e.ocr.Recognize(ctx, filepath.Base(path), content)
	if err != nil {
		e.logger.Error("OCR failed", "id", rawID, "file", filepath.Base(path), "error", err)
		return combined
	}
	if strings.TrimSpace(recognized) == "" {
		return combined
	}

	e.logger.Info("pdf recognized via OCR", "id", rawID, "file", filepath.Base(path), "chars", len(recognized))
	return "--- OCR ---\n" + strings.TrimSpace(recognized)
}
