package extract

import "strings"

// QualityCheck reports whether extracted text should be treated as garbage
// and re-extracted through OCR.
type QualityCheck func(text string) bool

const kazakhLetters = "ёЁіІңҢғҒүҮұҰқҚөӨһҺ"

// CyrillicRatioCheck flags text whose share of Cyrillic characters,
// including Kazakh-specific letters, falls below threshold. The documents
// this pipeline handles are Russian or Kazakh; a low ratio means the PDF
// text layer is broken or missing.
func CyrillicRatioCheck(threshold float64) QualityCheck {
	return func(text string) bool {
		if strings.TrimSpace(text) == "" {
			return true
		}

		var cyrillic, total int
		for _, r := range text {
			total++
			if ('А' <= r && r <= 'я') || strings.ContainsRune(kazakhLetters, r) {
				cyrillic++
			}
		}
		if total == 0 {
			return true
		}
		return float64(cyrillic)/float64(total) < threshold
	}
}
