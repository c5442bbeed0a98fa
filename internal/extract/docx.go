package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ExtractDOCX returns the paragraph text of a .docx file.
func ExtractDOCX(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml in %s: %w", path, err)
		}
		text, err := documentText(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("parse document.xml in %s: %w", path, err)
		}
		return text, nil
	}

	return "", fmt.Errorf("%s has no word/document.xml", path)
}

// documentText walks the WordprocessingML token stream collecting run text
// (<w:t>) and joining paragraphs (<w:p>) with newlines.
func documentText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		doc       strings.Builder
		paragraph strings.Builder
		inText    bool
	)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(paragraph.String()); line != "" {
					doc.WriteString(line)
					doc.WriteByte('\n')
				}
				paragraph.Reset()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}

	return strings.TrimRight(doc.String(), "\n"), nil
}
