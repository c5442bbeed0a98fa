package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FirstDocument returns the name and content of the first file in the
// announcement folder, in lexical order. It backs the intake upload, which
// attaches a single specification document.
func FirstDocument(dataDir, rawID string) (string, []byte, error) {
	folder := filepath.Join(dataDir, rawID)
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", nil, fmt.Errorf("read folder %s: %w", folder, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", nil, fmt.Errorf("no documents in %s", folder)
	}
	sort.Strings(names)

	content, err := os.ReadFile(filepath.Join(folder, names[0]))
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", names[0], err)
	}
	return names[0], content, nil
}
