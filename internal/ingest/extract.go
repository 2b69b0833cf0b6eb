package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor pulls plain text out of a document. An empty string with a nil
// error means the document type carries no text we can read.
type Extractor interface {
	Extract(path string) (string, error)
}

// PlainText reads .txt and .md files as they are.
type PlainText struct{}

func (PlainText) Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
	default:
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
