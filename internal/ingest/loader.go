// Package ingest implements the batch job that loads source documents
// into the knowledge vector store.
package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Document is one source file to be chunked and embedded.
type Document struct {
	Path string
	Name string
	Text string
}

// LoadDirectory reads all .txt and .md files under dir, recursively.
func LoadDirectory(dir string) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		docs = append(docs, Document{
			Path: path,
			Name: strings.TrimSuffix(d.Name(), ext),
			Text: string(data),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}
