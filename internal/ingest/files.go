package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// textExtensions lists file types ingested by LoadDir. Everything else is
// skipped silently.
var textExtensions = map[string]bool{
	".md":   true,
	".txt":  true,
	".html": true,
	".htm":  true,
}

// LoadFile reads one file into a Document. The document id is the path
// relative to root (or the bare filename when root is empty), so a corpus
// laid out as <domain>/<page> scopes naturally by site.
func LoadFile(path, root string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}

	id := filepath.Base(path)
	if root != "" {
		rel, err := filepath.Rel(root, path)
		if err == nil {
			id = filepath.ToSlash(rel)
		}
	}

	return Document{
		DocumentID: id,
		Path:       path,
		Text:       string(data),
	}, nil
}

// LoadDir walks root and loads every text file beneath it. Hidden
// directories are skipped.
func LoadDir(root string) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		doc, err := LoadFile(path, root)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return docs, nil
}
