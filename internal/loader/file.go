package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quarry-ai/quarry/internal/document"
)

// textExtensions are the file types the directory walk picks up.
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".rst":  true,
	".yaml": true,
	".yml":  true,
	".json": true,
}

// fileLoader reads a local file, or every text file under a directory.
type fileLoader struct {
	path string
}

func newFile(sourceURL string) *fileLoader {
	return &fileLoader{path: sourcePath(sourceURL)}
}

func (l *fileLoader) Load(ctx context.Context) ([]document.Document, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	if !info.IsDir() {
		doc, err := l.loadOne(l.path)
		if err != nil {
			return nil, err
		}
		return []document.Document{doc}, nil
	}

	var docs []document.Document
	err = filepath.WalkDir(l.path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		doc, err := l.loadOne(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loader: walking %s: %w", l.path, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("loader: no text files under %s", l.path)
	}
	return docs, nil
}

func (l *fileLoader) loadOne(path string) (document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, fmt.Errorf("loader: reading %s: %w", path, err)
	}
	return document.Document{
		Content: string(data),
		Metadata: map[string]string{
			document.MetaSourceURL: path,
			"file_name":            filepath.Base(path),
		},
	}, nil
}
