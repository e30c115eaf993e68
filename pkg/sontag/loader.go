package sontag

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loader resolves template names to source text. The engine consults it for
// Render(name) and for {% include %}; failures surface as LoadError.
type Loader interface {
	Load(name string) (string, error)
}

// FileLoader loads templates from files under a root directory. Names are
// slash-separated paths relative to the root; names escaping the root are
// rejected.
type FileLoader struct {
	root string
}

// NewFileLoader creates a loader rooted at the given directory.
func NewFileLoader(root string) *FileLoader {
	return &FileLoader{root: root}
}

func (l *FileLoader) Load(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", NewLoadError(name, fmt.Errorf("name escapes template root"))
	}

	data, err := os.ReadFile(filepath.Join(l.root, clean))
	if err != nil {
		return "", NewLoadError(name, err)
	}
	return string(data), nil
}

// MapLoader serves templates from an in-memory map, keyed by name.
type MapLoader map[string]string

func (l MapLoader) Load(name string) (string, error) {
	source, ok := l[name]
	if !ok {
		return "", NewLoadError(name, fmt.Errorf("not found"))
	}
	return source, nil
}
