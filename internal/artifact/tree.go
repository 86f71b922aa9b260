package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// EntryDocument is the file a web server serves for a directory.
const EntryDocument = "index.html"

// Tree is a read-only view of a generated site rooted at a directory.
type Tree struct {
	root      string
	documents []string
}

// OpenTree walks root once and records every rendered document in lexical
// walk order. Paths are slash-separated and relative to root.
func OpenTree(root string) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open artifact tree: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open artifact tree: %s is not a directory", root)
	}

	t := &Tree{root: root}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDocument(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		t.documents = append(t.documents, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk artifact tree: %w", err)
	}
	return t, nil
}

func isDocument(name string) bool {
	return strings.EqualFold(path.Ext(name), ".html")
}

func (t *Tree) Root() string { return t.root }

// Documents returns the rendered documents in walk order.
func (t *Tree) Documents() []string {
	return append([]string(nil), t.documents...)
}

// Sample returns at most n documents from the start of the walk order.
func (t *Tree) Sample(n int) []string {
	if n <= 0 || n >= len(t.documents) {
		return t.Documents()
	}
	return append([]string(nil), t.documents[:n]...)
}

// EntryDocuments returns every index.html, root first.
func (t *Tree) EntryDocuments() []string {
	var out []string
	for _, d := range t.documents {
		if path.Base(d) == EntryDocument {
			out = append(out, d)
		}
	}
	return out
}

// HasRootEntry reports whether index.html exists directly under the root.
func (t *Tree) HasRootEntry() bool {
	for _, d := range t.documents {
		if d == EntryDocument {
			return true
		}
	}
	return false
}

// NestedEntries returns the entry documents below the root.
func (t *Tree) NestedEntries() []string {
	var out []string
	for _, d := range t.EntryDocuments() {
		if d != EntryDocument {
			out = append(out, d)
		}
	}
	return out
}

// Open opens a document by its relative path.
func (t *Tree) Open(rel string) (*os.File, error) {
	return os.Open(filepath.Join(t.root, filepath.FromSlash(rel))) // #nosec G304 -- rel comes from our own walk
}
