package mount

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrContentModified reports that a generator changed the staged content
// mount even though it was handed over read-only.
var ErrContentModified = errors.New("docsbuild: content mount modified")

type entry struct {
	mode    fs.FileMode
	size    int64
	modTime time.Time
	link    string
}

// Snapshot records the metadata of every entry under a staged tree. Permission
// bits do not stop a process running as root, so runtimes compare a snapshot
// taken before the generator starts with the tree it leaves behind.
type Snapshot struct {
	root    string
	entries map[string]entry
}

// TakeSnapshot walks root and records mode, size, mtime and symlink target
// for each entry.
func TakeSnapshot(root string) (*Snapshot, error) {
	entries := make(map[string]entry)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		e := entry{mode: info.Mode(), size: info.Size(), modTime: info.ModTime()}
		if d.Type()&fs.ModeSymlink != 0 {
			if e.link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		if d.IsDir() {
			// Directory sizes are filesystem specific; membership is compared per entry.
			e.size = 0
		}
		entries[filepath.ToSlash(rel)] = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", root, err)
	}
	return &Snapshot{root: root, entries: entries}, nil
}

// Changes lists, sorted, the paths that were added, removed or altered since
// the snapshot was taken. Each entry is prefixed with "+", "-" or "~".
func (s *Snapshot) Changes() ([]string, error) {
	now, err := TakeSnapshot(s.root)
	if err != nil {
		return nil, err
	}
	var changes []string
	for rel, before := range s.entries {
		after, ok := now.entries[rel]
		switch {
		case !ok:
			changes = append(changes, "-"+rel)
		case after.mode != before.mode || after.size != before.size ||
			!after.modTime.Equal(before.modTime) || after.link != before.link:
			changes = append(changes, "~"+rel)
		}
	}
	for rel := range now.entries {
		if _, ok := s.entries[rel]; !ok {
			changes = append(changes, "+"+rel)
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i][1:] < changes[j][1:] })
	return changes, nil
}

// Verify returns an error wrapping ErrContentModified when the tree no
// longer matches the snapshot.
func (s *Snapshot) Verify() error {
	changes, err := s.Changes()
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	const shown = 5
	list := changes
	if len(list) > shown {
		list = append(list[:shown:shown], fmt.Sprintf("and %d more", len(changes)-shown))
	}
	return fmt.Errorf("%w: %s", ErrContentModified, strings.Join(list, ", "))
}
