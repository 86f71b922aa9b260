package artifact

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// Manifest is the structural shape of an output tree: every relative path,
// directories suffixed with "/", sorted.
type Manifest []string

// BuildManifest walks root and records its shape. File contents are ignored;
// two builds of the same content differ in timestamps but not in shape.
func BuildManifest(root string) (Manifest, error) {
	var m Manifest
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		m = append(m, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("build manifest of %s: %w", root, err)
	}
	slices.Sort(m)
	return m, nil
}

// Diff lists paths present on only one side of a comparison.
type Diff struct {
	OnlyLeft  []string `json:"only_left"`
	OnlyRight []string `json:"only_right"`
}

// Equal reports whether the two manifests had the same shape.
func (d Diff) Equal() bool { return len(d.OnlyLeft) == 0 && len(d.OnlyRight) == 0 }

func (d Diff) String() string {
	if d.Equal() {
		return "trees are structurally identical"
	}
	var b strings.Builder
	for _, p := range d.OnlyLeft {
		b.WriteString("- " + p + "\n")
	}
	for _, p := range d.OnlyRight {
		b.WriteString("+ " + p + "\n")
	}
	return b.String()
}

// CompareManifests merges two sorted manifests.
func CompareManifests(left, right Manifest) Diff {
	var d Diff
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		switch c := strings.Compare(left[i], right[j]); {
		case c == 0:
			i++
			j++
		case c < 0:
			d.OnlyLeft = append(d.OnlyLeft, left[i])
			i++
		default:
			d.OnlyRight = append(d.OnlyRight, right[j])
			j++
		}
	}
	d.OnlyLeft = append(d.OnlyLeft, left[i:]...)
	d.OnlyRight = append(d.OnlyRight, right[j:]...)
	return d
}

// Compare builds manifests of two trees and compares them.
func Compare(left, right string) (Diff, error) {
	lm, err := BuildManifest(left)
	if err != nil {
		return Diff{}, err
	}
	rm, err := BuildManifest(right)
	if err != nil {
		return Diff{}, err
	}
	return CompareManifests(lm, rm), nil
}
