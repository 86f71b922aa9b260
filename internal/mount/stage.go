package mount

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsbuild/internal/workspace"
)

// stagedDirName is the workspace subdirectory holding the content copy.
const stagedDirName = "content"

// StageReadOnly copies the content mount into ws and strips every write
// permission bit from the copy. The returned Spec points at the copy, so a
// generator running directly on the host sees the content read-only while
// the caller's tree is never touched. ws.Cleanup restores permissions.
//
// Processes running as root bypass permission bits, so callers pair the
// staged copy with a Snapshot and verify it once the generator exits.
func StageReadOnly(ctx context.Context, ws *workspace.Manager, content Spec) (Spec, error) {
	if err := content.Validate(); err != nil {
		return Spec{}, err
	}
	dst, err := ws.CreateSubdir(stagedDirName)
	if err != nil {
		return Spec{}, err
	}
	if err := copyTree(ctx, content.HostPath(), dst); err != nil {
		return Spec{}, fmt.Errorf("stage content: %w", err)
	}
	if err := freeze(dst); err != nil {
		return Spec{}, fmt.Errorf("make staged content read-only: %w", err)
	}
	return content.WithHostPath(dst), nil
}

// copyTree copies directories, regular files and symlinks from src into the
// existing directory dst. Other file types (sockets, devices) are skipped.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if rel == "." {
				return nil
			}
			return os.MkdirAll(target, 0o750)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return copyFile(path, target, info.Mode().Perm())
		default:
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src) // #nosec G304 -- walking the configured content tree
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200) // #nosec G304 -- inside the workspace
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// freeze removes write permission for everyone from root and its contents.
func freeze(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return os.Chmod(path, info.Mode().Perm()&^0o222)
	})
}

// Writable reports whether any write bit is set on path. Used to verify a
// staged tree before handing it to the generator.
func Writable(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().Perm()&0o222 != 0, nil
}
