package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
)

// ShortHashLength is the number of hex digits kept in revision descriptors.
const ShortHashLength = 7

// ErrNoRepository reports that a directory carries no source-control metadata.
var ErrNoRepository = errors.New("no source-control metadata")

// Revision is the optional outcome of a source-control probe. An unavailable
// revision has an empty Hash and a non-nil Reason.
type Revision struct {
	Hash   string
	Branch string // empty for a detached HEAD
	Dirty  bool

	reason error
}

// Unavailable returns a Revision recording why no revision could be resolved.
func Unavailable(reason error) Revision {
	if reason == nil {
		reason = ErrNoRepository
	}
	return Revision{reason: reason}
}

// Available reports whether the probe resolved a commit.
func (r Revision) Available() bool { return r.reason == nil && r.Hash != "" }

// Reason explains an unavailable revision; nil when available.
func (r Revision) Reason() error {
	if r.Available() {
		return nil
	}
	if r.reason == nil {
		return ErrNoRepository
	}
	return r.reason
}

// Short returns the abbreviated commit hash.
func (r Revision) Short() string {
	if len(r.Hash) <= ShortHashLength {
		return r.Hash
	}
	return r.Hash[:ShortHashLength]
}

// Descriptor renders the revision as "abc1234 (main)", "abc1234-dirty (main)"
// or "abc1234" for a detached HEAD. Unavailable revisions render as "".
func (r Revision) Descriptor() string {
	if !r.Available() {
		return ""
	}
	s := r.Short()
	if r.Dirty {
		s += "-dirty"
	}
	if r.Branch != "" {
		s += " (" + r.Branch + ")"
	}
	return s
}

// HasMetadata reports whether dir contains a .git directory or gitdir file.
func HasMetadata(dir string) bool {
	if dir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// ProbeOptions tunes a Probe call.
type ProbeOptions struct {
	// CheckDirty inspects the worktree for uncommitted changes. Walking the
	// worktree is the expensive part of a probe on large content trees.
	CheckDirty bool
}

// Probe resolves the revision of the repository rooted at dir.
func Probe(dir string, opts ProbeOptions) Revision {
	if !HasMetadata(dir) {
		return Unavailable(ErrNoRepository)
	}

	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		hash, branch, headErr := ReadRepoHead(dir)
		if headErr != nil {
			return Unavailable(fmt.Errorf("open repository %s: %w", dir, errors.Join(err, headErr)))
		}
		return Revision{Hash: hash, Branch: branch}
	}

	head, err := repo.Head()
	if err != nil {
		return Unavailable(fmt.Errorf("resolve HEAD: %w", err))
	}

	rev := Revision{Hash: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}

	if opts.CheckDirty {
		rev.Dirty = worktreeDirty(repo)
	}
	return rev
}

// worktreeDirty reports uncommitted changes; bare repositories and status
// failures count as clean.
func worktreeDirty(repo *gogit.Repository) bool {
	wt, err := repo.Worktree()
	if err != nil {
		return false
	}
	status, err := wt.Status()
	if err != nil {
		return false
	}
	return !status.IsClean()
}
