package git

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadRepoHead returns the commit HEAD points at and, for symbolic HEADs, the
// branch name. It reads .git/HEAD directly and is used when go-git cannot open
// the repository (partial checkouts copied into build contexts, for instance).
func ReadRepoHead(repoPath string) (hash, branch string, err error) {
	gitDir := filepath.Join(repoPath, ".git")
	data, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return "", "", err
	}
	line := strings.TrimSpace(string(data))

	if ref, ok := strings.CutPrefix(line, "ref:"); ok {
		ref = strings.TrimSpace(ref)
		branch = strings.TrimPrefix(ref, "refs/heads/")
		refData, refErr := os.ReadFile(filepath.Join(gitDir, filepath.FromSlash(ref)))
		if refErr != nil {
			if packed, ok := lookupPackedRef(gitDir, ref); ok {
				return packed, branch, nil
			}
			return "", branch, fmt.Errorf("resolve %s: %w", ref, refErr)
		}
		line = strings.TrimSpace(string(refData))
	}

	if !isCommitHash(line) {
		return "", branch, fmt.Errorf("HEAD does not name a commit: %q", line)
	}
	return line, branch, nil
}

// lookupPackedRef resolves ref from .git/packed-refs.
func lookupPackedRef(gitDir, ref string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(gitDir, "packed-refs"))
	if err != nil {
		return "", false
	}
	for line := range strings.Lines(string(data)) {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == ref && isCommitHash(fields[0]) {
			return fields[0], true
		}
	}
	return "", false
}

func isCommitHash(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
