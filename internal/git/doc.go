// Package git probes a content tree for source-control metadata.
//
// The probe never fails a build: it returns a Revision that is either
// available (commit hash, branch, worktree state) or carries the reason it is
// not. Callers decide what an unavailable revision means for them; the
// environment resolver turns it into an empty GIT_INFO value.
package git
