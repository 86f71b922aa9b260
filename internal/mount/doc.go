// Package mount describes the two filesystem mounts a generator run sees,
// the read-only content tree and the writable output tree, and provides the
// host-side enforcement for them: an exclusive lock on the output path and a
// read-only staging copy of the content for runtimes without bind mounts.
package mount
