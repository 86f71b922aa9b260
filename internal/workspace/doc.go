// Package workspace manages scratch directories used while a build runs,
// such as the read-only staging copy of the content tree.
//
// Ephemeral mode creates a uniquely named directory (docsbuild-20251214-122336-1a2b3c4d)
// that is removed completely by Cleanup.
//
// Persistent mode uses a fixed directory that survives Cleanup so a failed
// build's staging tree can be inspected afterwards.
package workspace
