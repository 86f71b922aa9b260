// Package build runs the external static-site generator against a read-only
// content mount and a writable output mount.
//
// The Executor owns the run: it validates and locks the mounts, exports the
// build environment, bounds the run with a timeout and classifies the outcome
// as succeeded, failed, timed out or canceled. How the generator process is
// hosted is delegated to a Runtime; LocalRuntime runs it directly on the host
// and DockerRuntime runs it in a container.
package build
