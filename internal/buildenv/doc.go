// Package buildenv resolves the build-time metadata injected into every
// generator run: the current year, the build timestamp and a source-control
// revision descriptor.
//
// A BuildEnvironment is resolved once per build and is immutable afterwards;
// the same value is handed to the executor and to the artifact validator.
package buildenv
