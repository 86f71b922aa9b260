// Package errors provides the classified error primitives used across docsbuild.
//
// A ClassifiedError carries a category (config, environment, build, timeout, ...),
// a severity and a retry strategy next to the usual message and cause. Builds are
// deterministic, so every constructor in this package defaults to RetryNever; the
// field exists so callers can tell a permanent failure from one that needs the
// operator to act (for example a busy output mount).
//
// Example usage:
//
//	err := errors.BuildError("generator exited non-zero").
//		WithContext("exit_code", 2).
//		WithCause(runErr).
//		Build()
//
// CLIErrorAdapter maps classified errors to process exit codes and
// user-facing messages for the docsbuild command.
package errors
