package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyMount      = "mount"
	KeyRuntime    = "runtime"
	KeyCommand    = "command"
	KeyExitCode   = "exit_code"
	KeyStatus     = "status"
	KeyCheck      = "check"
	KeyRevision   = "revision"
	KeyContainer  = "container"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr       { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Mount(m string) slog.Attr          { return slog.String(KeyMount, m) }
func Runtime(name string) slog.Attr     { return slog.String(KeyRuntime, name) }
func Command(cmd string) slog.Attr      { return slog.String(KeyCommand, cmd) }
func ExitCode(code int) slog.Attr       { return slog.Int(KeyExitCode, code) }
func Status(s string) slog.Attr         { return slog.String(KeyStatus, s) }
func Check(name string) slog.Attr       { return slog.String(KeyCheck, name) }
func Revision(r string) slog.Attr       { return slog.String(KeyRevision, r) }
func Container(id string) slog.Attr     { return slog.String(KeyContainer, id) }
func Duration(d time.Duration) slog.Attr { return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
