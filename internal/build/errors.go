package build

import (
	"errors"

	"git.home.luguber.info/inful/docsbuild/internal/mount"
)

// Sentinel errors for build outcomes. Returned errors wrap them so callers can
// use errors.Is regardless of the classification layered on top.
var (
	ErrGeneratorFailed = errors.New("docsbuild: generator exited with non-zero status")
	ErrTimedOut        = errors.New("docsbuild: generator exceeded its time limit")
	ErrCanceled        = errors.New("docsbuild: build canceled")
	ErrOutputBusy      = mount.ErrOutputBusy
	ErrEmptyCommand    = errors.New("docsbuild: generator command is empty")
	ErrContentModified = mount.ErrContentModified
)
