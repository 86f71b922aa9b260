package mount

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrOutputBusy reports that another build holds the output mount.
var ErrOutputBusy = errors.New("output mount is in use by another build")

// LockSuffix is appended to the output directory to name its lock file.
const LockSuffix = ".lock"

// OutputLock is an exclusive advisory lock on an output mount.
type OutputLock struct {
	file *os.File
}

// LockOutput takes the lock for output without blocking. A second holder,
// in this process or another, gets ErrOutputBusy. The lock file lives next to
// the output directory so cleaning the output never removes it.
func LockOutput(output Spec) (*OutputLock, error) {
	if output.Role() != RoleOutput {
		return nil, fmt.Errorf("lock %s: %w", output.Role(), ErrWrongMode)
	}
	lockPath := output.HostPath() + LockSuffix
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600) // #nosec G304 -- derived from configured output path
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", output.HostPath(), ErrOutputBusy)
		}
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}
	return &OutputLock{file: f}, nil
}

// Path returns the lock file path.
func (l *OutputLock) Path() string { return l.file.Name() }

// Release drops the lock. The lock file is left in place: removing it would
// let a concurrent opener lock an unlinked inode.
func (l *OutputLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}
