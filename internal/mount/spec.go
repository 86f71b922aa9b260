package mount

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// AccessMode is the permission a generator has on a mount.
type AccessMode int

const (
	ReadOnly AccessMode = iota
	ReadWrite
)

func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "ro"
	case ReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("AccessMode(%d)", int(m))
	}
}

// Container paths seen by the generator.
const (
	ContentContainerPath = "/workspace"
	OutputContainerPath  = "/site"
)

// Role distinguishes the content mount from the output mount.
type Role string

const (
	RoleContent Role = "content"
	RoleOutput  Role = "output"
)

var (
	ErrWrongMode     = errors.New("mount access mode not allowed for role")
	ErrNotDirectory  = errors.New("mount host path is not a directory")
	ErrRelativePath  = errors.New("mount container path must be absolute")
	ErrSameHostPaths = errors.New("content and output mounts share a host path")
)

// Spec binds a host directory to a container path with an access mode.
// Values are created by NewContent or NewOutput and never modified.
type Spec struct {
	role          Role
	hostPath      string
	containerPath string
	mode          AccessMode
}

// NewContent returns the read-only content mount for hostPath.
func NewContent(hostPath string) (Spec, error) {
	return newSpec(RoleContent, hostPath, ContentContainerPath, ReadOnly)
}

// NewOutput returns the writable output mount for hostPath.
func NewOutput(hostPath string) (Spec, error) {
	return newSpec(RoleOutput, hostPath, OutputContainerPath, ReadWrite)
}

func newSpec(role Role, hostPath, containerPath string, mode AccessMode) (Spec, error) {
	if hostPath == "" {
		return Spec{}, fmt.Errorf("%s mount: empty host path", role)
	}
	abs, err := filepath.Abs(hostPath)
	if err != nil {
		return Spec{}, fmt.Errorf("%s mount: %w", role, err)
	}
	return Spec{role: role, hostPath: abs, containerPath: containerPath, mode: mode}, nil
}

func (s Spec) Role() Role            { return s.role }
func (s Spec) HostPath() string      { return s.hostPath }
func (s Spec) ContainerPath() string { return s.containerPath }
func (s Spec) Mode() AccessMode      { return s.mode }
func (s Spec) IsZero() bool          { return s.hostPath == "" }
func (s Spec) String() string        { return s.hostPath + ":" + s.containerPath + ":" + s.mode.String() }

// WithHostPath returns a copy of s rebound to another host directory. The
// local runtime uses it to point the content mount at the staged copy.
func (s Spec) WithHostPath(hostPath string) Spec {
	s.hostPath = hostPath
	return s
}

// Validate checks the mode invariant of s and, for content mounts, that the
// host directory exists.
func (s Spec) Validate() error {
	if s.IsZero() {
		return fmt.Errorf("%s mount: empty host path", s.role)
	}
	if !path.IsAbs(s.containerPath) {
		return fmt.Errorf("%s mount %s: %w", s.role, s.containerPath, ErrRelativePath)
	}
	switch {
	case s.role == RoleContent && s.mode != ReadOnly,
		s.role == RoleOutput && s.mode != ReadWrite:
		return fmt.Errorf("%s mount %s: %w", s.role, s.mode, ErrWrongMode)
	case s.role != RoleContent && s.role != RoleOutput:
		return fmt.Errorf("unknown mount role %q", s.role)
	}
	if s.role == RoleContent {
		info, err := os.Stat(s.hostPath)
		if err != nil {
			return fmt.Errorf("content mount: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("content mount %s: %w", s.hostPath, ErrNotDirectory)
		}
	}
	return nil
}

// ValidatePair validates both mounts and rejects overlapping host paths:
// an output tree inside the content tree would make the content writable.
func ValidatePair(content, output Spec) error {
	if content.role != RoleContent || output.role != RoleOutput {
		return fmt.Errorf("mount roles out of order: %s, %s", content.role, output.role)
	}
	if err := content.Validate(); err != nil {
		return err
	}
	if err := output.Validate(); err != nil {
		return err
	}
	if within(content.hostPath, output.hostPath) || within(output.hostPath, content.hostPath) {
		return fmt.Errorf("%s and %s: %w", content.hostPath, output.hostPath, ErrSameHostPaths)
	}
	return nil
}

// within reports whether p equals dir or lies beneath it.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
