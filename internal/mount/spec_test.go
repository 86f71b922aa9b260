package mount

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContent_IsReadOnly(t *testing.T) {
	dir := t.TempDir()
	m, err := NewContent(dir)
	require.NoError(t, err)

	assert.Equal(t, ReadOnly, m.Mode())
	assert.Equal(t, ContentContainerPath, m.ContainerPath())
	assert.Equal(t, dir, m.HostPath())
	assert.NoError(t, m.Validate())
	assert.Equal(t, dir+":/workspace:ro", m.String())
}

func TestNewOutput_IsReadWrite(t *testing.T) {
	m, err := NewOutput(filepath.Join(t.TempDir(), "site"))
	require.NoError(t, err)

	assert.Equal(t, ReadWrite, m.Mode())
	assert.Equal(t, OutputContainerPath, m.ContainerPath())
	// The output directory does not need to exist yet.
	assert.NoError(t, m.Validate())
}

func TestNew_RelativePathIsMadeAbsolute(t *testing.T) {
	m, err := NewOutput("site")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(m.HostPath()))
}

func TestNew_EmptyPath(t *testing.T) {
	_, err := NewContent("")
	assert.Error(t, err)
}

func TestValidate_RejectsWrongMode(t *testing.T) {
	content, err := NewContent(t.TempDir())
	require.NoError(t, err)
	content.mode = ReadWrite
	assert.ErrorIs(t, content.Validate(), ErrWrongMode)

	output, err := NewOutput(t.TempDir())
	require.NoError(t, err)
	output.mode = ReadOnly
	assert.ErrorIs(t, output.Validate(), ErrWrongMode)
}

func TestValidate_ContentMustBeDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mkdocs.yml")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	m, err := NewContent(file)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Validate(), ErrNotDirectory)

	missing, err := NewContent(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.ErrorIs(t, missing.Validate(), os.ErrNotExist)
}

func TestValidatePair_Overlap(t *testing.T) {
	root := t.TempDir()
	content, err := NewContent(root)
	require.NoError(t, err)

	nested, err := NewOutput(filepath.Join(root, "site"))
	require.NoError(t, err)
	assert.ErrorIs(t, ValidatePair(content, nested), ErrSameHostPaths)

	same, err := NewOutput(root)
	require.NoError(t, err)
	assert.ErrorIs(t, ValidatePair(content, same), ErrSameHostPaths)

	sibling, err := NewOutput(root + "-site")
	require.NoError(t, err)
	assert.NoError(t, ValidatePair(content, sibling))

	assert.Error(t, ValidatePair(sibling, content))
}

func TestWithHostPath_LeavesOriginal(t *testing.T) {
	content, err := NewContent(t.TempDir())
	require.NoError(t, err)
	moved := content.WithHostPath("/tmp/elsewhere")

	assert.NotEqual(t, content.HostPath(), moved.HostPath())
	assert.Equal(t, content.Mode(), moved.Mode())
	assert.Equal(t, content.ContainerPath(), moved.ContainerPath())
}

func TestAccessModeString(t *testing.T) {
	assert.Equal(t, "ro", ReadOnly.String())
	assert.Equal(t, "rw", ReadWrite.String())
	assert.Equal(t, "AccessMode(7)", AccessMode(7).String())
}
