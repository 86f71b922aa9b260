package mount

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsbuild/internal/workspace"
)

func contentFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "guide"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "mkdocs.yml"), []byte("site_name: Docs\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "index.md"), []byte("# Home\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "guide", "index.md"), []byte("# Guide\n"), 0o600))
	require.NoError(t, os.Symlink("index.md", filepath.Join(root, "docs", "README.md")))
	return root
}

func newWorkspace(t *testing.T) *workspace.Manager {
	t.Helper()
	ws := workspace.NewManager(t.TempDir())
	require.NoError(t, ws.Create())
	t.Cleanup(func() { _ = ws.Cleanup() })
	return ws
}

func TestStageReadOnly_CopiesAndFreezes(t *testing.T) {
	src := contentFixture(t)
	content, err := NewContent(src)
	require.NoError(t, err)
	ws := newWorkspace(t)

	staged, err := StageReadOnly(context.Background(), ws, content)
	require.NoError(t, err)

	assert.NotEqual(t, src, staged.HostPath())
	assert.Equal(t, ReadOnly, staged.Mode())
	assert.Equal(t, ContentContainerPath, staged.ContainerPath())

	data, err := os.ReadFile(filepath.Join(staged.HostPath(), "docs", "guide", "index.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Guide\n", string(data))

	link, err := os.Readlink(filepath.Join(staged.HostPath(), "docs", "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "index.md", link)

	for _, rel := range []string{".", "docs", "docs/guide", "mkdocs.yml", "docs/index.md"} {
		w, err := Writable(filepath.Join(staged.HostPath(), rel))
		require.NoError(t, err)
		assert.False(t, w, "%s still writable", rel)
	}

	// The caller's tree keeps its permissions.
	w, err := Writable(filepath.Join(src, "mkdocs.yml"))
	require.NoError(t, err)
	assert.True(t, w)
}

func TestStageReadOnly_WritesAreRejected(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not bind root")
	}
	content, err := NewContent(contentFixture(t))
	require.NoError(t, err)

	staged, err := StageReadOnly(context.Background(), newWorkspace(t), content)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(staged.HostPath(), "new.md"), []byte("x"), 0o600)
	assert.ErrorIs(t, err, os.ErrPermission)
	err = os.WriteFile(filepath.Join(staged.HostPath(), "mkdocs.yml"), []byte("x"), 0o600)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestStageReadOnly_RestagingReplacesCopy(t *testing.T) {
	src := contentFixture(t)
	content, err := NewContent(src)
	require.NoError(t, err)
	ws := newWorkspace(t)

	_, err = StageReadOnly(context.Background(), ws, content)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(src, "mkdocs.yml")))

	staged, err := StageReadOnly(context.Background(), ws, content)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(staged.HostPath(), "mkdocs.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStageReadOnly_Canceled(t *testing.T) {
	content, err := NewContent(contentFixture(t))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = StageReadOnly(ctx, newWorkspace(t), content)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStageReadOnly_InvalidContent(t *testing.T) {
	content, err := NewContent(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	_, err = StageReadOnly(context.Background(), newWorkspace(t), content)
	assert.Error(t, err)
}
