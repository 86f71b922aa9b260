package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
)

var testEnv = buildenv.New(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC), "1a2b3c4 (main)")

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return root
}

func page(body string) string {
	return "<!doctype html><html><head><title>Docs</title></head><body>" + body + "</body></html>"
}

// completeSite satisfies every check for testEnv.
func completeSite(t *testing.T) string {
	footer := "<footer>&copy; 2026 &middot; Built 2026-09-01 12:00:00 UTC &middot; 1a2b3c4 (main)</footer>"
	return writeSite(t, map[string]string{
		"index.html":         page("<h1>Home</h1>" + footer),
		"guide/index.html":   page("<h1>Guide</h1>" + footer),
		"reference/api.html": page("<h1>API</h1>" + footer),
		"assets/style.css":   "body{}",
		"search/index.json":  "{}",
	})
}
