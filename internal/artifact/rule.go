package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
)

// Context contains all the data needed by validation rules.
type Context struct {
	Tree *Tree
	Env  buildenv.BuildEnvironment

	// HasSourceControl records whether the content mount carried .git metadata.
	HasSourceControl bool

	Logger *slog.Logger

	texts *textCache
}

// Text returns the extracted text of a document, parsing it at most once
// per validation run.
func (c Context) Text(rel string) (string, error) {
	if c.texts == nil {
		return readText(c.Tree, rel)
	}
	return c.texts.get(c.Tree, rel)
}

// Result indicates whether a rule passed and provides context.
type Result struct {
	Passed bool
	Reason string // human-readable reason for failure
}

// Success returns a successful validation result.
func Success() Result {
	return Result{Passed: true}
}

// Failure returns a failed validation result with a reason.
func Failure(format string, args ...any) Result {
	return Result{Passed: false, Reason: fmt.Sprintf(format, args...)}
}

// Rule is a single check over an artifact tree.
type Rule interface {
	// Name returns a short identifier used in reports, logs and metrics.
	Name() string
	Validate(ctx context.Context, vctx Context) Result
}

type textCache struct {
	mu    sync.Mutex
	texts map[string]string
}

func newTextCache() *textCache {
	return &textCache{texts: make(map[string]string)}
}

func (c *textCache) get(t *Tree, rel string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.texts[rel]; ok {
		return s, nil
	}
	s, err := readText(t, rel)
	if err != nil {
		return "", err
	}
	c.texts[rel] = s
	return s, nil
}

func readText(t *Tree, rel string) (string, error) {
	f, err := t.Open(rel)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()
	return ExtractText(f)
}
