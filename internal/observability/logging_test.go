package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBuildID(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-123")
	assert.Equal(t, "build-123", GetContext(ctx).BuildID)
}

func TestWithStage(t *testing.T) {
	ctx := WithStage(context.Background(), "execute")
	assert.Equal(t, "execute", GetContext(ctx).Stage)
}

func TestMultipleContextValues(t *testing.T) {
	ctx := WithBuildID(context.Background(), "b-1")
	ctx = WithStage(ctx, "environment")
	ctx = WithStage(ctx, "validate")

	lc := GetContext(ctx)
	assert.Equal(t, "b-1", lc.BuildID)
	assert.Equal(t, "validate", lc.Stage)
}

func TestAttrsEmptyContext(t *testing.T) {
	assert.Empty(t, Attrs(context.Background()))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestContextHandlerAddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithStage(WithBuildID(context.Background(), "b-42"), "execute")
	logger.InfoContext(ctx, "running", slog.String("runtime", "local"))

	rec := decodeLine(t, &buf)
	assert.Equal(t, "b-42", rec["build_id"])
	assert.Equal(t, "execute", rec["stage"])
	assert.Equal(t, "local", rec["runtime"])
}

func TestContextHandlerWithoutContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	logger.Info("plain")

	rec := decodeLine(t, &buf)
	assert.NotContains(t, rec, "build_id")
	assert.NotContains(t, rec, "stage")
}

func TestContextHandlerWithAttrsKeepsDecorating(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil))).With("component", "executor")

	logger.InfoContext(WithBuildID(context.Background(), "b-7"), "hello")

	rec := decodeLine(t, &buf)
	assert.Equal(t, "executor", rec["component"])
	assert.Equal(t, "b-7", rec["build_id"])
}

func TestNewContextHandlerDoesNotDoubleWrap(t *testing.T) {
	h := NewContextHandler(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, h, NewContextHandler(h))
}
