package config

import (
	"log/slog"

	"git.home.luguber.info/inful/docsbuild/internal/foundation/normalization"
)

// RuntimeKind selects the generator runtime.
type RuntimeKind string

const (
	RuntimeLocal  RuntimeKind = "local"
	RuntimeDocker RuntimeKind = "docker"
)

var runtimeKinds = normalization.NewNormalizer("runtime kind", map[string]RuntimeKind{
	"local":     RuntimeLocal,
	"host":      RuntimeLocal,
	"docker":    RuntimeDocker,
	"container": RuntimeDocker,
}, RuntimeLocal)

func ParseRuntimeKind(raw string) (RuntimeKind, error) { return runtimeKinds.Parse(raw) }

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = normalization.NewNormalizer("log level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

func NormalizeLogLevel(raw string) LogLevel { return logLevels.Normalize(raw) }

// SlogLevel maps the level onto log/slog.
func (l LogLevel) SlogLevel() slog.Level {
	switch NormalizeLogLevel(string(l)) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormats = normalization.NewNormalizer("log format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat { return logFormats.Normalize(raw) }
