package logging

import (
	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug for ultra-verbose logging:
// per-row import decisions, SQL timing, wire payloads. Almost always
// filtered in production.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name into a zapcore.Level, supporting
// "trace" on top of zap's built-in names.
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}
