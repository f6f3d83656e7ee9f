// Package logging builds the CLI's zap logger.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PromptVerbosity is the level at which whole prompts are logged.
const PromptVerbosity = 3

// Level maps a -v count to a zap level: 0 error, 1 info, 2 and above debug.
func Level(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.ErrorLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// New returns a console logger writing to w with coloured level labels and no timestamps.
func New(verbosity int, w io.Writer) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), Level(verbosity))
	return zap.New(core)
}
