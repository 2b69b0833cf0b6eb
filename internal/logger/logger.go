// Package logger builds the process logger and the field helpers shared by
// the agents and backend clients.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger on stderr, keeping stdout for command
// output. json switches to the JSON encoder and debug lowers the level.
func New(json bool, debug bool) (*zap.Logger, error) {
	return NewWithSink(zapcore.Lock(os.Stderr), json, debug), nil
}

// NewWithSink builds the same logger on an arbitrary sink.
func NewWithSink(sink zapcore.WriteSyncer, json bool, debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey: "step",

		LevelKey:    "level",
		EncodeLevel: zapcore.LowercaseLevelEncoder,

		TimeKey:    "time",
		EncodeTime: zapcore.RFC3339TimeEncoder,

		CallerKey:    "caller",
		EncodeCaller: zapcore.ShortCallerEncoder,

		EncodeDuration: zapcore.StringDurationEncoder,
	}

	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	if json {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	return zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller(), zap.ErrorOutput(sink))
}
