package fileinput

import (
	"github.com/GabrielNunesIT/go-libs/logger"
)

// Sink receives advisory warnings raised during validation.
// Warnings never change the verdict.
type Sink interface {
	Warn(message, path string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(message, path string)

// Warn calls f(message, path).
func (f SinkFunc) Warn(message, path string) {
	f(message, path)
}

// LoggerSink forwards warnings to the agent logger.
type LoggerSink struct {
	logger logger.ILogger
}

// NewLoggerSink creates a Sink that logs at warning level.
func NewLoggerSink(log logger.ILogger) *LoggerSink {
	return &LoggerSink{logger: log.SubLogger("FileInputValidator")}
}

// Warn logs the message together with the offending path.
func (s *LoggerSink) Warn(message, path string) {
	s.logger.Warningf("%s: path=%s", message, path)
}

type discardSink struct{}

func (discardSink) Warn(string, string) {}
