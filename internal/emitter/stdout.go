package emitter

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/tilaka3/collector/internal/config"
	"github.com/tilaka3/collector/internal/model"
)

// StdoutEmitter writes log entries to standard output, one per line.
type StdoutEmitter struct {
	cfg    config.OutputConfig
	writer io.Writer
	mu     sync.Mutex
	count  int
	logger logger.ILogger
}

// NewStdoutEmitter creates a new stdout emitter.
func NewStdoutEmitter(cfg config.OutputConfig, log logger.ILogger) *StdoutEmitter {
	return NewStdoutEmitterWithWriter(cfg, os.Stdout, log)
}

// NewStdoutEmitterWithWriter creates a stdout emitter with a custom writer (for testing).
func NewStdoutEmitterWithWriter(cfg config.OutputConfig, w io.Writer, log logger.ILogger) *StdoutEmitter {
	return &StdoutEmitter{
		cfg:    cfg,
		writer: w,
		logger: log.SubLogger("StdoutEmitter"),
	}
}

// Name returns the emitter identifier.
func (s *StdoutEmitter) Name() string {
	return "stdout"
}

// Start initializes the emitter (no-op for stdout).
func (s *StdoutEmitter) Start(ctx context.Context) error {
	s.logger.Debugf("stdout emitter started: format=%s", s.cfg.Format)
	return nil
}

// Stop shuts down the emitter (no-op for stdout).
func (s *StdoutEmitter) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debugf("stdout emitter stopped: entries=%d", s.count)
	return nil
}

// Emit writes a log entry in the configured format.
func (s *StdoutEmitter) Emit(ctx context.Context, entry *model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var output []byte
	switch s.cfg.Format {
	case "text":
		output = []byte(entry.Text())
	default:
		var err error
		output, err = json.Marshal(entry.Fields())
		if err != nil {
			return err
		}
	}

	if _, err := s.writer.Write(append(output, '\n')); err != nil {
		return err
	}
	s.count++
	return nil
}
