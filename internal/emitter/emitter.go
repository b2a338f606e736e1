// Package emitter defines where collected entries are written.
package emitter

import (
	"context"

	"github.com/tilaka3/collector/internal/model"
)

// Emitter defines the contract for log destinations.
type Emitter interface {
	// Start initializes the emitter. Called once before Emit is called.
	Start(ctx context.Context) error

	// Emit writes a log entry to the destination.
	// Must be safe to call concurrently.
	Emit(ctx context.Context, entry *model.LogEntry) error

	// Stop flushes buffered data and shuts the emitter down.
	Stop(ctx context.Context) error

	// Name returns a unique identifier for this emitter.
	Name() string
}

var _ Emitter = (*StdoutEmitter)(nil)
