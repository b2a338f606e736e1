// Package processor transforms log entries between a file input and the output.
package processor

import (
	"context"

	"github.com/tilaka3/collector/internal/config"
	"github.com/tilaka3/collector/internal/model"
)

// Processor modifies a LogEntry in place.
type Processor interface {
	// Process transforms a LogEntry in place.
	// An error means the entry should be dropped.
	Process(ctx context.Context, entry *model.LogEntry) error

	// Name returns a unique identifier for this processor.
	Name() string
}

// Chain runs processors in order and stops at the first error.
type Chain struct {
	processors []Processor
}

// NewChain creates a processor chain.
func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

// Process applies all processors in sequence.
func (c *Chain) Process(ctx context.Context, entry *model.LogEntry) error {
	for _, p := range c.processors {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.Process(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the chain identifier.
func (c *Chain) Name() string {
	return "chain"
}

// Add appends a processor to the chain.
func (c *Chain) Add(p Processor) {
	c.processors = append(c.processors, p)
}

// Len returns the number of processors in the chain.
func (c *Chain) Len() int {
	return len(c.processors)
}

// FromConfig builds the processor chain configured for the collector.
// Disabled processors are left out.
func FromConfig(cfg *config.Config) *Chain {
	chain := NewChain()
	if cfg.Enricher.Enabled {
		chain.Add(NewEnricher(cfg.Enricher))
	}
	return chain
}
