package processor

import (
	"context"
	"os"
	"time"

	"github.com/tilaka3/collector/internal/config"
	"github.com/tilaka3/collector/internal/model"
)

// Enricher adds agent metadata to log entries: the hostname, the time the
// entry was processed and static labels.
type Enricher struct {
	cfg      config.EnricherConfig
	hostname string
}

// NewEnricher creates an enricher. The hostname is looked up once.
func NewEnricher(cfg config.EnricherConfig) *Enricher {
	e := &Enricher{cfg: cfg}
	if cfg.AddHostname {
		e.hostname, _ = os.Hostname()
	}
	return e
}

// WithHostname creates an Enricher reporting hostname instead of the detected one.
func WithHostname(cfg config.EnricherConfig, hostname string) *Enricher {
	e := NewEnricher(cfg)
	e.hostname = hostname
	return e
}

// Name returns the processor identifier.
func (e *Enricher) Name() string {
	return "enricher"
}

// Process adds the configured metadata. Keys set by the file input
// (file, input) are never overwritten by static labels.
func (e *Enricher) Process(ctx context.Context, entry *model.LogEntry) error {
	if !e.cfg.Enabled {
		return nil
	}

	if e.cfg.AddHostname && e.hostname != "" {
		entry.Metadata["hostname"] = e.hostname
	}

	if e.cfg.AddTimestamp {
		entry.Metadata["processed_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	for k, v := range e.cfg.StaticLabels {
		if _, taken := entry.Metadata[k]; taken {
			continue
		}
		entry.Metadata[k] = v
	}

	return nil
}
