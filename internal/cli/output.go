package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/tilaka3/collector/internal/config"
	"github.com/tilaka3/collector/internal/emitter"
	"github.com/tilaka3/collector/internal/model"
	"github.com/tilaka3/collector/internal/processor"
)

// output processes entries and writes them with the configured emitter.
type output struct {
	chain   *processor.Chain
	emitter emitter.Emitter
}

func newOutput(cfg *config.Config, w io.Writer, log logger.ILogger) *output {
	return &output{
		chain:   processor.FromConfig(cfg),
		emitter: emitter.NewStdoutEmitterWithWriter(cfg.Output, w, log),
	}
}

// runOutput writes entries until ctx is done. An output received from
// replacements takes over from the current one.
func runOutput(ctx context.Context, entries <-chan *model.LogEntry, replacements <-chan *output, current *output, log logger.ILogger) error {
	if err := current.emitter.Start(ctx); err != nil {
		return fmt.Errorf("starting emitter: %w", err)
	}
	defer func() {
		stopEmitter(current.emitter, log)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case next := <-replacements:
			if err := next.emitter.Start(ctx); err != nil {
				log.Warningf("emitter start error, keeping current output: %v", err)
				continue
			}
			stopEmitter(current.emitter, log)
			current = next

		case entry := <-entries:
			if err := current.chain.Process(ctx, entry); err != nil {
				log.Debugf("processor error: source=%s, error=%v", entry.Source, err)
				continue
			}
			if err := current.emitter.Emit(ctx, entry); err != nil {
				log.Debugf("emit error: source=%s, error=%v", entry.Source, err)
			}
		}
	}
}

func stopEmitter(em emitter.Emitter, log logger.ILogger) {
	if err := em.Stop(context.Background()); err != nil {
		log.Warningf("emitter stop error: name=%s, error=%v", em.Name(), err)
	}
}
