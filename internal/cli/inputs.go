package cli

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/tilaka3/collector/internal/config"
	"github.com/tilaka3/collector/internal/fileinput"
	"github.com/tilaka3/collector/internal/ingestor"
	"github.com/tilaka3/collector/internal/model"
)

// inputManager runs one file ingestor per named input and forwards their
// entries to a shared channel. Applying a configuration only restarts inputs
// whose settings changed, and a restarted input resumes where its predecessor stopped.
type inputManager struct {
	ctx       context.Context
	validator *fileinput.Validator
	entries   chan<- *model.LogEntry
	logger    logger.ILogger
	inputs    map[string]*managedInput
}

// managedInput wraps a running ingestor with its lifecycle controls.
type managedInput struct {
	cfg      config.FileInputConfig
	ingestor *ingestor.FileIngestor
	cancel   context.CancelFunc
	done     chan struct{}
}

func newInputManager(ctx context.Context, validator *fileinput.Validator, entries chan<- *model.LogEntry, log logger.ILogger) *inputManager {
	return &inputManager{
		ctx:       ctx,
		validator: validator,
		entries:   entries,
		logger:    log,
		inputs:    make(map[string]*managedInput),
	}
}

// Apply reconciles the running inputs with cfg: removed inputs stop, new ones
// start and changed ones restart. Inputs that fail to start are reported together.
func (m *inputManager) Apply(cfg *config.Config) error {
	wanted := make(map[string]config.FileInputConfig, len(cfg.Inputs.File))
	for _, input := range cfg.Inputs.File {
		wanted[input.Name] = input
	}

	resume := make(map[string]map[string]ingestor.Position)
	for name, mi := range m.inputs {
		next, ok := wanted[name]
		if ok && reflect.DeepEqual(mi.cfg, next) {
			continue
		}
		positions := m.remove(name)
		if ok {
			resume[name] = positions
		}
	}

	var errs []error
	for _, input := range cfg.Inputs.File {
		if _, running := m.inputs[input.Name]; running {
			continue
		}
		if err := m.add(input, resume[input.Name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of running inputs.
func (m *inputManager) Len() int {
	return len(m.inputs)
}

// StopAll stops every input and waits for them to finish.
func (m *inputManager) StopAll() {
	for name := range m.inputs {
		m.remove(name)
	}
}

func (m *inputManager) add(input config.FileInputConfig, positions map[string]ingestor.Position) error {
	ing, err := ingestor.NewFileIngestor(input.Configuration(), m.validator, m.logger)
	if err != nil {
		return err
	}
	if positions != nil {
		ing.Resume(positions)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	mi := &managedInput{
		cfg:      input,
		ingestor: ing,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	m.inputs[input.Name] = mi

	go func() {
		defer close(mi.done)
		if err := m.run(ctx, mi); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warningf("file input stopped: name=%s, error=%v", input.Name, err)
		}
	}()

	m.logger.Infof("file input started: %s", input.Name)
	return nil
}

// run tails the input until ctx is cancelled. Entries already read are
// forwarded even after ctx is cancelled, unless the manager itself stops.
func (m *inputManager) run(ctx context.Context, mi *managedInput) error {
	out := make(chan *model.LogEntry, inputBufferSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range out {
			select {
			case m.entries <- entry:
			case <-m.ctx.Done():
			}
		}
	}()

	err := mi.ingestor.Start(ctx, out)

	// Wait for the forwarder to drain
	wg.Wait()
	return err
}

// remove stops the named input and returns the positions it reached.
func (m *inputManager) remove(name string) map[string]ingestor.Position {
	mi, ok := m.inputs[name]
	if !ok {
		return nil
	}

	mi.cancel()
	<-mi.done

	delete(m.inputs, name)
	m.logger.Infof("file input stopped: %s", name)
	return mi.ingestor.Positions()
}
