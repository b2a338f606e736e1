package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tilaka3/collector/internal/config"
	"github.com/tilaka3/collector/internal/fileinput"
	"github.com/tilaka3/collector/internal/model"
)

// inputBufferSize is the channel capacity between an ingestor and the output.
const inputBufferSize = 1000

// NewRunCmd creates the run command.
func NewRunCmd(cfgFile, logLevel, logFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Validate the file inputs and start tailing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollector(cmd, cfgFile, logLevel, logFile)
		},
	}

	cmd.Flags().Bool("hot-reload", true, "enable hot-reload of config file")
	cmd.Flags().String("format", "", "output format (json, text); overrides the config file")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464; overrides the config file")

	return cmd
}

func runCollector(cmd *cobra.Command, cfgFile, logLevel, logFile *string) error {
	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyCLIOverrides(cmd, cfg)

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	file := cfg.LogFile
	if *logFile != "" {
		file = *logFile
	}
	log := SetupLogging(level, file)

	reg := newMetricsRegistry()
	validator := fileinput.NewValidator(fileinput.NewLoggerSink(log), fileinput.WithMetrics(fileinput.NewMetrics(reg)))
	if err := cfg.Validate(validator); err != nil {
		return err
	}
	if len(cfg.Inputs.File) == 0 {
		return errors.New("no file inputs configured")
	}

	metricsAddr := cfg.MetricsAddr
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		metricsAddr = addr
	}
	var metricsListener net.Listener
	if metricsAddr != "" {
		if metricsListener, err = net.Listen("tcp", metricsAddr); err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan *config.Config, 1)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	hotReloadEnabled, _ := cmd.Flags().GetBool("hot-reload")
	if *cfgFile != "" && hotReloadEnabled {
		startConfigWatcher(ctx, cmd, *cfgFile, validator, reloads, log)
	}

	go handleSignals(ctx, cancel, sigChan, cmd, *cfgFile, validator, reloads, log)

	log.Infof("starting collector: inputs=%d", len(cfg.Inputs.File))

	err = runPipeline(ctx, cmd.OutOrStdout(), cfg, reloads, metricsListener, reg, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("collector error: %w", err)
	}
	log.Info("collector stopped")
	return nil
}

// runPipeline tails the inputs of cfg and writes their entries to w until ctx
// is done. Configurations received on reloads are applied in place.
func runPipeline(ctx context.Context, w io.Writer, cfg *config.Config, reloads <-chan *config.Config, metricsListener net.Listener, reg *prometheus.Registry, log logger.ILogger) error {
	entries := make(chan *model.LogEntry, inputBufferSize)
	replacements := make(chan *output)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runOutput(gCtx, entries, replacements, newOutput(cfg, w, log), log)
	})

	if metricsListener != nil {
		g.Go(func() error {
			return serveMetrics(gCtx, metricsListener, reg, log)
		})
	}

	// Inputs were validated with the configuration, their own check stays quiet.
	manager := newInputManager(gCtx, fileinput.NewValidator(nil), entries, log)
	if err := manager.Apply(cfg); err != nil {
		manager.StopAll()
		g.Go(func() error {
			return fmt.Errorf("starting inputs: %w", err)
		})
		return g.Wait()
	}

	g.Go(func() error {
		defer manager.StopAll()

		current := cfg
		for {
			select {
			case newCfg := <-reloads:
				if !reflect.DeepEqual(current.Output, newCfg.Output) || !reflect.DeepEqual(current.Enricher, newCfg.Enricher) {
					select {
					case replacements <- newOutput(newCfg, w, log):
					case <-gCtx.Done():
						return gCtx.Err()
					}
				}
				if err := manager.Apply(newCfg); err != nil {
					log.Errorf("some file inputs failed to start: %v", err)
				}
				current = newCfg
				log.Infof("configuration applied: inputs=%d", manager.Len())

			case <-gCtx.Done():
				return gCtx.Err()
			}
		}
	})

	return g.Wait()
}

func startConfigWatcher(ctx context.Context, cmd *cobra.Command, cfgFile string, validator *fileinput.Validator, reloads chan *config.Config, log logger.ILogger) {
	watcher := config.NewConfigWatcher(cfgFile, validator, log)
	if err := watcher.Start(ctx); err != nil {
		log.Warningf("failed to start config watcher: %v", err)
		return
	}

	log.Infof("hot-reload enabled: config=%s", cfgFile)

	go func() {
		for {
			select {
			case newCfg := <-watcher.Changes():
				applyCLIOverrides(cmd, newCfg)
				publish(reloads, newCfg)
			case err := <-watcher.Errors():
				log.Errorf("config rejected, keeping current inputs: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func handleSignals(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, cmd *cobra.Command, cfgFile string, validator *fileinput.Validator, reloads chan *config.Config, log logger.ILogger) {
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				log.Info("received SIGHUP, reloading config")
				newCfg, err := config.Load(cfgFile)
				if err == nil {
					applyCLIOverrides(cmd, newCfg)
					err = newCfg.Validate(validator)
				}
				if err != nil {
					log.Errorf("config rejected, keeping current inputs: %v", err)
					continue
				}
				publish(reloads, newCfg)
			case syscall.SIGINT, syscall.SIGTERM:
				log.Infof("received shutdown signal: %v", sig)
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// publish replaces a pending reload with the newer one.
func publish(reloads chan *config.Config, cfg *config.Config) {
	for {
		select {
		case reloads <- cfg:
			return
		default:
		}
		select {
		case <-reloads:
		default:
		}
	}
}

func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		cfg.Output.Format = format
	}
}
