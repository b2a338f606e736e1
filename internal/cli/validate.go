package cli

import (
	"errors"
	"fmt"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/spf13/cobra"

	"github.com/tilaka3/collector/internal/config"
	"github.com/tilaka3/collector/internal/fileinput"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long: `Validate every file input of the configuration file.

Each input reports the first problem found. Warnings, such as an input directory
that is not readable yet, are logged but do not fail validation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			// Warnings are operator output here, not agent logs
			log := logger.NewConsoleLogger(cmd.ErrOrStderr())
			log.SetLevel(logger.LevelWarning)
			validator := fileinput.NewValidator(fileinput.NewLoggerSink(log))

			var verr *config.ValidationError
			if err := cfg.Validate(validator); err != nil && !errors.As(err, &verr) {
				return fmt.Errorf("configuration error: %w", err)
			}

			out := cmd.OutOrStdout()
			failed := make(map[int]*fileinput.Violation)
			if verr != nil {
				for _, v := range verr.Constraints {
					fmt.Fprintf(out, "FAIL  %s: %s\n", v.Field, v.Error())
				}
				for _, f := range verr.Inputs {
					failed[f.Index] = f.Violation
				}
			}

			for i, input := range cfg.Inputs.File {
				if violation, ok := failed[i]; ok {
					fmt.Fprintf(out, "FAIL  %s: %s\n", input.Name, violation.Error())
					continue
				}
				fmt.Fprintf(out, "OK    %s\n", input.Name)
			}

			if verr != nil {
				return fmt.Errorf("configuration invalid: %d problem(s) found", verr.Problems())
			}

			fmt.Fprintf(out, "Configuration valid: %d file input(s)\n", len(cfg.Inputs.File))
			return nil
		},
	}
}
