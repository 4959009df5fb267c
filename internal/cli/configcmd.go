package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/factory/internal/config"
)

// ValidationError describes why a config file was rejected.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration commands run with: the --config file unified
with the built-in schema defaults, with --db applied.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			text, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd).Success(cfg, string(text))
		},
	}

	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a CUE config file",
		Long: `Check a config file against the schema without opening the database.

Errors carry the file, line and column they were found at.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	cmd.AddCommand(validate)
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.LoadFile(path)
	if err == nil {
		formatter.VerboseLog("database=%s prefix=%s label=%s", cfg.Database, cfg.AddressPrefix, cfg.Factory.Label)
		return formatter.Success(map[string]bool{"valid": true}, fmt.Sprintf("%s is valid", path))
	}

	verr := ValidationError{Message: err.Error()}
	var cerr *config.Error
	if errors.As(err, &cerr) {
		verr.Message = cerr.Message
		if cerr.Pos.IsValid() {
			verr.File = cerr.Pos.Filename()
			verr.Line = cerr.Pos.Line()
			verr.Column = cerr.Pos.Column()
		}
	}

	if err := formatter.Error("INVALID_CONFIG", verr.Message, verr); err != nil {
		return err
	}
	return WrapExitError(ExitFailure, "invalid config", err)
}
