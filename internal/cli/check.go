package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/edix/internal/compiler"
	"github.com/roach88/edix/internal/ir"
)

// CheckResult holds catalog check results.
type CheckResult struct {
	Valid         bool                       `json:"valid"`
	Backends      int                        `json:"backends"`
	ExchangeTypes int                        `json:"exchange_types"`
	Errors        []compiler.ValidationError `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <catalog-dir>",
		Short: "Validate a CUE exchange catalog",
		Long: `Validate the backend types, webservices, backends and exchange types
declared in a CUE catalog.

Reports every validation error found, not just the first.

Exit codes:
  0 - Catalog valid
  1 - Validation errors
  2 - Catalog could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, catalogDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := loadForCommand(formatter, catalogDir)
	if err != nil {
		return err
	}

	if len(loaded.Errors) > 0 {
		return outputValidationErrors(formatter, loaded.Errors)
	}

	result := CheckResult{
		Valid:         true,
		Backends:      len(loaded.Spec.Backends),
		ExchangeTypes: len(loaded.Spec.ExchangeTypes),
	}
	text := fmt.Sprintf("✓ Catalog valid: %d backend(s), %d exchange type(s)", result.Backends, result.ExchangeTypes)
	return formatter.Success(result, text)
}

// loadForCommand loads a catalog directory, reporting load errors
// (directory not found, no files, CUE errors) as command errors.
func loadForCommand(formatter *OutputFormatter, catalogDir string) (*LoadResult, error) {
	loaded, err := LoadCatalogDir(catalogDir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return nil, formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Error(), nil)
		}
		return nil, formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, catalogDir)
	for _, b := range loaded.Spec.Backends {
		formatter.VerboseLog("Backend %s (%s)", b.Code, b.Type)
	}
	for _, et := range loaded.Spec.ExchangeTypes {
		formatter.VerboseLog("Exchange type %s.%s (%s)", et.Backend, et.Code, et.Direction)
	}
	return loaded, nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   CheckResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	return exitErr
}

// describeType renders an exchange type for text output.
func describeType(et ir.ExchangeType) string {
	return fmt.Sprintf("%s.%s (%s)", et.Backend, et.Code, et.Direction)
}
