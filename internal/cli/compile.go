package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/edix/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <catalog-dir>",
		Short: "Compile a CUE catalog to JSON",
		Long: `Compile and validate a CUE exchange catalog and print it as JSON.

Backend type codes are normalized and defaults filled in, so the output
shows the catalog exactly as the engine sees it. Webservice passwords are
never written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, catalogDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := loadForCommand(formatter, catalogDir)
	if err != nil {
		return err
	}
	if len(loaded.Errors) > 0 {
		return outputValidationErrors(formatter, loaded.Errors)
	}

	if opts.Output != "" {
		if err := writeCatalogFile(loaded.Spec, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if formatter.JSON() {
		return formatter.Success(loaded.Spec, "")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✓ Compiled %d backend(s), %d exchange type(s)\n", len(loaded.Spec.Backends), len(loaded.Spec.ExchangeTypes))
	for _, et := range loaded.Spec.ExchangeTypes {
		fmt.Fprintf(&b, "  %s\n", describeType(et))
		for _, op := range []ir.Operation{ir.OpGenerate, ir.OpSend, ir.OpReceive, ir.OpValidate, ir.OpProcess} {
			if op == ir.OpGenerate || op == ir.OpSend {
				if et.Direction != ir.DirectionOutbound {
					continue
				}
			} else if et.Direction != ir.DirectionInbound {
				continue
			}
			fmt.Fprintf(&b, "    %-8s %s\n", op, et.Usage(op))
		}
	}
	if opts.Output != "" {
		fmt.Fprintf(&b, "Wrote catalog to %s\n", opts.Output)
	}
	return formatter.Success(nil, strings.TrimRight(b.String(), "\n"))
}

// writeCatalogFile writes the compiled catalog as indented JSON.
func writeCatalogFile(spec ir.CatalogSpec, filename string) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
