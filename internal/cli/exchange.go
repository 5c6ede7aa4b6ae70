package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/edix/internal/component"
	"github.com/roach88/edix/internal/engine"
	"github.com/roach88/edix/internal/ir"
	"github.com/roach88/edix/internal/store"
)

// OperationResult is the result of send, receive or process on one record.
type OperationResult struct {
	RecordID string `json:"record_id"`
	Outcome  string `json:"outcome,omitempty"`
	State    string `json:"state,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchOutput is the result of an operation over several records.
type BatchOutput struct {
	Op      string              `json:"op"`
	Results []OperationResult   `json:"results"`
	Summary engine.BatchSummary `json:"summary"`
}

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	NoStore bool
}

// GenerateResult is the output of generate.
type GenerateResult struct {
	RecordID string `json:"record_id"`
	State    string `json:"state"`
	Stored   bool   `json:"stored"`
	Content  string `json:"content"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <record-id>",
		Short: "Generate the payload of an outbound record",
		Long: `Run the generate component of a new outbound record.

The output is attached and the record moves to output_pending, unless
--no-store is given, in which case the output is only printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "print the output without attaching it")

	return cmd
}

func runGenerate(opts *GenerateOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	app, err := openApp(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	rec, err := app.Store.ReadRecord(ctx, id)
	if err != nil {
		return formatter.FailOperation(err)
	}

	content, err := app.Backend.GenerateOutput(ctx, rec, !opts.NoStore)
	if err != nil {
		return failGenerate(formatter, err)
	}

	result := GenerateResult{
		RecordID: rec.ID,
		State:    string(rec.State),
		Stored:   !opts.NoStore && content != "",
		Content:  content,
	}
	if formatter.JSON() {
		return formatter.Success(result, "")
	}
	formatter.VerboseLog("Record %s is %s", rec.ID, rec.State)
	return formatter.Success(nil, strings.TrimRight(content, "\n"))
}

// failGenerate reports a generate error. Errors raised by the generate
// or validate component itself are lifecycle failures.
func failGenerate(formatter *OutputFormatter, err error) error {
	if engine.IsInvalidState(err) || engine.IsUnknownType(err) || component.IsDispatchError(err) {
		return formatter.FailOperation(err)
	}
	return formatter.Fail(ExitFailure, ErrCodeStrategyFailed, err.Error(), nil)
}

// ExchangeOptions holds flags for send, receive and process.
type ExchangeOptions struct {
	*RootOptions
	Pending bool   // run on every pending record
	Type    string // restrict --pending to an exchange type
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	return newExchangeCommand(rootOpts, ir.OpSend, "Send outbound records",
		`Send outbound records in output_pending or output_error_on_send.

A failed send is recorded on the record, which moves to
output_error_on_send; sending it again retries. A record already sent
is skipped.`)
}

// NewReceiveCommand creates the receive command.
func NewReceiveCommand(rootOpts *RootOptions) *cobra.Command {
	return newExchangeCommand(rootOpts, ir.OpReceive, "Receive inbound records",
		`Fetch the payload of new inbound records.

The content is validated when the exchange type declares a validate
component. A received record moves to input_received; on failure it
stays new with the error recorded.`)
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	return newExchangeCommand(rootOpts, ir.OpProcess, "Process received inbound records",
		`Process inbound records in input_received or input_processed_error.

A failed process moves the record to input_processed_error; processing
it again retries. A processed record is skipped.`)
}

func newExchangeCommand(rootOpts *RootOptions, op ir.Operation, short, long string) *cobra.Command {
	opts := &ExchangeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   string(op) + " [record-id...]",
		Short: short,
		Long: long + `

Exit codes:
  0 - Every record succeeded or was skipped
  1 - A record failed or was not in a state allowing the operation
  2 - Command error (unknown record, bad config, etc.)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Pending == (len(args) > 0) {
				return NewExitError(ExitCommandError, "give record IDs or --pending, not both")
			}
			return runExchange(opts, op, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Pending, "pending", false, "run on every record awaiting "+string(op))
	cmd.Flags().StringVar(&opts.Type, "type", "", "exchange type code (with --pending)")

	return cmd
}

func runExchange(opts *ExchangeOptions, op ir.Operation, ids []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	app, err := openApp(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	var records []*ir.ExchangeRecord
	if opts.Pending {
		records, err = app.Exchanger.Pending(ctx, app.Store, op, opts.Type)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
	} else {
		for _, id := range ids {
			rec, err := app.Store.ReadRecord(ctx, id)
			if err != nil {
				return formatter.FailOperation(err)
			}
			records = append(records, rec)
		}
	}

	if len(records) == 1 && !opts.Pending {
		return outputSingle(formatter, app, op, records[0], cmd)
	}

	results, err := app.Exchanger.Batch(ctx, op, records)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	return outputBatch(formatter, op, records, results)
}

func outputSingle(formatter *OutputFormatter, app *App, op ir.Operation, rec *ir.ExchangeRecord, cmd *cobra.Command) error {
	var (
		out engine.Outcome
		err error
	)
	switch op {
	case ir.OpSend:
		out, err = app.Backend.Send(cmd.Context(), rec)
	case ir.OpReceive:
		out, err = app.Backend.Receive(cmd.Context(), rec)
	default:
		out, err = app.Backend.Process(cmd.Context(), rec)
	}
	if err != nil {
		return formatter.FailOperation(err)
	}

	result := newOperationResult(rec, out, nil)
	if out.Status == engine.Failed {
		if formatter.JSON() {
			_ = formatter.encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: ErrCodeStrategyFailed, Message: result.Error},
			})
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s %s failed: %s\n", op, rec.ID, result.Error)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeStrategyFailed, result.Error))
	}

	text := fmt.Sprintf("✓ %s %s: %s (%s)", op, rec.ID, out.Status, rec.State)
	return formatter.Success(result, text)
}

func outputBatch(formatter *OutputFormatter, op ir.Operation, records []*ir.ExchangeRecord, results []engine.BatchResult) error {
	output := BatchOutput{
		Op:      string(op),
		Results: make([]OperationResult, len(results)),
		Summary: engine.Summarize(results),
	}

	var b strings.Builder
	for i, r := range results {
		res := newOperationResult(records[i], r.Outcome, r.Err)
		output.Results[i] = res
		mark := "✓"
		if res.Error != "" {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s %s %s", mark, res.RecordID, res.Outcome)
		if res.Error != "" {
			fmt.Fprintf(&b, ": %s", res.Error)
		}
		b.WriteByte('\n')
	}
	s := output.Summary
	fmt.Fprintf(&b, "\n%s summary: %d succeeded, %d failed, %d skipped, %d error(s)", op, s.Succeeded, s.Failed, s.Skipped, s.Errors)

	if s.Failed+s.Errors > 0 {
		message := fmt.Sprintf("%d of %d record(s) did not %s", s.Failed+s.Errors, len(results), op)
		if formatter.JSON() {
			_ = formatter.encode(CLIResponse{
				Status: "error",
				Data:   output,
				Error:  &CLIError{Code: ErrCodeStrategyFailed, Message: message},
			})
		} else {
			fmt.Fprintln(formatter.Writer, b.String())
		}
		return NewExitError(ExitFailure, message)
	}
	return formatter.Success(output, b.String())
}

func newOperationResult(rec *ir.ExchangeRecord, out engine.Outcome, err error) OperationResult {
	res := OperationResult{RecordID: rec.ID, Outcome: string(out.Status), State: string(rec.State)}
	switch {
	case err != nil:
		res.Outcome = ""
		res.Error = err.Error()
	case out.Err != nil:
		res.Error = out.Err.Error()
	}
	return res
}

var _ engine.RecordLister = (*store.Store)(nil)
