package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/edix/internal/engine"
	"github.com/roach88/edix/internal/harness"
	"github.com/roach88/edix/internal/ir"
	"github.com/roach88/edix/internal/store"
)

// RecordView is the CLI rendering of an exchange record.
// Content is only filled when asked for.
type RecordView struct {
	ID                 string     `json:"id"`
	Backend            string     `json:"backend"`
	Type               string     `json:"type"`
	Direction          string     `json:"direction"`
	State              string     `json:"state"`
	Filename           string     `json:"filename"`
	HasFile            bool       `json:"has_file"`
	Error              string     `json:"error,omitempty"`
	ExternalIdentifier string     `json:"external_identifier,omitempty"`
	Related            string     `json:"related,omitempty"`
	ExchangedAt        *time.Time `json:"exchanged_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Content            *string    `json:"content,omitempty"`
}

func newRecordView(rec *ir.ExchangeRecord, withContent bool) RecordView {
	v := RecordView{
		ID:                 rec.ID,
		Backend:            rec.Backend,
		Type:               rec.Type,
		Direction:          string(rec.Direction),
		State:              string(rec.State),
		Filename:           rec.Filename,
		HasFile:            rec.HasFile(),
		Error:              rec.ErrorText(),
		ExternalIdentifier: rec.ExternalIdentifier,
		Related:            rec.Related.String(),
		ExchangedAt:        rec.ExchangedAt,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	if withContent {
		content := rec.Content()
		v.Content = &content
	}
	return v
}

// recordText renders a record as aligned key/value lines.
func recordText(v RecordView) string {
	var b strings.Builder
	line := func(k, val string) {
		if val != "" {
			fmt.Fprintf(&b, "%-12s %s\n", k+":", val)
		}
	}
	line("ID", v.ID)
	line("Type", fmt.Sprintf("%s.%s (%s)", v.Backend, v.Type, v.Direction))
	line("State", v.State)
	line("Filename", v.Filename)
	line("Related", v.Related)
	line("External ID", v.ExternalIdentifier)
	line("Error", v.Error)
	line("Created", v.CreatedAt.Format(time.RFC3339))
	if v.ExchangedAt != nil {
		line("Exchanged", v.ExchangedAt.Format(time.RFC3339))
	}
	if v.Content != nil {
		fmt.Fprintf(&b, "\n%s", *v.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	File       string // payload file path
	Content    string // payload given inline
	Filename   string
	State      string
	ExternalID string
	Related    string // kind:id
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <exchange-type>",
		Short: "Create an exchange record",
		Long: `Create an exchange record of a declared exchange type.

The direction comes from the exchange type. Records start in state new;
an inbound record whose file arrived out-of-band may start in
input_received with --state and --file.

Examples:
  edix create orders_out --related sale.order:SO042
  edix create orders_in --state input_received --file ./order.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "read the payload from this file")
	cmd.Flags().StringVar(&opts.Content, "content", "", "payload given inline")
	cmd.Flags().StringVar(&opts.Filename, "filename", "", "filename (default from the exchange type pattern)")
	cmd.Flags().StringVar(&opts.State, "state", "", "initial state (new or input_received)")
	cmd.Flags().StringVar(&opts.ExternalID, "external-id", "", "external identifier")
	cmd.Flags().StringVar(&opts.Related, "related", "", "related entity as kind:id")
	cmd.MarkFlagsMutuallyExclusive("file", "content")

	return cmd
}

func runCreate(opts *CreateOptions, typeCode string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	in := engine.RecordInput{Filename: opts.Filename, ExternalIdentifier: opts.ExternalID}
	switch {
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("read payload: %v", err), nil)
		}
		in.File = data
	case opts.Content != "":
		in.File = []byte(opts.Content)
	}
	if opts.State != "" {
		state, err := ir.ParseState(opts.State)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		in.State = state
	}
	if opts.Related != "" {
		ref, err := harness.ParseEntityRef(opts.Related)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		in.Related = ref
	}

	app, err := openApp(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer app.Close()

	rec, err := app.Backend.CreateRecord(cmd.Context(), typeCode, in)
	if err != nil {
		return formatter.FailOperation(err)
	}

	v := newRecordView(rec, false)
	return formatter.Success(v, fmt.Sprintf("✓ Created %s\n%s", rec.ID, recordText(v)))
}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Content bool
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "show <record-id>",
		Short:         "Show an exchange record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			app, err := openApp(opts.RootOptions, cmd, formatter)
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.Store.ReadRecord(cmd.Context(), args[0])
			if err != nil {
				return formatter.FailOperation(err)
			}
			v := newRecordView(rec, opts.Content)
			return formatter.Success(v, recordText(v))
		},
	}

	cmd.Flags().BoolVar(&opts.Content, "content", false, "include the payload")

	return cmd
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Type      string
	Direction string
	States    []string
	Related   string // kind:id
	Limit     int
}

// ListResult holds the records matched by list.
type ListResult struct {
	Records []RecordView `json:"records"`
	Total   int          `json:"total"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List exchange records of the backend",
		Long: `List exchange records of the backend, oldest first.

Examples:
  edix list --related sale.order:SO042
  edix list --type orders_out --state output_error_on_send`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "exchange type code")
	cmd.Flags().StringVar(&opts.Direction, "direction", "", "inbound or outbound")
	cmd.Flags().StringSliceVar(&opts.States, "state", nil, "states to include (repeatable)")
	cmd.Flags().StringVar(&opts.Related, "related", "", "related entity as kind:id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of records")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	filter := store.RecordFilter{Type: opts.Type, Limit: opts.Limit}
	if opts.Direction != "" {
		d := ir.Direction(opts.Direction)
		if !ir.ValidDirections[d] {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid direction %q", opts.Direction), nil)
		}
		filter.Direction = d
	}
	for _, s := range opts.States {
		state, err := ir.ParseState(s)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		filter.States = append(filter.States, state)
	}
	if opts.Related != "" {
		ref, err := harness.ParseEntityRef(opts.Related)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		filter.Related = ref
	}

	app, err := openApp(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer app.Close()
	filter.Backend = app.Backend.Code()

	records, err := app.Store.ListRecords(cmd.Context(), filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	result := ListResult{Records: make([]RecordView, len(records)), Total: len(records)}
	var b strings.Builder
	for i, rec := range records {
		result.Records[i] = newRecordView(rec, false)
		fmt.Fprintf(&b, "%s  %-10s %-22s %s\n", rec.ID, rec.Type, rec.State, rec.Filename)
	}
	fmt.Fprintf(&b, "%d record(s)", len(records))
	return formatter.Success(result, b.String())
}

// ActivityView is one activity log entry.
type ActivityView struct {
	Seq      int64     `json:"seq"`
	RecordID string    `json:"record_id"`
	Type     string    `json:"type"`
	Level    string    `json:"level"`
	Message  string    `json:"message"`
	State    string    `json:"state"`
	At       time.Time `json:"at"`
}

// LogResult holds the activity log of an entity.
type LogResult struct {
	Related string         `json:"related"`
	Entries []ActivityView `json:"entries"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <kind:id>",
		Short: "Show the exchange activity logged on an entity",
		Long: `Show the notifications exchange operations attached to a related
entity, in the order they were logged.

Example:
  edix log sale.order:SO042`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runLog(opts *RootOptions, related string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ref, err := harness.ParseEntityRef(related)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	app, err := openApp(opts, cmd, formatter)
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.Store.ReadActivity(cmd.Context(), ref)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	result := LogResult{Related: ref.String(), Entries: make([]ActivityView, len(entries))}
	var b strings.Builder
	fmt.Fprintf(&b, "Activity on %s\n", ref)
	for i, e := range entries {
		result.Entries[i] = ActivityView{
			Seq:      e.Seq,
			RecordID: e.RecordID,
			Type:     e.Type,
			Level:    string(e.Level),
			Message:  e.Message,
			State:    string(e.State),
			At:       e.At,
		}
		fmt.Fprintf(&b, "  [%d] %-7s %s\n", e.Seq, strings.ToUpper(string(e.Level)), e.Message)
	}
	if len(entries) == 0 {
		b.WriteString("  (none)\n")
	}
	return formatter.Success(result, strings.TrimRight(b.String(), "\n"))
}
