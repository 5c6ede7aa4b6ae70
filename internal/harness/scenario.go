package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/edix/internal/engine"
	"github.com/roach88/edix/internal/ir"
)

// Scenario drives exchange records through a scripted lifecycle.
//
// Strategies are stubs with scripted behaviour; the engine, store and
// notifications are real. Clock and record IDs are deterministic, so the
// trace of a scenario is stable enough for golden comparison.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is a CUE catalog directory, relative to the scenario file.
	// Empty uses the demo catalog (backend "demo", types orders_out and
	// orders_in).
	Catalog string `yaml:"catalog,omitempty"`

	// Backend is the backend code. Defaults to "demo".
	Backend string `yaml:"backend,omitempty"`

	// Stubs are the strategies available to the steps.
	Stubs []StubSpec `yaml:"stubs,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the state after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// StubSpec registers one scripted strategy.
type StubSpec struct {
	// Name identifies the stub in stub steps and assertions.
	Name string `yaml:"name"`

	// Usage is the component usage key served by the stub. When empty it
	// is derived from Op and Type with ir.ExchangeType.Usage.
	Usage string `yaml:"usage,omitempty"`
	Op    string `yaml:"op,omitempty"`
	Type  string `yaml:"type,omitempty"`

	// Content is returned by generate and receive.
	Content string `yaml:"content,omitempty"`

	// Error makes the stub fail with this message.
	Error string `yaml:"error,omitempty"`

	// ExternalID is set on the record by validate.
	ExternalID string `yaml:"external_id,omitempty"`

	// Panic makes the stub panic with this value.
	Panic string `yaml:"panic,omitempty"`
}

// Step is one scenario action.
type Step struct {
	// Op is create, generate, send, receive, process, stub or advance.
	Op string `yaml:"op"`

	// Record is the scenario alias of the record the step acts on.
	Record string `yaml:"record,omitempty"`

	// create fields.
	Type     string `yaml:"type,omitempty"`
	State    string `yaml:"state,omitempty"`
	File     string `yaml:"file,omitempty"`
	Filename string `yaml:"filename,omitempty"`
	Related  string `yaml:"related,omitempty"` // "kind:id"

	// NoStore runs generate without attaching the output.
	NoStore bool `yaml:"no_store,omitempty"`

	// stub fields: rescript the named stub. A nil field is left as is;
	// an empty Error clears the failure.
	Stub    string  `yaml:"stub,omitempty"`
	Error   *string `yaml:"error,omitempty"`
	Content *string `yaml:"content,omitempty"`

	// Duration moves the clock forward (advance).
	Duration string `yaml:"duration,omitempty"`

	// Expect checks the step result.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks the result of a step. Empty fields are not checked.
type Expect struct {
	// Outcome is skipped, succeeded or failed (send, receive, process).
	Outcome string `yaml:"outcome,omitempty"`

	// State is the record state after the step.
	State string `yaml:"state,omitempty"`

	// Error is a substring of the error returned by the step.
	Error string `yaml:"error,omitempty"`

	// Code is the engine error code of the returned error.
	Code string `yaml:"code,omitempty"`

	// RecordError is a substring of the error stored on the record.
	RecordError string `yaml:"record_error,omitempty"`

	// Content is the generated content (generate).
	Content *string `yaml:"content,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is record, trace_count, stub_calls or activity_count.
	Type string `yaml:"type"`

	// record: alias and expected fields.
	Record     string  `yaml:"record,omitempty"`
	State      string  `yaml:"state,omitempty"`
	ExternalID *string `yaml:"external_id,omitempty"`
	File       *string `yaml:"file,omitempty"`
	Exchanged  *bool   `yaml:"exchanged,omitempty"`

	// trace_count: steps with Op and, when set, Outcome.
	Op      string `yaml:"op,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`

	// stub_calls: stub name.
	Stub string `yaml:"stub,omitempty"`

	// activity_count: related entity "kind:id".
	Related string `yaml:"related,omitempty"`

	Count int `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpCreate   = "create"
	OpGenerate = "generate"
	OpSend     = "send"
	OpReceive  = "receive"
	OpProcess  = "process"
	OpStub     = "stub"
	OpAdvance  = "advance"
)

// Assertion types.
const (
	AssertRecord        = "record"
	AssertTraceCount    = "trace_count"
	AssertStubCalls     = "stub_calls"
	AssertActivityCount = "activity_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Catalog is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog not found: %s", s.Catalog)
		}
	}

	stubs := make(map[string]bool, len(s.Stubs))
	for i, st := range s.Stubs {
		if st.Name == "" {
			return fmt.Errorf("stubs[%d]: name is required", i)
		}
		if stubs[st.Name] {
			return fmt.Errorf("stubs[%d]: duplicate stub %q", i, st.Name)
		}
		stubs[st.Name] = true
		if st.Usage == "" && (st.Op == "" || st.Type == "") {
			return fmt.Errorf("stubs[%d]: usage or op and type are required", i)
		}
	}

	created := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, step, created, stubs); err != nil {
			return err
		}
		if step.Op == OpCreate {
			created[step.Record] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, created, stubs); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, created, stubs map[string]bool) error {
	switch step.Op {
	case OpCreate:
		if step.Record == "" {
			return fmt.Errorf("steps[%d]: record alias is required for create", i)
		}
		if created[step.Record] {
			return fmt.Errorf("steps[%d]: record %q already created", i, step.Record)
		}
		if step.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for create", i)
		}
		if step.State != "" {
			if _, err := ir.ParseState(step.State); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
		if step.Related != "" {
			if _, err := ParseEntityRef(step.Related); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
	case OpGenerate, OpSend, OpReceive, OpProcess:
		if !created[step.Record] {
			return fmt.Errorf("steps[%d]: unknown record %q", i, step.Record)
		}
	case OpStub:
		if !stubs[step.Stub] {
			return fmt.Errorf("steps[%d]: unknown stub %q", i, step.Stub)
		}
	case OpAdvance:
		if _, err := time.ParseDuration(step.Duration); err != nil {
			return fmt.Errorf("steps[%d]: invalid duration %q", i, step.Duration)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if e := step.Expect; e != nil {
		switch e.Outcome {
		case "", string(engine.Skipped), string(engine.Succeeded), string(engine.Failed):
		default:
			return fmt.Errorf("steps[%d].expect: unknown outcome %q", i, e.Outcome)
		}
		if e.State != "" {
			if _, err := ir.ParseState(e.State); err != nil {
				return fmt.Errorf("steps[%d].expect: %w", i, err)
			}
		}
	}
	return nil
}

func validateAssertion(i int, a Assertion, created, stubs map[string]bool) error {
	switch a.Type {
	case AssertRecord:
		if !created[a.Record] {
			return fmt.Errorf("assertions[%d]: unknown record %q", i, a.Record)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", i)
		}
	case AssertStubCalls:
		if !stubs[a.Stub] {
			return fmt.Errorf("assertions[%d]: unknown stub %q", i, a.Stub)
		}
	case AssertActivityCount:
		if _, err := ParseEntityRef(a.Related); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", i)
	}
	return nil
}

// ParseEntityRef parses "kind:id".
func ParseEntityRef(s string) (ir.EntityRef, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || kind == "" || id == "" {
		return ir.EntityRef{}, fmt.Errorf("invalid entity reference %q, want kind:id", s)
	}
	return ir.EntityRef{Kind: kind, ID: id}, nil
}
