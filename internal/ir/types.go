package ir

import "time"

// Direction tells whether a record is produced here or received from a partner.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ValidDirections defines allowed exchange directions.
var ValidDirections = map[Direction]bool{
	DirectionInbound:  true,
	DirectionOutbound: true,
}

// BackendType classifies backends. Components can be restricted to one type.
type BackendType struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Backend is a named integration context and the root of component lookup.
type Backend struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Type           string `json:"type"`                      // BackendType.Code
	FilenamePrefix string `json:"filename_prefix,omitempty"` // defaults to "EDI_EXC_" + upper(code)
	Webservice     string `json:"webservice,omitempty"`      // WebserviceConfig.Code
}

// ExchangeType declares one document kind handled by a backend.
type ExchangeType struct {
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	Backend         string     `json:"backend"`
	Direction       Direction  `json:"direction"`
	FileExt         string     `json:"file_ext,omitempty"`
	FilenamePattern string     `json:"filename_pattern,omitempty"`
	Components      Components `json:"components"`
}

// Components holds the usage keys of the components serving each operation.
// An empty usage means the conventional key, see ExchangeType.Usage.
type Components struct {
	Generate string `json:"generate,omitempty"`
	Send     string `json:"send,omitempty"`
	Receive  string `json:"receive,omitempty"`
	Validate string `json:"validate,omitempty"`
	Process  string `json:"process,omitempty"`
}

// Operation names a lifecycle operation.
type Operation string

const (
	OpGenerate Operation = "generate"
	OpSend     Operation = "send"
	OpReceive  Operation = "receive"
	OpValidate Operation = "validate"
	OpProcess  Operation = "process"
)

// Usage returns the component usage key for op.
// Falls back to "edi.<direction>.<op>.<type code>" when the type
// does not declare one.
func (t ExchangeType) Usage(op Operation) string {
	var usage string
	switch op {
	case OpGenerate:
		usage = t.Components.Generate
	case OpSend:
		usage = t.Components.Send
	case OpReceive:
		usage = t.Components.Receive
	case OpValidate:
		usage = t.Components.Validate
	case OpProcess:
		usage = t.Components.Process
	}
	if usage != "" {
		return usage
	}
	return "edi." + string(t.Direction) + "." + string(op) + "." + t.Code
}

// WebserviceConfig describes a remote endpoint used by send components.
type WebserviceConfig struct {
	Code        string        `json:"code"`
	Protocol    string        `json:"protocol"`
	URL         string        `json:"url"`
	ContentType string        `json:"content_type,omitempty"`
	Username    string        `json:"username,omitempty"`
	Password    string        `json:"-"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// EntityRef points to the business record an exchange concerns.
// Kind is the model name (e.g. "sale.order"), ID its identifier.
type EntityRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// IsZero reports whether the reference is unset.
func (r EntityRef) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// String renders the reference as "kind:id".
func (r EntityRef) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Kind + ":" + r.ID
}

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one message attached to a related entity's activity log.
type Notification struct {
	RecordID string    `json:"record_id"`
	Backend  string    `json:"backend"`
	Type     string    `json:"type"`
	Related  EntityRef `json:"related"`
	Level    Level     `json:"level"`
	Message  string    `json:"message"`
	State    State     `json:"state"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}
