package ir

import (
	"fmt"
	"time"
)

// ExchangeRecord is one inbound or outbound document tracked through the lifecycle.
type ExchangeRecord struct {
	ID                 string     `json:"id"`
	Backend            string     `json:"backend"`
	Type               string     `json:"type"`
	Direction          Direction  `json:"direction"`
	State              State      `json:"state"`
	File               []byte     `json:"file,omitempty"`
	Filename           string     `json:"filename"`
	Error              *string    `json:"error,omitempty"`
	ExternalIdentifier string     `json:"external_identifier,omitempty"`
	Related            EntityRef  `json:"related"`
	ExchangedAt        *time.Time `json:"exchanged_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Version is bumped on every persisted write (optimistic concurrency).
	Version int64 `json:"version"`
}

// StateError reports a state that is invalid for the record's direction.
type StateError struct {
	RecordID  string
	State     State
	Direction Direction
}

func (e *StateError) Error() string {
	return fmt.Sprintf("record %s: state %q is not allowed for %s records", e.RecordID, e.State, e.Direction)
}

// CheckState enforces the state/direction invariant.
func (r *ExchangeRecord) CheckState() error {
	if !ValidDirections[r.Direction] {
		return fmt.Errorf("record %s: invalid direction %q", r.ID, r.Direction)
	}
	if !r.State.Allowed(r.Direction) {
		return &StateError{RecordID: r.ID, State: r.State, Direction: r.Direction}
	}
	return nil
}

// HasFile reports whether a payload is attached.
func (r *ExchangeRecord) HasFile() bool {
	return len(r.File) > 0
}

// Content returns the payload as text.
func (r *ExchangeRecord) Content() string {
	return string(r.File)
}

// ErrorText returns the last failure detail, or "" if none.
func (r *ExchangeRecord) ErrorText() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// SetError records err as the last failure detail; nil clears it.
func (r *ExchangeRecord) SetError(err error) {
	if err == nil {
		r.Error = nil
		return
	}
	msg := err.Error()
	r.Error = &msg
}

// Clone returns a deep copy so callers can stage changes before persisting.
func (r *ExchangeRecord) Clone() *ExchangeRecord {
	c := *r
	if r.File != nil {
		c.File = append([]byte(nil), r.File...)
	}
	if r.Error != nil {
		msg := *r.Error
		c.Error = &msg
	}
	if r.ExchangedAt != nil {
		at := *r.ExchangedAt
		c.ExchangedAt = &at
	}
	return &c
}

// Message templates used for activity log entries.

func (r *ExchangeRecord) SentMessage() string {
	return fmt.Sprintf("Exchange %s (%s) sent.", r.Filename, r.Type)
}

func (r *ExchangeRecord) SendErrorMessage() string {
	return fmt.Sprintf("Exchange %s (%s) could not be sent: %s", r.Filename, r.Type, r.ErrorText())
}

func (r *ExchangeRecord) ProcessedMessage() string {
	return fmt.Sprintf("Exchange %s (%s) processed.", r.Filename, r.Type)
}

func (r *ExchangeRecord) ProcessErrorMessage() string {
	return fmt.Sprintf("Exchange %s (%s) could not be processed: %s", r.Filename, r.Type, r.ErrorText())
}

func (r *ExchangeRecord) ReceivedMessage() string {
	return fmt.Sprintf("Exchange %s (%s) received.", r.Filename, r.Type)
}

func (r *ExchangeRecord) ReceiveErrorMessage() string {
	return fmt.Sprintf("Exchange %s (%s) could not be received: %s", r.Filename, r.Type, r.ErrorText())
}
