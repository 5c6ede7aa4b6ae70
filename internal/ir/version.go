package ir

// Version constants for the record schema and engine.
const (
	// SchemaVersion is the persisted exchange record schema version.
	SchemaVersion = "1"

	// EngineVersion is the edix engine version.
	EngineVersion = "0.1.0"
)
