package ir

// Version constants for the value schema and engine.
const (
	// SchemaVersion is the version of the JSON value encoding (incl. $ident).
	SchemaVersion = "1"

	// EngineVersion is the viewq engine version.
	EngineVersion = "0.1.0"
)
