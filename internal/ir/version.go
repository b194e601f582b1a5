package ir

// Version constants stamped on persisted runs.
const (
	// SchemaVersion is the version of the persisted rule layout.
	SchemaVersion = "1"

	// Version is the rxnmap release version.
	Version = "0.1.0"
)
