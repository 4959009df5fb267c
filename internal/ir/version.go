package ir

// Version constants for the message schema and the host.
const (
	// SchemaVersion is the message/record schema version.
	SchemaVersion = "1"

	// HostVersion is the embedded host version recorded with every invocation.
	HostVersion = "0.1.0"
)
