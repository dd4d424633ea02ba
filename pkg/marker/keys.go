package marker

// Key names a field of the event record.
type Key = string

const (
	// Prefix is the common base for autopatch's journal fields.
	Prefix = "AUTOPATCH_"

	// ActionKey is the journal field carrying the event's action.
	ActionKey Key = Prefix + "ACTION"
	// ResultKey is the journal field carrying the event's result.
	ResultKey Key = Prefix + "RESULT"
	// ServiceKey is the journal field carrying the event's subject service.
	ServiceKey Key = Prefix + "SERVICE"
	// RunIDKey identifies every event belonging to a single invocation.
	RunIDKey Key = Prefix + "RUN_ID"
	// IdentifierKey is the syslog tag the journal forwards events under.
	IdentifierKey Key = "SYSLOG_IDENTIFIER"
)
