package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID identifies the job whose log a record concerns.
	FieldJobID = "job_id"
	// FieldCommand carries the argument vector of an executed tool.
	FieldCommand = "command"
	// FieldExitStatus carries a child process exit status.
	FieldExitStatus = "exit_status"
	// FieldEventType classifies a record for machine filtering.
	FieldEventType = "event_type"
	// FieldErrorHint is a short next-step suggestion attached to warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldPath is a filesystem path relevant to the record.
	FieldPath = "path"
)
