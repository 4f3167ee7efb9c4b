package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldEventType tags records that mark lifecycle events (stage_start, job_timeout, ...).
	FieldEventType = "event_type"
	// FieldErrorHint carries a remediation hint alongside an error record.
	FieldErrorHint = "error_hint"
	// FieldCorrelationID is the standardized structured logging key for run correlation identifiers.
	FieldCorrelationID = "correlation_id"
)
