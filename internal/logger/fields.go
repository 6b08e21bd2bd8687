package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldArticleID is the generation request / article ID
	FieldArticleID = "article_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldProvider is the provider family serving a call
	FieldProvider = "provider"

	// FieldModel is the model identifier serving a call
	FieldModel = "model"

	// FieldStage is the pipeline stage (topic, outline, article, ...)
	FieldStage = "stage"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldTokens     = "tokens"
)
