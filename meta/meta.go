// Package meta carries per-job metadata through context so that every log line
// and span produced while a file is being ingested can be correlated.
package meta

import "context"

// ContextKey is a type for keys used in context values for metadata.
type ContextKey string

const (
	// TraceID correlates all log entries produced by one job.
	TraceID ContextKey = "trace_id"

	// JobID identifies the upload job being processed.
	JobID ContextKey = "job_id"

	// FilePath is the absolute path of the file a job or poll cycle works on.
	FilePath ContextKey = "file_path"

	// Operation names the pipeline stage currently running.
	Operation ContextKey = "operation"

	// ServiceName identifies the name of current running service.
	ServiceName ContextKey = "service_name"

	// ServiceVersion indicates the version of the service.
	ServiceVersion ContextKey = "service_version"
)

// InjectMetaToContext adds metadata from the provided map to the context.
// It only adds values that are not empty strings and returns a new context
// with the added values.
func InjectMetaToContext(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // allow due to finite number of keys
		}
	}
	return ctx
}

// ExtractMetaFromContext extracts all metadata from the provided context.
// Only non-empty string values are included in the returned map.
func ExtractMetaFromContext(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	for _, k := range []ContextKey{
		TraceID,
		JobID,
		FilePath,
		Operation,
		ServiceName,
		ServiceVersion,
	} {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			data[k] = v
		}
	}
	return data
}
