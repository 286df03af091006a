package apierr

// Code is a machine-readable error code returned in API responses.
type Code string

// Common errors.
const (
	CodeInvalidRequestBody Code = "INVALID_REQUEST_BODY"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeDatabaseNotReady   Code = "DATABASE_NOT_READY"
	CodeQueueUnavailable   Code = "QUEUE_UNAVAILABLE"
	CodeGraphUnavailable   Code = "GRAPH_UNAVAILABLE"
)

// Run errors.
const (
	CodeRunNotFound       Code = "RUN_NOT_FOUND"
	CodeInvalidRunID      Code = "INVALID_RUN_ID"
	CodeRunCreateFailed   Code = "RUN_CREATE_FAILED"
	CodeRunEnqueueFailed  Code = "RUN_ENQUEUE_FAILED"
	CodeRunListFailed     Code = "RUN_LIST_FAILED"
	CodeInvalidPipelineID Code = "INVALID_PIPELINE_ID"
)

// Result errors.
const (
	CodeRecordListFailed   Code = "RECORD_LIST_FAILED"
	CodeErrorListFailed    Code = "ERROR_LIST_FAILED"
	CodeTemplateListFailed Code = "TEMPLATE_LIST_FAILED"
	CodeSummaryCorrupt     Code = "SUMMARY_CORRUPT"
	CodeGraphQueryFailed   Code = "GRAPH_QUERY_FAILED"
)
