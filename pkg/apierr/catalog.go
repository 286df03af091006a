package apierr

import "net/http"

// --- Common ---

func InvalidRequestBody() *Error {
	return New(CodeInvalidRequestBody, http.StatusBadRequest, "Invalid request body")
}

func InternalError(cause error) *Error {
	return Wrap(CodeInternalError, http.StatusInternalServerError, "Internal server error", cause)
}

func DatabaseNotReady() *Error {
	return New(CodeDatabaseNotReady, http.StatusServiceUnavailable, "Database is not ready")
}

func QueueUnavailable() *Error {
	return New(CodeQueueUnavailable, http.StatusServiceUnavailable, "Run queue is not configured")
}

func GraphUnavailable() *Error {
	return New(CodeGraphUnavailable, http.StatusServiceUnavailable, "Template graph is not configured")
}

// --- Run ---

func RunNotFound() *Error {
	return New(CodeRunNotFound, http.StatusNotFound, "Run not found")
}

func InvalidRunID() *Error {
	return New(CodeInvalidRunID, http.StatusBadRequest, "Invalid run ID")
}

func InvalidPipelineID() *Error {
	return New(CodeInvalidPipelineID, http.StatusBadRequest, "only_pipeline must be a pipeline identifier")
}

func RunCreateFailed(cause error) *Error {
	return Wrap(CodeRunCreateFailed, http.StatusInternalServerError, "Failed to create run", cause)
}

func RunEnqueueFailed(cause error) *Error {
	return Wrap(CodeRunEnqueueFailed, http.StatusInternalServerError, "Failed to enqueue run", cause)
}

func RunListFailed(cause error) *Error {
	return Wrap(CodeRunListFailed, http.StatusInternalServerError, "Failed to list runs", cause)
}

// --- Results ---

func RecordListFailed(cause error) *Error {
	return Wrap(CodeRecordListFailed, http.StatusInternalServerError, "Failed to list pipeline records", cause)
}

func ErrorListFailed(cause error) *Error {
	return Wrap(CodeErrorListFailed, http.StatusInternalServerError, "Failed to list pipeline errors", cause)
}

func TemplateListFailed(cause error) *Error {
	return Wrap(CodeTemplateListFailed, http.StatusInternalServerError, "Failed to list template usage", cause)
}

func SummaryCorrupt(cause error) *Error {
	return Wrap(CodeSummaryCorrupt, http.StatusInternalServerError, "Stored run summary is unreadable", cause)
}

func GraphQueryFailed(cause error) *Error {
	return Wrap(CodeGraphQueryFailed, http.StatusInternalServerError, "Template graph query failed", cause)
}
