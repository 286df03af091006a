package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ListPipelineErrorsParams are the parameters for the list_pipeline_errors tool.
type ListPipelineErrorsParams struct {
	RunID string `json:"run_id,omitempty"`
	// Org filters by organization identifier.
	Org string `json:"org,omitempty"`
}

// ListPipelineErrorsHandler implements the list_pipeline_errors MCP tool.
type ListPipelineErrorsHandler struct {
	store  Store
	logger *slog.Logger
}

func NewListPipelineErrorsHandler(s Store, logger *slog.Logger) *ListPipelineErrorsHandler {
	return &ListPipelineErrorsHandler{store: s, logger: logger}
}

func (h *ListPipelineErrorsHandler) Handle(ctx context.Context, params ListPipelineErrorsParams) (string, error) {
	run, err := ResolveRun(ctx, h.store, params.RunID)
	if err != nil {
		return "", err
	}

	errs, err := h.store.ListErrors(ctx, run.ID)
	if err != nil {
		return "", fmt.Errorf("list pipeline errors: %w", err)
	}
	if params.Org != "" {
		kept := errs[:0]
		for _, e := range errs {
			if strings.EqualFold(e.OrgID, params.Org) {
				kept = append(kept, e)
			}
		}
		errs = kept
	}
	if len(errs) == 0 {
		return fmt.Sprintf("No pipeline errors in run `%s`.", run.ID), nil
	}

	rb := newBuilder()
	rb.AddHeader(fmt.Sprintf("**Pipeline errors** in run `%s` (%d)", run.ID, len(errs)))
	for _, e := range errs {
		target := e.PipelineID
		if target == "" {
			target = "(pipeline listing)"
		}
		if !rb.AddLine(fmt.Sprintf("- %s/%s/%s: %s", e.OrgID, e.ProjectID, target, e.Message)) {
			break
		}
	}
	return rb.Finalize(len(errs), rb.ItemCount()), nil
}
