package tools

import (
	"context"
	"fmt"
	"log/slog"
)

// ListTemplateUsageParams are the parameters for the list_template_usage tool.
type ListTemplateUsageParams struct {
	RunID string `json:"run_id,omitempty"`
}

// ListTemplateUsageHandler implements the list_template_usage MCP tool.
type ListTemplateUsageHandler struct {
	store  Store
	logger *slog.Logger
}

func NewListTemplateUsageHandler(s Store, logger *slog.Logger) *ListTemplateUsageHandler {
	return &ListTemplateUsageHandler{store: s, logger: logger}
}

func (h *ListTemplateUsageHandler) Handle(ctx context.Context, params ListTemplateUsageParams) (string, error) {
	run, err := ResolveRun(ctx, h.store, params.RunID)
	if err != nil {
		return "", err
	}
	usage, err := h.store.ListTemplateUsage(ctx, run.ID)
	if err != nil {
		return "", fmt.Errorf("list template usage: %w", err)
	}
	if len(usage) == 0 {
		return fmt.Sprintf("No templates referenced in run `%s`.", run.ID), nil
	}

	rb := newBuilder()
	rb.AddHeader(fmt.Sprintf("**Template usage** in run `%s` (%d templates)", run.ID, len(usage)))
	for _, u := range usage {
		if !rb.AddLine(fmt.Sprintf("- `%s` x%d", u.TemplateRef, u.Count)) {
			break
		}
	}
	return rb.Finalize(len(usage), rb.ItemCount()), nil
}
