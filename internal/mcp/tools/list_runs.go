package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maraichr/pipescope/internal/mcp"
	"github.com/maraichr/pipescope/internal/store/postgres"
)

// ListRunsParams are the parameters for the list_runs tool.
type ListRunsParams struct {
	Limit  int32 `json:"limit,omitempty"`
	Offset int32 `json:"offset,omitempty"`
}

// ListRunsHandler implements the list_runs MCP tool.
type ListRunsHandler struct {
	store  Store
	logger *slog.Logger
}

func NewListRunsHandler(s Store, logger *slog.Logger) *ListRunsHandler {
	return &ListRunsHandler{store: s, logger: logger}
}

// Handle lists runs newest first.
func (h *ListRunsHandler) Handle(ctx context.Context, params ListRunsParams) (string, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}

	runs, err := h.store.ListRuns(ctx, postgres.ListRunsParams{Limit: params.Limit, Offset: params.Offset})
	if err != nil {
		return "", fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		return "No inventory runs found.", nil
	}

	rb := newBuilder()
	rb.AddHeader(fmt.Sprintf("**Inventory runs** (%d found)", len(runs)))
	for _, run := range runs {
		if !rb.AddLine(mcp.FormatRunLine(run)) {
			break
		}
	}
	return rb.Finalize(len(runs), rb.ItemCount()), nil
}
