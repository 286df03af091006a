package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maraichr/pipescope/internal/mcp"
	"github.com/maraichr/pipescope/internal/store"
	"github.com/maraichr/pipescope/internal/store/postgres"
)

// GetRunSummaryParams are the parameters for the get_run_summary tool.
type GetRunSummaryParams struct {
	// RunID defaults to the latest completed run.
	RunID string `json:"run_id,omitempty"`
	// Templates bounds the template usage list; 0 means 10.
	Templates int `json:"templates,omitempty"`
}

// GetRunSummaryHandler implements the get_run_summary MCP tool.
type GetRunSummaryHandler struct {
	store  Store
	logger *slog.Logger
}

func NewGetRunSummaryHandler(s Store, logger *slog.Logger) *GetRunSummaryHandler {
	return &GetRunSummaryHandler{store: s, logger: logger}
}

func (h *GetRunSummaryHandler) Handle(ctx context.Context, params GetRunSummaryParams) (string, error) {
	run, err := ResolveRun(ctx, h.store, params.RunID)
	if err != nil {
		return "", err
	}
	if run.Status != postgres.RunStatusCompleted {
		return mcp.FormatRunLine(run) + "\n\nThe run has no summary yet.", nil
	}

	summary, err := store.DecodeSummary(run)
	if err != nil {
		return "", err
	}
	usage, err := h.store.ListTemplateUsage(ctx, run.ID)
	if err != nil {
		return "", fmt.Errorf("list template usage: %w", err)
	}
	if params.Templates <= 0 {
		params.Templates = 10
	}

	rb := newBuilder()
	rb.AddHeader(fmt.Sprintf("**Inventory run** `%s`", run.ID))
	rb.AddSection("Account", mcp.FormatAccount(summary.Account))

	rb.AddHeader(fmt.Sprintf("**Organizations** (%d)", len(summary.Orgs)))
	shown := 0
	for _, org := range summary.Orgs {
		if !rb.AddLine(mcp.FormatOrgLine(org)) {
			break
		}
		shown++
	}

	if len(usage) > 0 {
		rb.AddHeader("\n**Most used templates**")
		for i, u := range usage {
			if i >= params.Templates || !rb.AddLine(fmt.Sprintf("- `%s` x%d", u.TemplateRef, u.Count)) {
				break
			}
		}
	}
	return rb.Finalize(len(summary.Orgs), shown), nil
}
