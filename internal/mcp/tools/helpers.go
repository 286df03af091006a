package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maraichr/pipescope/internal/mcp"
	"github.com/maraichr/pipescope/internal/store/postgres"
)

// ToolHandler is the interface that all tool handlers implement.
type ToolHandler[P any] interface {
	Handle(ctx context.Context, params P) (string, error)
}

// WrapHandler adapts a ToolHandler into the SDK's AddTool callback.
// It handles nil params by using a zero value and maps errors to CallToolResult.
func WrapHandler[P any](h ToolHandler[P]) func(context.Context, *sdkmcp.CallToolRequest, *P) (*sdkmcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, params *P) (*sdkmcp.CallToolResult, any, error) {
		if params == nil {
			params = new(P)
		}
		result, err := h.Handle(ctx, *params)
		if err != nil {
			return &sdkmcp.CallToolResult{
				IsError: true,
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: err.Error()}},
			}, nil, nil
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: result}},
		}, nil, nil
	}
}

// Store is the read side of *store.Store used by the tools.
type Store interface {
	ListRuns(ctx context.Context, arg postgres.ListRunsParams) ([]postgres.InventoryRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (postgres.InventoryRun, error)
	GetLatestCompletedRun(ctx context.Context) (postgres.InventoryRun, error)
	ListErrors(ctx context.Context, runID uuid.UUID) ([]postgres.PipelineError, error)
	ListTemplateUsage(ctx context.Context, runID uuid.UUID) ([]postgres.TemplateUsage, error)
}

// ResolveRun loads runID, or the latest completed run when runID is empty.
func ResolveRun(ctx context.Context, s Store, runID string) (postgres.InventoryRun, error) {
	if runID == "" {
		run, err := s.GetLatestCompletedRun(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return run, fmt.Errorf("no completed runs yet")
		}
		if err != nil {
			return run, fmt.Errorf("get latest run: %w", err)
		}
		return run, nil
	}

	id, err := uuid.Parse(runID)
	if err != nil {
		return postgres.InventoryRun{}, fmt.Errorf("invalid run_id %q", runID)
	}
	run, err := s.GetRun(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return run, fmt.Errorf("run not found")
	}
	if err != nil {
		return run, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Tool responses stay under roughly 4000 tokens.
func newBuilder() *mcp.ResponseBuilder {
	return mcp.NewResponseBuilder(4000)
}
