package tools

import (
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds the MCP server with every inventory tool registered.
func NewServer(s Store, logger *slog.Logger, version string) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "pipescope", Version: version}, nil)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_runs",
		Description: "List CI/CD inventory runs newest first with status, trigger and pipeline counts.",
	}, WrapHandler[ListRunsParams](NewListRunsHandler(s, logger)))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_run_summary",
		Description: "Summarize an inventory run: account totals, per-organization CI adoption, infrastructure shares and the most used templates. Defaults to the latest completed run.",
	}, WrapHandler[GetRunSummaryParams](NewGetRunSummaryHandler(s, logger)))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_pipeline_errors",
		Description: "List pipelines that could not be analyzed in a run, optionally filtered by organization.",
	}, WrapHandler[ListPipelineErrorsParams](NewListPipelineErrorsHandler(s, logger)))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_template_usage",
		Description: "List templates referenced in a run with their reference counts.",
	}, WrapHandler[ListTemplateUsageParams](NewListTemplateUsageHandler(s, logger)))

	return server
}
