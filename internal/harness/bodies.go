package harness

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/maraichr/pipescope/internal/inventory"
)

type pipelineData struct {
	YAMLPipeline string `json:"yamlPipeline"`
}

type templateData struct {
	YAML string `json:"yaml"`
}

type executionItem struct {
	PlanExecutionID string `json:"planExecutionId"`
	LayoutNodeMap   map[string]struct {
		NodeType string `json:"nodeType"`
		StartTs  int64  `json:"startTs"`
		EndTs    int64  `json:"endTs"`
	} `json:"layoutNodeMap"`
}

// FetchPipeline loads and parses one pipeline definition. Remote pipelines
// are read from their git connector, falling back to the default branch.
func (c *Client) FetchPipeline(ctx context.Context, meta inventory.PipelineMeta) (*inventory.PipelineBody, error) {
	extra := map[string]string{
		"orgIdentifier":     meta.OrgID,
		"projectIdentifier": meta.ProjectID,
		"validateAsync":     "true",
	}
	if meta.IsRemote() {
		extra["loadFromFallbackBranch"] = "true"
		extra["parentEntityConnectorRef"] = meta.ConnectorRef
		extra["parentEntityRepoName"] = meta.RepoName
	}

	var resp envelope[pipelineData]
	path := "/pipeline/api/pipelines/" + url.PathEscape(meta.Identifier)
	if err := c.do(ctx, "get pipeline "+meta.Identifier, http.MethodGet, path, c.query(extra), nil, &resp); err != nil {
		return nil, err
	}
	return inventory.ParsePipelineYAML([]byte(resp.Data.YAMLPipeline))
}

// FetchTemplate loads and parses the template key names. Parsed bodies are
// served from the client's LRU when present.
func (c *Client) FetchTemplate(ctx context.Context, key inventory.TemplateKey) (*inventory.TemplateBody, error) {
	if body, ok := c.templates.Get(key); ok {
		c.logger.Debug("template cache hit", slog.String("key", key.String()))
		return body, nil
	}

	extra := map[string]string{
		"versionLabel":           key.Version,
		"loadFromFallbackBranch": "true",
	}
	switch key.Level {
	case inventory.LevelOrg:
		extra["orgIdentifier"] = key.Org
	case inventory.LevelProject:
		extra["orgIdentifier"] = key.Org
		extra["projectIdentifier"] = key.Project
	}

	var resp envelope[templateData]
	path := "/template/api/templates/" + url.PathEscape(key.ID)
	if err := c.do(ctx, "get template "+key.String(), http.MethodGet, path, c.query(extra), nil, &resp); err != nil {
		return nil, err
	}
	body, err := inventory.ParseTemplateYAML([]byte(resp.Data.YAML))
	if err != nil {
		return nil, err
	}
	c.templates.Add(key, body)
	return body, nil
}

// ListExecutions returns the most recent CI executions of a pipeline.
func (c *Client) ListExecutions(ctx context.Context, meta inventory.PipelineMeta) ([]inventory.Execution, error) {
	q := c.query(map[string]string{
		"orgIdentifier":           meta.OrgID,
		"projectIdentifier":       meta.ProjectID,
		"pipelineIdentifier":      meta.Identifier,
		"page":                    "0",
		"size":                    strconv.Itoa(c.executionPage),
		"module":                  "CI",
		"showAllExecutions":       "true",
		"getDefaultFromOtherRepo": "true",
	})
	filter := map[string]string{"filterType": "PipelineExecution"}

	var resp envelope[page[executionItem]]
	if err := c.do(ctx, "list executions of "+meta.Identifier, http.MethodPost, "/pipeline/api/pipelines/execution/summary", q, filter, &resp); err != nil {
		return nil, err
	}

	out := make([]inventory.Execution, 0, len(resp.Data.Content))
	for _, it := range resp.Data.Content {
		ex := inventory.Execution{ID: it.PlanExecutionID}
		for _, n := range it.LayoutNodeMap {
			ex.Nodes = append(ex.Nodes, inventory.ExecutionNode{Type: n.NodeType, StartTs: n.StartTs, EndTs: n.EndTs})
		}
		out = append(out, ex)
	}
	return out, nil
}
