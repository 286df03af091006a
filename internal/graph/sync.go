package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/maraichr/pipescope/internal/inventory"
)

const batchSize = 500

// PipelineKey identifies a pipeline node.
func PipelineKey(r inventory.PipelineRecord) string {
	return r.OrgID + "/" + r.ProjectID + "/" + r.PipelineID
}

// SyncReport upserts the pipelines and templates of a report and their
// USES_TEMPLATE edges.
func (c *Client) SyncReport(ctx context.Context, runID string, r *inventory.Report) error {
	session := c.Session(ctx)
	defer session.Close(ctx)

	templates := templateParams(r)
	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, UpsertTemplateNode, map[string]any{"templates": templates, "runId": runID})
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("sync templates: %w", err)
	}

	for i := 0; i < len(r.Records); i += batchSize {
		end := min(i+batchSize, len(r.Records))
		batch := r.Records[i:end]
		pipelines, keys, edges := pipelineParams(batch)

		_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
			if _, err := tx.Run(ctx, UpsertPipelineNode, map[string]any{"pipelines": pipelines, "runId": runID}); err != nil {
				return struct{}{}, err
			}
			if _, err := tx.Run(ctx, ClearPipelineTemplates, map[string]any{"keys": keys}); err != nil {
				return struct{}{}, err
			}
			_, err := tx.Run(ctx, LinkPipelineTemplate, map[string]any{"edges": edges})
			return struct{}{}, err
		})
		if err != nil {
			return fmt.Errorf("sync pipelines batch %d: %w", i/batchSize, err)
		}
	}
	return nil
}

// TemplateReuse is one row of TopTemplates.
type TemplateReuse struct {
	Ref       string `json:"ref"`
	Pipelines int64  `json:"pipelines"`
}

func (c *Client) TopTemplates(ctx context.Context, limit int) ([]TemplateReuse, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	out, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]TemplateReuse, error) {
		res, err := tx.Run(ctx, TopTemplates, map[string]any{"limit": limit})
		if err != nil {
			return nil, err
		}
		var rows []TemplateReuse
		for res.Next(ctx) {
			rec := res.Record()
			ref, _, err := neo4j.GetRecordValue[string](rec, "ref")
			if err != nil {
				return nil, err
			}
			n, _, err := neo4j.GetRecordValue[int64](rec, "pipelines")
			if err != nil {
				return nil, err
			}
			rows = append(rows, TemplateReuse{Ref: ref, Pipelines: n})
		}
		return rows, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("top templates: %w", err)
	}
	return out, nil
}

func templateParams(r *inventory.Report) []map[string]any {
	refs := r.TemplateRefs()
	params := make([]map[string]any, len(refs))
	for i, ref := range refs {
		params[i] = map[string]any{"ref": ref, "usage": r.TemplateUsage[ref]}
	}
	return params
}

func pipelineParams(records []inventory.PipelineRecord) (pipelines []map[string]any, keys []string, edges []map[string]any) {
	pipelines = make([]map[string]any, len(records))
	keys = make([]string, len(records))
	for i, rec := range records {
		key := PipelineKey(rec)
		keys[i] = key
		infra := rec.Infra
		if infra == nil {
			infra = []string{}
		}
		pipelines[i] = map[string]any{
			"key":        key,
			"identifier": rec.PipelineID,
			"name":       rec.Name,
			"orgId":      rec.OrgID,
			"projectId":  rec.ProjectID,
			"ciStages":   rec.CIStages,
			"infra":      infra,
		}
		for _, ref := range rec.TemplatesUsed {
			edges = append(edges, map[string]any{"pipeline": key, "template": ref})
		}
	}
	if edges == nil {
		edges = []map[string]any{}
	}
	return pipelines, keys, edges
}
