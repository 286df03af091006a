package harness

import (
	"context"
	"net/http"
	"strconv"

	"github.com/maraichr/pipescope/internal/inventory"
)

type orgItem struct {
	Organization struct {
		Identifier string `json:"identifier"`
		Name       string `json:"name"`
	} `json:"organization"`
}

type projectItem struct {
	ProjectResponse struct {
		Project struct {
			Identifier    string `json:"identifier"`
			OrgIdentifier string `json:"orgIdentifier"`
			Name          string `json:"name"`
		} `json:"project"`
	} `json:"projectResponse"`
}

type pipelineItem struct {
	Identifier   string `json:"identifier"`
	Name         string `json:"name"`
	StoreType    string `json:"storeType"`
	ConnectorRef string `json:"connectorRef"`
	RepoName     string `json:"repoName"`
	GitDetails   *struct {
		RepoName string `json:"repoName"`
	} `json:"gitDetails"`
}

// ListOrganizations returns every organization on the account.
func (c *Client) ListOrganizations(ctx context.Context) ([]inventory.Organization, error) {
	var out []inventory.Organization
	for idx := 0; ; idx++ {
		q := c.query(map[string]string{
			"pageIndex": strconv.Itoa(idx),
			"pageSize":  strconv.Itoa(c.pageSize),
		})
		var resp envelope[page[orgItem]]
		if err := c.do(ctx, "list organizations", http.MethodGet, "/ng/api/organizations", q, nil, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Data.Content {
			out = append(out, inventory.Organization{Identifier: it.Organization.Identifier, Name: it.Organization.Name})
		}
		if resp.Data.done(c.pageSize) {
			return out, nil
		}
	}
}

// ListProjects returns the projects of orgID.
func (c *Client) ListProjects(ctx context.Context, orgID string) ([]inventory.Project, error) {
	var out []inventory.Project
	for idx := 0; ; idx++ {
		q := c.query(map[string]string{
			"routingId":     c.accountID,
			"orgIdentifier": orgID,
			"pageIndex":     strconv.Itoa(idx),
			"pageSize":      strconv.Itoa(c.pageSize),
			"sortOrders":    "createdAt,DESC",
		})
		var resp envelope[page[projectItem]]
		if err := c.do(ctx, "list projects of "+orgID, http.MethodGet, "/ng/api/aggregate/projects", q, nil, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Data.Content {
			p := it.ProjectResponse.Project
			org := p.OrgIdentifier
			if org == "" {
				org = orgID
			}
			out = append(out, inventory.Project{Identifier: p.Identifier, OrgID: org, Name: p.Name})
		}
		if resp.Data.done(c.pageSize) {
			return out, nil
		}
	}
}

// ListPipelines returns the pipelines of one project, most recently updated first.
func (c *Client) ListPipelines(ctx context.Context, orgID, projectID string) ([]inventory.PipelineMeta, error) {
	filter := map[string]string{"filterType": "PipelineSetup"}

	var out []inventory.PipelineMeta
	for idx := 0; ; idx++ {
		q := c.query(map[string]string{
			"routingId":         c.accountID,
			"orgIdentifier":     orgID,
			"projectIdentifier": projectID,
			"page":              strconv.Itoa(idx),
			"size":              strconv.Itoa(c.pageSize),
			"sort":              "lastUpdatedAt,DESC",
		})
		var resp envelope[page[pipelineItem]]
		if err := c.do(ctx, "list pipelines of "+orgID+"/"+projectID, http.MethodPost, "/pipeline/api/pipelines/list", q, filter, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Data.Content {
			store := it.StoreType
			if store == "" {
				store = inventory.StoreTypeInline
			}
			repo := it.RepoName
			if repo == "" && it.GitDetails != nil {
				repo = it.GitDetails.RepoName
			}
			out = append(out, inventory.PipelineMeta{
				Identifier:   it.Identifier,
				OrgID:        orgID,
				ProjectID:    projectID,
				Name:         it.Name,
				StoreType:    store,
				ConnectorRef: it.ConnectorRef,
				RepoName:     repo,
			})
		}
		if resp.Data.done(c.pageSize) {
			return out, nil
		}
	}
}
