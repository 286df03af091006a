package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/maraichr/pipescope/internal/inventory"
)

// Table is one exported sheet. Cells hold strings, ints or float64s.
type Table struct {
	File   string
	Sheet  string
	Header []string
	Rows   [][]any
}

// Tables renders r in export order.
func Tables(r *inventory.Report) []Table {
	return []Table{
		AccountTable(r),
		OrgTable(r),
		PipelineTable(r),
		TemplateTable(r),
		ErrorTable(r),
	}
}

// AccountTable has one row; infrastructure percentages follow the counters,
// one column per label seen anywhere in the report.
func AccountTable(r *inventory.Report) Table {
	labels := r.InfraLabels()
	a := r.Account
	row := []any{
		a.Organizations, a.Projects, a.Pipelines, a.CIPipelines, a.CIStages,
		a.TemplateRefs, a.FailedPipelines, a.AvgPipelinesPerProject, a.AvgProjectsPerOrg,
	}
	for _, l := range labels {
		row = append(row, a.InfraPercentage[l])
	}
	return Table{
		File:  "account_summary.csv",
		Sheet: "Account Summary",
		Header: append([]string{
			"total_orgs", "total_projects", "total_pipelines", "total_pipelines_with_ci", "total_ci_stages",
			"template_count", "failed_pipelines", "avg_pipelines_per_project", "avg_projects_per_org",
		}, labels...),
		Rows: [][]any{row},
	}
}

func OrgTable(r *inventory.Report) Table {
	labels := r.InfraLabels()
	t := Table{
		File:  "org_summary.csv",
		Sheet: "Org Summary",
		Header: append([]string{
			"org_identifier", "total_projects", "total_pipelines", "total_pipelines_with_ci",
			"total_ci_stages", "template_count", "failed_pipelines",
		}, labels...),
	}
	for _, id := range r.OrgOrder {
		o := r.Orgs[id]
		row := []any{id, o.Projects, o.Pipelines, o.CIPipelines, o.CIStages, o.TemplateRefs, o.FailedPipelines}
		for _, l := range labels {
			row = append(row, o.InfraPercentage[l])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func PipelineTable(r *inventory.Report) Table {
	t := Table{
		File:  "pipeline_details.csv",
		Sheet: "Pipeline Details",
		Header: []string{
			"pipeline_identifier", "org_identifier", "project_identifier", "pipeline_name",
			"ci_stages_count", "total_stages", "template_count", "templates_used", "infra_types",
			"avg_build_time_secs", "max_build_time_secs",
		},
	}
	for _, p := range r.Records {
		t.Rows = append(t.Rows, []any{
			p.PipelineID, p.OrgID, p.ProjectID, p.Name,
			p.CIStages, p.TotalStages, p.TemplateUsage,
			strings.Join(p.TemplatesUsed, ", "), strings.Join(p.Infra, ", "),
			seconds(p.AvgBuildTime), seconds(p.MaxBuildTime),
		})
	}
	return t
}

func TemplateTable(r *inventory.Report) Table {
	t := Table{
		File:   "template_details.csv",
		Sheet:  "Template Details",
		Header: []string{"template_ref", "count"},
	}
	for _, ref := range r.TemplateRefs() {
		t.Rows = append(t.Rows, []any{ref, r.TemplateUsage[ref]})
	}
	return t
}

func ErrorTable(r *inventory.Report) Table {
	t := Table{
		File:   "pipeline_errors.csv",
		Sheet:  "Pipeline Errors",
		Header: []string{"org_identifier", "project_identifier", "pipeline_identifier", "error"},
	}
	for _, e := range r.Errors {
		t.Rows = append(t.Rows, []any{e.OrgID, e.ProjectID, e.PipelineID, e.Message})
	}
	return t
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

// formatCell renders a cell for text output.
func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.2f", x)
	default:
		return fmt.Sprint(x)
	}
}
