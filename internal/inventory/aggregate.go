package inventory

import (
	"fmt"
	"sort"
)

// Bucket holds running totals for a project, an organization or the account.
type Bucket struct {
	Organizations int
	Projects      int
	// Pipelines counts successfully analyzed pipelines only.
	Pipelines       int
	FailedPipelines int
	CIPipelines     int
	CIStages        int
	TemplateRefs    int
	// Templates maps a template reference to the number of pipelines using it.
	Templates map[string]int
	// Infra maps a classified label to the number of pipelines reporting it.
	Infra map[string]int
}

func newBucket() Bucket {
	return Bucket{Templates: map[string]int{}, Infra: map[string]int{}}
}

// Fold sums pipeline records into a project bucket.
func Fold(records []PipelineRecord) Bucket {
	b := newBucket()
	for _, r := range records {
		b.Pipelines++
		b.CIStages += r.CIStages
		b.TemplateRefs += r.TemplateUsage
		if r.HasCI() {
			b.CIPipelines++
		}
		for _, label := range r.Infra {
			b.Infra[label]++
		}
		for _, ref := range r.TemplatesUsed {
			b.Templates[ref]++
		}
	}
	return b
}

// Combine sums buckets into one. The inputs are not modified.
func Combine(buckets ...Bucket) Bucket {
	out := newBucket()
	for _, b := range buckets {
		out.Organizations += b.Organizations
		out.Projects += b.Projects
		out.Pipelines += b.Pipelines
		out.FailedPipelines += b.FailedPipelines
		out.CIPipelines += b.CIPipelines
		out.CIStages += b.CIStages
		out.TemplateRefs += b.TemplateRefs
		for k, v := range b.Templates {
			out.Templates[k] += v
		}
		for k, v := range b.Infra {
			out.Infra[k] += v
		}
	}
	return out
}

// Percentage expresses each count as a share of the sum of all counts,
// formatted with two decimals. A zero sum reports every label as 0.00%.
func Percentage(counts map[string]int) map[string]string {
	total := 0
	for _, n := range counts {
		total += n
	}
	out := make(map[string]string, len(counts))
	for label, n := range counts {
		if total == 0 {
			out[label] = "0.00%"
			continue
		}
		out[label] = fmt.Sprintf("%.2f%%", float64(n)/float64(total)*100)
	}
	return out
}

// OrgSummary is the finalized bucket of one organization.
type OrgSummary struct {
	OrgID           string            `json:"org_identifier"`
	Projects        int               `json:"total_projects"`
	Pipelines       int               `json:"total_pipelines"`
	FailedPipelines int               `json:"failed_pipelines"`
	CIPipelines     int               `json:"total_pipelines_with_ci"`
	CIStages        int               `json:"total_ci_stages"`
	TemplateRefs    int               `json:"template_count"`
	Templates       map[string]int    `json:"templates"`
	InfraCounts     map[string]int    `json:"infra_counts"`
	InfraPercentage map[string]string `json:"infra_percentage"`
}

// AccountSummary is the finalized bucket of the whole account.
type AccountSummary struct {
	Organizations          int               `json:"total_orgs"`
	Projects               int               `json:"total_projects"`
	Pipelines              int               `json:"total_pipelines"`
	FailedPipelines        int               `json:"failed_pipelines"`
	CIPipelines            int               `json:"total_pipelines_with_ci"`
	CIStages               int               `json:"total_ci_stages"`
	TemplateRefs           int               `json:"template_count"`
	Templates              map[string]int    `json:"templates"`
	InfraCounts            map[string]int    `json:"infra_counts"`
	InfraPercentage        map[string]string `json:"infra_percentage"`
	AvgPipelinesPerProject float64           `json:"avg_pipelines_per_project"`
	AvgProjectsPerOrg      float64           `json:"avg_projects_per_org"`
}

// OrgSummary finalizes b as the bucket of orgID.
func (b Bucket) OrgSummary(orgID string) OrgSummary {
	return OrgSummary{
		OrgID:           orgID,
		Projects:        b.Projects,
		Pipelines:       b.Pipelines,
		FailedPipelines: b.FailedPipelines,
		CIPipelines:     b.CIPipelines,
		CIStages:        b.CIStages,
		TemplateRefs:    b.TemplateRefs,
		Templates:       copyCounts(b.Templates),
		InfraCounts:     copyCounts(b.Infra),
		InfraPercentage: Percentage(b.Infra),
	}
}

// AccountSummary finalizes b as the account bucket.
func (b Bucket) AccountSummary() AccountSummary {
	s := AccountSummary{
		Organizations:   b.Organizations,
		Projects:        b.Projects,
		Pipelines:       b.Pipelines,
		FailedPipelines: b.FailedPipelines,
		CIPipelines:     b.CIPipelines,
		CIStages:        b.CIStages,
		TemplateRefs:    b.TemplateRefs,
		Templates:       copyCounts(b.Templates),
		InfraCounts:     copyCounts(b.Infra),
		InfraPercentage: Percentage(b.Infra),
	}
	if b.Projects > 0 {
		s.AvgPipelinesPerProject = float64(b.Pipelines) / float64(b.Projects)
	}
	if b.Organizations > 0 {
		s.AvgProjectsPerOrg = float64(b.Projects) / float64(b.Organizations)
	}
	return s
}

// InfraLabels returns every label present in the account or any org summary, sorted.
func (r *Report) InfraLabels() []string {
	seen := NewSet()
	for label := range r.Account.InfraCounts {
		seen.Add(label)
	}
	for _, org := range r.Orgs {
		for label := range org.InfraCounts {
			seen.Add(label)
		}
	}
	return seen.Sorted()
}

// TemplateRefs returns the keys of TemplateUsage, sorted.
func (r *Report) TemplateRefs() []string {
	refs := make([]string, 0, len(r.TemplateUsage))
	for ref := range r.TemplateUsage {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
