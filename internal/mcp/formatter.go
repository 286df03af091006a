package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maraichr/pipescope/internal/inventory"
	"github.com/maraichr/pipescope/internal/store/postgres"
)

const defaultMaxTokens = 4000

// ResponseBuilder constructs token-budgeted Markdown responses for MCP tools.
type ResponseBuilder struct {
	buf           strings.Builder
	tokenEstimate int
	maxTokens     int
	truncated     bool
	itemCount     int
}

// NewResponseBuilder creates a builder with the given token budget.
// If maxTokens <= 0, defaultMaxTokens is used.
func NewResponseBuilder(maxTokens int) *ResponseBuilder {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ResponseBuilder{maxTokens: maxTokens}
}

// AddHeader writes a header line to the response.
func (rb *ResponseBuilder) AddHeader(text string) {
	line := text + "\n\n"
	rb.buf.WriteString(line)
	rb.tokenEstimate += len(line) / 4
}

// AddLine writes a single item line, returning false if budget exceeded.
func (rb *ResponseBuilder) AddLine(text string) bool {
	if !rb.add(text + "\n") {
		return false
	}
	rb.itemCount++
	return true
}

// AddSection writes a section with a heading.
func (rb *ResponseBuilder) AddSection(heading string, content string) bool {
	return rb.add(fmt.Sprintf("### %s\n%s\n\n", heading, content))
}

func (rb *ResponseBuilder) add(text string) bool {
	cost := len(text) / 4
	if rb.tokenEstimate+cost > rb.maxTokens {
		rb.truncated = true
		return false
	}
	rb.buf.WriteString(text)
	rb.tokenEstimate += cost
	return true
}

// Finalize appends truncation notice and returns the final response text.
func (rb *ResponseBuilder) Finalize(totalCount, returnedCount int) string {
	if rb.truncated || returnedCount < totalCount {
		rb.buf.WriteString(fmt.Sprintf(
			"\n---\n*Showing %d of %d results (truncated to ~%d tokens). Use `offset` to paginate.*\n",
			returnedCount, totalCount, rb.maxTokens))
	}
	return rb.buf.String()
}

// TokenEstimate returns the current estimated token count.
func (rb *ResponseBuilder) TokenEstimate() int {
	return rb.tokenEstimate
}

// IsTruncated returns whether the response was truncated.
func (rb *ResponseBuilder) IsTruncated() bool {
	return rb.truncated
}

// ItemCount returns the number of items added.
func (rb *ResponseBuilder) ItemCount() int {
	return rb.itemCount
}

// FormatRunLine renders a run as one list item.
func FormatRunLine(run postgres.InventoryRun) string {
	line := fmt.Sprintf("- `%s` **%s** (%s) created %s", run.ID, run.Status, run.Trigger, run.CreatedAt.UTC().Format("2006-01-02 15:04"))
	if run.Status == postgres.RunStatusCompleted {
		line += fmt.Sprintf(" | %d pipelines, %d failed", run.TotalPipelines, run.FailedPipelines)
	}
	if run.ErrorMessage != nil {
		line += " | error: " + *run.ErrorMessage
	}
	return line
}

// FormatAccount renders account counters and infrastructure shares.
func FormatAccount(a inventory.AccountSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("- Organizations: %d\n", a.Organizations))
	b.WriteString(fmt.Sprintf("- Projects: %d (avg %.2f per org)\n", a.Projects, a.AvgProjectsPerOrg))
	b.WriteString(fmt.Sprintf("- Pipelines: %d (avg %.2f per project), %d failed\n", a.Pipelines, a.AvgPipelinesPerProject, a.FailedPipelines))
	b.WriteString(fmt.Sprintf("- Pipelines with CI: %d, CI stages: %d\n", a.CIPipelines, a.CIStages))
	b.WriteString(fmt.Sprintf("- Template references: %d\n", a.TemplateRefs))
	if infra := formatInfra(a.InfraCounts, a.InfraPercentage); infra != "" {
		b.WriteString("- Infrastructure: " + infra + "\n")
	}
	return b.String()
}

// FormatOrgLine renders an organization as one list item.
func FormatOrgLine(o inventory.OrgSummary) string {
	line := fmt.Sprintf("- **%s**: %d projects, %d pipelines (%d CI), %d CI stages", o.OrgID, o.Projects, o.Pipelines, o.CIPipelines, o.CIStages)
	if infra := formatInfra(o.InfraCounts, o.InfraPercentage); infra != "" {
		line += " | " + infra
	}
	return line
}

func formatInfra(counts map[string]int, pct map[string]string) string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = fmt.Sprintf("%s %d (%s)", label, counts[label], pct[label])
	}
	return strings.Join(parts, ", ")
}
