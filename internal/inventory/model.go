package inventory

import (
	"fmt"
	"strings"
	"time"
)

// Level is the hierarchy position a template reference resolves at.
type Level string

const (
	LevelAccount Level = "account"
	LevelOrg     Level = "org"
	LevelProject Level = "project"
)

const (
	// DefaultInfrastructure is reported for CI stages that declare a spec
	// without an infrastructure type.
	DefaultInfrastructure = "Harness Cloud"
	// DefaultVersionLabel is used when a template reference carries no versionLabel.
	DefaultVersionLabel = "0.0.1"

	StageTypeCI       = "CI"
	TemplateTypeStage = "Stage"
	StoreTypeInline   = "INLINE"
	StoreTypeRemote   = "REMOTE"
	accountRefPrefix  = "account."
	orgRefPrefix      = "org."
)

// Scope identifies the organization and project a walk happens in.
type Scope struct {
	Org     string
	Project string
}

// LevelFor returns the level implied by the identifiers present in scope.
func LevelFor(scope Scope) Level {
	switch {
	case scope.Project != "":
		return LevelProject
	case scope.Org != "":
		return LevelOrg
	default:
		return LevelAccount
	}
}

// Organization is one org on the account.
type Organization struct {
	Identifier string
	Name       string
}

// Project is one project inside an organization.
type Project struct {
	Identifier string
	OrgID      string
	Name       string
}

// PipelineMeta is a pipeline as returned by the listing endpoint.
type PipelineMeta struct {
	Identifier   string
	OrgID        string
	ProjectID    string
	Name         string
	StoreType    string
	ConnectorRef string
	RepoName     string
}

// Scope returns the org/project pair owning the pipeline.
func (m PipelineMeta) Scope() Scope {
	return Scope{Org: m.OrgID, Project: m.ProjectID}
}

// IsRemote reports whether the pipeline body lives in an external git repo.
func (m PipelineMeta) IsRemote() bool {
	return m.StoreType != "" && m.StoreType != StoreTypeInline
}

// Stage is one entry of a stage list: SimpleStage, TemplateStage or ParallelStage.
type Stage interface {
	stageKind() string
}

// SimpleStage is a concrete stage declared inline.
type SimpleStage struct {
	Identifier string
	Name       string
	Type       string
	// InputsType is templateInputs.type when the stage carries template inputs.
	InputsType string
	// HasSpec is false when the stage omits its spec block entirely.
	HasSpec        bool
	Infrastructure string
}

func (SimpleStage) stageKind() string { return "stage" }

// IsCI reports whether the stage performs CI build work.
func (s SimpleStage) IsCI() bool {
	return s.Type == StageTypeCI || s.InputsType == StageTypeCI
}

// InfraLabel returns the declared infrastructure type or the default.
func (s SimpleStage) InfraLabel() string {
	if s.Infrastructure == "" {
		return DefaultInfrastructure
	}
	return s.Infrastructure
}

// TemplateStage is a stage whose body comes from a reusable template.
type TemplateStage struct {
	Identifier string
	Name       string
	Ref        string
	Version    string
}

func (TemplateStage) stageKind() string { return "template" }

// ParallelStage groups stages that run side by side.
type ParallelStage struct {
	Stages []Stage
}

func (ParallelStage) stageKind() string { return "parallel" }

// PipelineBody is a parsed pipeline definition.
type PipelineBody struct {
	Identifier string
	Name       string
	// Template is set when the whole pipeline is an instance of a pipeline template.
	Template *TemplateStage
	Stages   []Stage
}

// TemplateBody is a parsed template definition.
type TemplateBody struct {
	Identifier     string
	Name           string
	Type           string
	SpecType       string
	Infrastructure string
	Stages         []Stage
}

// IsCIStage reports whether the template is a stage template of type CI.
func (t TemplateBody) IsCIStage() bool {
	return t.Type == TemplateTypeStage && t.SpecType == StageTypeCI
}

// InfraLabel returns the template's infrastructure type or the default.
func (t TemplateBody) InfraLabel() string {
	if t.Infrastructure == "" {
		return DefaultInfrastructure
	}
	return t.Infrastructure
}

// TemplateKey identifies one template within a run's cache.
type TemplateKey struct {
	ID      string
	Version string
	Level   Level
	Org     string
	Project string
}

// NewTemplateKey derives the cache key for ref as seen from level and scope.
// An "account." or "org." prefix overrides the caller's level.
func NewTemplateKey(ref, version string, level Level, scope Scope) (TemplateKey, error) {
	id := ref
	switch {
	case strings.HasPrefix(ref, accountRefPrefix):
		level, id = LevelAccount, strings.TrimPrefix(ref, accountRefPrefix)
	case strings.HasPrefix(ref, orgRefPrefix):
		level, id = LevelOrg, strings.TrimPrefix(ref, orgRefPrefix)
	}
	if id == "" {
		return TemplateKey{}, fmt.Errorf("empty template reference %q", ref)
	}
	if version == "" {
		version = DefaultVersionLabel
	}

	key := TemplateKey{ID: id, Version: version, Level: level}
	switch level {
	case LevelAccount:
	case LevelOrg:
		key.Org = scope.Org
	case LevelProject:
		key.Org, key.Project = scope.Org, scope.Project
	default:
		return TemplateKey{}, fmt.Errorf("%w: %q for template reference %q", ErrUnknownLevel, level, ref)
	}
	return key, nil
}

// Scope returns the org/project of the key, used for templates nested inside it.
func (k TemplateKey) Scope() Scope {
	return Scope{Org: k.Org, Project: k.Project}
}

func (k TemplateKey) String() string {
	switch k.Level {
	case LevelAccount:
		return fmt.Sprintf("account/%s@%s", k.ID, k.Version)
	case LevelOrg:
		return fmt.Sprintf("org/%s/%s@%s", k.Org, k.ID, k.Version)
	default:
		return fmt.Sprintf("project/%s/%s/%s@%s", k.Org, k.Project, k.ID, k.Version)
	}
}

// ResolvedTemplate is the cached outcome of resolving one TemplateKey.
type ResolvedTemplate struct {
	Key   TemplateKey
	Type  string
	Count int
	// CI is true when the template is itself a CI stage.
	CI bool
	// Infra is the classified label set the template contributes.
	Infra Set
	// Nested summarizes the template's own stage list.
	Nested WalkResult

	// refs are the references resolved directly in the body, replayed
	// into the usage counters on every later reference.
	refs []usageRef
}

// contribution is what one reference to the template adds to a walk.
func (t ResolvedTemplate) contribution(ref string) WalkResult {
	r := WalkResult{
		Infra:         t.Nested.Infra.Clone(),
		CIStages:      t.Nested.CIStages,
		HasTemplate:   true,
		TemplatesUsed: t.Nested.TemplatesUsed.Clone(),
		TemplateRefs:  t.Nested.TemplateRefs + 1,
	}
	r.TemplatesUsed.Add(ref)
	if t.CI {
		r.CIStages++
		r.Infra.AddAll(t.Infra)
	}
	return r
}

// PipelineRecord is one analyzed pipeline.
type PipelineRecord struct {
	PipelineID    string        `json:"pipeline_identifier"`
	OrgID         string        `json:"org_identifier"`
	ProjectID     string        `json:"project_identifier"`
	Name          string        `json:"pipeline_name"`
	CIStages      int           `json:"ci_stages_count"`
	Infra         []string      `json:"infra_types"`
	TotalStages   int           `json:"total_stages"`
	TemplateUsage int           `json:"template_count"`
	TemplatesUsed []string      `json:"templates_used"`
	AvgBuildTime  time.Duration `json:"avg_build_time,omitempty"`
	MaxBuildTime  time.Duration `json:"max_build_time,omitempty"`
}

// HasCI reports whether the pipeline contains at least one CI stage.
func (r PipelineRecord) HasCI() bool { return r.CIStages > 0 }

// PipelineError is a pipeline that could not be analyzed.
type PipelineError struct {
	OrgID      string `json:"org_identifier"`
	ProjectID  string `json:"project_identifier"`
	PipelineID string `json:"pipeline_identifier"`
	Message    string `json:"error"`
}

func (e *PipelineError) Error() string {
	if e.PipelineID == "" {
		return fmt.Sprintf("%s/%s: %s", e.OrgID, e.ProjectID, e.Message)
	}
	return fmt.Sprintf("%s/%s/%s: %s", e.OrgID, e.ProjectID, e.PipelineID, e.Message)
}

// Report is everything one run produces for the exporters.
type Report struct {
	Account       AccountSummary        `json:"account"`
	Orgs          map[string]OrgSummary `json:"orgs"`
	OrgOrder      []string              `json:"org_order"`
	Records       []PipelineRecord      `json:"records"`
	Errors        []PipelineError       `json:"errors"`
	TemplateUsage map[string]int        `json:"template_usage"`
	TemplateFetch int                   `json:"template_fetches"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
}
