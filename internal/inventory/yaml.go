package inventory

import (
	"gopkg.in/yaml.v3"
)

type pipelineDoc struct {
	Pipeline struct {
		Identifier string         `yaml:"identifier"`
		Name       string         `yaml:"name"`
		Template   *templateRef   `yaml:"template"`
		Stages     []stageElement `yaml:"stages"`
	} `yaml:"pipeline"`
}

type templateDoc struct {
	Template struct {
		Identifier string `yaml:"identifier"`
		Name       string `yaml:"name"`
		Type       string `yaml:"type"`
		Spec       struct {
			Type           string         `yaml:"type"`
			Infrastructure infrastructure `yaml:"infrastructure"`
			Stages         []stageElement `yaml:"stages"`
		} `yaml:"spec"`
	} `yaml:"template"`
}

type templateRef struct {
	Ref            string  `yaml:"templateRef"`
	VersionLabel   string  `yaml:"versionLabel"`
	TemplateInputs *inputs `yaml:"templateInputs"`
}

type inputs struct {
	Type string `yaml:"type"`
}

// stageElement is either {stage: ...} or {parallel: [...]}.
type stageElement struct {
	Stage    *stageNode     `yaml:"stage"`
	Parallel []stageElement `yaml:"parallel"`
}

type stageNode struct {
	Identifier     string       `yaml:"identifier"`
	Name           string       `yaml:"name"`
	Type           string       `yaml:"type"`
	Spec           *stageSpec   `yaml:"spec"`
	Template       *templateRef `yaml:"template"`
	TemplateInputs *inputs      `yaml:"templateInputs"`
}

type stageSpec struct {
	Infrastructure infrastructure
}

func (s *stageSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return nil
	}
	var m struct {
		Infrastructure infrastructure `yaml:"infrastructure"`
	}
	if err := value.Decode(&m); err != nil {
		return err
	}
	s.Infrastructure = m.Infrastructure
	return nil
}

// infrastructure accepts a mapping with a type or a runtime input
// expression such as "<+input>", which carries no label.
type infrastructure struct {
	Type string
}

func (i *infrastructure) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return nil
	}
	var m struct {
		Type string `yaml:"type"`
	}
	if err := value.Decode(&m); err != nil {
		return err
	}
	i.Type = m.Type
	return nil
}

// ParsePipelineYAML decodes a pipeline definition.
func ParsePipelineYAML(data []byte) (*PipelineBody, error) {
	var doc pipelineDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{What: "pipeline yaml", Err: err}
	}
	p := doc.Pipeline
	body := &PipelineBody{
		Identifier: p.Identifier,
		Name:       p.Name,
		Stages:     convertStages(p.Stages),
	}
	if p.Template != nil && p.Template.Ref != "" {
		body.Template = &TemplateStage{
			Identifier: p.Identifier,
			Name:       p.Name,
			Ref:        p.Template.Ref,
			Version:    p.Template.VersionLabel,
		}
	}
	return body, nil
}

// ParseTemplateYAML decodes a template definition.
func ParseTemplateYAML(data []byte) (*TemplateBody, error) {
	var doc templateDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{What: "template yaml", Err: err}
	}
	t := doc.Template
	return &TemplateBody{
		Identifier:     t.Identifier,
		Name:           t.Name,
		Type:           t.Type,
		SpecType:       t.Spec.Type,
		Infrastructure: t.Spec.Infrastructure.Type,
		Stages:         convertStages(t.Spec.Stages),
	}, nil
}

func convertStages(elems []stageElement) []Stage {
	out := make([]Stage, 0, len(elems))
	for _, el := range elems {
		switch {
		case el.Stage != nil:
			out = append(out, convertStage(el.Stage))
		case el.Parallel != nil:
			out = append(out, ParallelStage{Stages: convertStages(el.Parallel)})
		}
	}
	return out
}

func convertStage(n *stageNode) Stage {
	if n.Template != nil && n.Template.Ref != "" {
		return TemplateStage{
			Identifier: n.Identifier,
			Name:       n.Name,
			Ref:        n.Template.Ref,
			Version:    n.Template.VersionLabel,
		}
	}

	s := SimpleStage{
		Identifier: n.Identifier,
		Name:       n.Name,
		Type:       n.Type,
		HasSpec:    n.Spec != nil,
	}
	switch {
	case n.TemplateInputs != nil:
		s.InputsType = n.TemplateInputs.Type
	case n.Template != nil && n.Template.TemplateInputs != nil:
		s.InputsType = n.Template.TemplateInputs.Type
	}
	if n.Spec != nil {
		s.Infrastructure = n.Spec.Infrastructure.Type
	}
	return s
}
