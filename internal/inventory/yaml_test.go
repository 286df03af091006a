package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineYAML = `
pipeline:
  identifier: build_and_ship
  name: Build and Ship
  stages:
    - stage:
        identifier: build
        name: Build
        type: CI
        spec:
          infrastructure:
            type: KubernetesDirect
    - parallel:
        - stage:
            identifier: lint
            name: Lint
            type: CI
            spec:
              cloneCodebase: true
        - stage:
            identifier: scan
            name: Scan
            template:
              templateRef: account.security_scan
              versionLabel: v3
    - stage:
        identifier: templated
        name: Templated
        template:
          templateInputs:
            type: CI
        spec:
          infrastructure: <+input>
    - stage:
        identifier: deploy
        name: Deploy
        type: Deployment
`

func TestParsePipelineYAML(t *testing.T) {
	body, err := ParsePipelineYAML([]byte(pipelineYAML))
	require.NoError(t, err)

	assert.Equal(t, "build_and_ship", body.Identifier)
	assert.Equal(t, "Build and Ship", body.Name)
	assert.Nil(t, body.Template)
	require.Len(t, body.Stages, 4)

	assert.Equal(t, SimpleStage{Identifier: "build", Name: "Build", Type: "CI", HasSpec: true, Infrastructure: "KubernetesDirect"}, body.Stages[0])

	par, ok := body.Stages[1].(ParallelStage)
	require.True(t, ok)
	require.Len(t, par.Stages, 2)
	assert.Equal(t, SimpleStage{Identifier: "lint", Name: "Lint", Type: "CI", HasSpec: true}, par.Stages[0])
	assert.Equal(t, TemplateStage{Identifier: "scan", Name: "Scan", Ref: "account.security_scan", Version: "v3"}, par.Stages[1])

	templated, ok := body.Stages[2].(SimpleStage)
	require.True(t, ok)
	assert.Equal(t, StageTypeCI, templated.InputsType)
	assert.True(t, templated.IsCI())
	assert.True(t, templated.HasSpec)
	assert.Equal(t, DefaultInfrastructure, templated.InfraLabel())

	assert.False(t, body.Stages[3].(SimpleStage).IsCI())
}

func TestParsePipelineYAML_RootTemplate(t *testing.T) {
	body, err := ParsePipelineYAML([]byte(`
pipeline:
  identifier: from_template
  template:
    templateRef: org.golden_path
    versionLabel: "1.2"
`))
	require.NoError(t, err)
	require.NotNil(t, body.Template)
	assert.Equal(t, "org.golden_path", body.Template.Ref)
	assert.Equal(t, "1.2", body.Template.Version)
	assert.Empty(t, body.Stages)
}

func TestParseTemplateYAML(t *testing.T) {
	stage, err := ParseTemplateYAML([]byte(`
template:
  identifier: ci_build
  name: CI Build
  type: Stage
  spec:
    type: CI
    infrastructure:
      type: VM
`))
	require.NoError(t, err)
	assert.True(t, stage.IsCIStage())
	assert.Equal(t, "VM", stage.InfraLabel())

	pipe, err := ParseTemplateYAML([]byte(`
template:
  identifier: golden
  type: Pipeline
  spec:
    stages:
      - stage:
          identifier: b
          type: CI
          spec: {}
`))
	require.NoError(t, err)
	assert.False(t, pipe.IsCIStage())
	require.Len(t, pipe.Stages, 1)
	assert.Equal(t, DefaultInfrastructure, pipe.Stages[0].(SimpleStage).InfraLabel())
}

func TestParseYAML_Malformed(t *testing.T) {
	_, err := ParsePipelineYAML([]byte("pipeline: [unterminated"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "pipeline yaml", pe.What)

	_, err = ParseTemplateYAML([]byte("template:\n  stages: {a: b\n"))
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "template yaml", pe.What)
}
