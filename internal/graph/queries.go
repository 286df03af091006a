package graph

// Cypher query constants for Neo4j operations.
const (
	CreateConstraintPipelineKey = `CREATE CONSTRAINT pipeline_key IF NOT EXISTS FOR (p:Pipeline) REQUIRE p.key IS UNIQUE`
	CreateConstraintTemplateRef = `CREATE CONSTRAINT template_ref IF NOT EXISTS FOR (t:Template) REQUIRE t.ref IS UNIQUE`

	// UpsertPipelineNode merges a pipeline by its org/project/pipeline key.
	UpsertPipelineNode = `
UNWIND $pipelines AS p
MERGE (n:Pipeline {key: p.key})
SET n.identifier = p.identifier,
    n.name = p.name,
    n.orgId = p.orgId,
    n.projectId = p.projectId,
    n.ciStages = p.ciStages,
    n.infra = p.infra,
    n.runId = $runId
`

	// UpsertTemplateNode merges a template by its scoped reference.
	UpsertTemplateNode = `
UNWIND $templates AS t
MERGE (n:Template {ref: t.ref})
SET n.usage = t.usage,
    n.runId = $runId
`

	// ClearPipelineTemplates drops USES_TEMPLATE edges of the given pipelines so
	// removed references disappear on resync.
	ClearPipelineTemplates = `
UNWIND $keys AS key
MATCH (:Pipeline {key: key})-[r:USES_TEMPLATE]->()
DELETE r
`

	// LinkPipelineTemplate creates USES_TEMPLATE relationships.
	LinkPipelineTemplate = `
UNWIND $edges AS e
MATCH (p:Pipeline {key: e.pipeline})
MATCH (t:Template {ref: e.template})
MERGE (p)-[:USES_TEMPLATE]->(t)
`

	// TopTemplates ranks templates by the number of pipelines using them.
	TopTemplates = `
MATCH (p:Pipeline)-[:USES_TEMPLATE]->(t:Template)
RETURN t.ref AS ref, count(DISTINCT p) AS pipelines
ORDER BY pipelines DESC, ref
LIMIT $limit
`

	// PipelinesUsingTemplate lists pipelines referencing a template.
	PipelinesUsingTemplate = `
MATCH (p:Pipeline)-[:USES_TEMPLATE]->(:Template {ref: $ref})
RETURN p.key AS key
ORDER BY key
`
)
