package store

import (
	"encoding/json"
	"io/fs"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maraichr/pipescope/internal/inventory"
	"github.com/maraichr/pipescope/internal/store/postgres"
)

func TestRecordRows(t *testing.T) {
	id := uuid.New()
	rows := RecordRows(id, []inventory.PipelineRecord{
		{PipelineID: "build", OrgID: "eng", ProjectID: "web", Name: "Build", CIStages: 2, TotalStages: 3, AvgBuildTime: 1500 * time.Millisecond, MaxBuildTime: 2 * time.Second},
	})
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, id, r.RunID)
	assert.Equal(t, int32(2), r.CIStages)
	assert.Equal(t, int64(1500), r.AvgBuildMs)
	assert.Equal(t, int64(2000), r.MaxBuildMs)
	// text[] NOT NULL columns never receive nil slices.
	assert.NotNil(t, r.Infra)
	assert.NotNil(t, r.TemplatesUsed)
}

func TestUsageRows_Sorted(t *testing.T) {
	rows := UsageRows(uuid.Nil, map[string]int{"org/eng/b@v1": 1, "account/a@v1": 4})
	require.Len(t, rows, 2)
	assert.Equal(t, "account/a@v1", rows[0].TemplateRef)
	assert.Equal(t, int32(4), rows[0].Count)
}

func TestSummaryRoundTrip(t *testing.T) {
	r := &inventory.Report{
		Account:  inventory.AccountSummary{Organizations: 2, Pipelines: 5},
		Orgs:     map[string]inventory.OrgSummary{"b": {OrgID: "b", Pipelines: 3}, "a": {OrgID: "a", Pipelines: 2}},
		OrgOrder: []string{"b", "a"},
	}
	data, err := json.Marshal(NewRunSummary(r))
	require.NoError(t, err)

	s, err := DecodeSummary(postgres.InventoryRun{Summary: data})
	require.NoError(t, err)
	assert.Equal(t, 5, s.Account.Pipelines)
	require.Len(t, s.Orgs, 2)
	assert.Equal(t, "b", s.Orgs[0].OrgID)
}

func TestDecodeSummary_Empty(t *testing.T) {
	s, err := DecodeSummary(postgres.InventoryRun{})
	require.NoError(t, err)
	assert.Zero(t, s.Account.Pipelines)
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, names)
}
