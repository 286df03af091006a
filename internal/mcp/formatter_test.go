package mcp

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/maraichr/pipescope/internal/inventory"
	"github.com/maraichr/pipescope/internal/store/postgres"
)

func TestResponseBuilder_DefaultMaxTokens(t *testing.T) {
	rb := NewResponseBuilder(0)
	if rb.maxTokens != defaultMaxTokens {
		t.Errorf("default max tokens should be %d, got %d", defaultMaxTokens, rb.maxTokens)
	}
}

func TestResponseBuilder_Truncates(t *testing.T) {
	rb := NewResponseBuilder(10)
	rb.AddHeader("**Runs**")
	added := 0
	for i := 0; i < 10; i++ {
		if !rb.AddLine(strings.Repeat("x", 20)) {
			break
		}
		added++
	}
	if !rb.IsTruncated() {
		t.Fatal("expected truncation")
	}
	if rb.ItemCount() != added {
		t.Errorf("item count %d, added %d", rb.ItemCount(), added)
	}
	out := rb.Finalize(10, added)
	if !strings.Contains(out, "Showing") {
		t.Errorf("expected truncation notice, got %q", out)
	}
}

func TestResponseBuilder_NoNoticeWhenComplete(t *testing.T) {
	rb := NewResponseBuilder(100)
	rb.AddLine("- one")
	if out := rb.Finalize(1, 1); strings.Contains(out, "Showing") {
		t.Errorf("unexpected notice in %q", out)
	}
}

func TestFormatRunLine(t *testing.T) {
	msg := "list organizations: 401"
	run := postgres.InventoryRun{
		ID:           uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		Status:       postgres.RunStatusFailed,
		Trigger:      "schedule",
		ErrorMessage: &msg,
		CreatedAt:    time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	}
	got := FormatRunLine(run)
	want := "- `00000000-0000-0000-0000-000000000001` **failed** (schedule) created 2026-03-01 08:30 | error: list organizations: 401"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestFormatOrgLine_SortsInfra(t *testing.T) {
	line := FormatOrgLine(inventory.OrgSummary{
		OrgID:           "eng",
		InfraCounts:     map[string]int{"VM": 1, "Docker": 3},
		InfraPercentage: map[string]string{"VM": "25.00%", "Docker": "75.00%"},
	})
	if !strings.HasSuffix(line, "Docker 3 (75.00%), VM 1 (25.00%)") {
		t.Errorf("unexpected line %q", line)
	}
}
