package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/lakespend/pkg/models/api"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	previous := color.NoColor
	color.NoColor = !enabled
	t.Cleanup(func() { color.NoColor = previous })
}

func TestReporter_Percent(t *testing.T) {
	withColor(t, true)
	r := NewReporter(&bytes.Buffer{})

	tests := []struct {
		name  string
		value float64
		code  string
		text  string
	}{
		{name: "good", value: 95, code: "\x1b[32m", text: "95.0%"},
		{name: "fair", value: 50, code: "\x1b[33m", text: "50.0%"},
		{name: "poor", value: 12.34, code: "\x1b[31m", text: "12.3%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.percent(tt.value)
			assert.True(t, strings.HasPrefix(got, tt.code+tt.text), got)
		})
	}
}

func TestReporter_TagCompliance(t *testing.T) {
	withColor(t, false)
	var buf bytes.Buffer
	r := NewReporter(&buf)

	report := api.ComplianceReport{
		Summary: api.ComplianceSummary{
			TotalResources:        4,
			CompliantResources:    3,
			NonCompliantResources: 1,
			CompliancePercentage:  75,
		},
		ByResourceType: map[string]api.TypeCompliance{
			"job":     {Total: 1, Compliant: 1, CompliancePercentage: 100},
			"cluster": {Total: 3, Compliant: 2, NonCompliant: 1, CompliancePercentage: 66.67},
		},
		RequiredTags: []string{"owner", "cost_center"},
		NonCompliantDetails: []api.NonCompliantResource{{
			ResourceType: "cluster",
			ResourceID:   "0101-abc",
			ResourceName: "etl",
			MissingTags:  []string{"cost_center"},
		}},
		Errors: []api.ScanError{{ResourceType: "table", Error: "warehouse offline"}},
	}

	require.NoError(t, r.TagCompliance(report))

	out := buf.String()
	assert.Contains(t, out, "Required tags: owner, cost_center")
	assert.Contains(t, out, "Compliance: 75.0%")
	assert.Contains(t, out, "cluster            2/3 66.7%")
	assert.Contains(t, out, "| cluster ")
	assert.Contains(t, out, "| 0101-abc ")
	assert.Contains(t, out, "! table: warehouse offline")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("cluster            2/3")), bytes.Index(buf.Bytes(), []byte("job ")))
}

func TestReporter_BudgetCompliance(t *testing.T) {
	withColor(t, false)
	var buf bytes.Buffer
	r := NewReporter(&buf)

	report := api.BudgetComplianceReport{
		Policies: []api.BudgetPolicy{{PolicyID: "p1", Name: "team-a"}},
		ResourceCoverage: api.ResourceCoverage{
			TotalResources:      2,
			ResourcesWithPolicy: 1,
			CoverageRate:        0.5,
		},
		PolicyUsage: map[string]api.PolicyUsage{
			"p1": {
				PolicyName:    "team-a",
				ResourceCount: 1,
				Resources:     map[string][]api.ResourceRef{"clusters": {{ID: "c1", Name: "etl"}}, "jobs": {}},
			},
		},
	}

	require.NoError(t, r.BudgetCompliance(report))

	out := buf.String()
	assert.Contains(t, out, "Policies: 1")
	assert.Contains(t, out, "Coverage: 50.0%")
	assert.Contains(t, out, "=== team-a [p1] ===")
	assert.Contains(t, out, "- clusters: etl (c1)")
}

func TestReporter_PolicySpend(t *testing.T) {
	withColor(t, false)
	var buf bytes.Buffer
	r := NewReporter(&buf)

	spend := api.PolicySpend{
		PolicyID:          "p1",
		Currency:          "USD",
		PeriodStart:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		MonthToDate:       80,
		MaxMonthlyBudget:  100,
		Utilization:       0.8,
		CrossedThresholds: []float64{0.5, 0.75},
	}

	require.NoError(t, r.PolicySpend(spend))

	out := buf.String()
	assert.Contains(t, out, "Period: 2025-06-01 to date")
	assert.Contains(t, out, "Spend: USD 80.00 of 100.00")
	assert.Contains(t, out, "Utilization: 80.0%")
	assert.Contains(t, out, "Crossed thresholds: 50.0% 75.0%")
}

func TestReporter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).JSON(api.Deleted{ID: "b1", Deleted: true}))
	assert.Equal(t, "{\n  \"id\": \"b1\",\n  \"deleted\": true\n}\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "ab", truncate("abcdefgh", 2))
}
