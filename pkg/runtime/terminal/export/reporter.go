package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/lakespend/pkg/adapters"
	"github.com/de-tools/lakespend/pkg/models/api"
	"github.com/fatih/color"
)

type TableConfig struct {
	TypeWidth    int
	IDWidth      int
	NameWidth    int
	MissingWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		TypeWidth:    18,
		IDWidth:      36,
		NameWidth:    32,
		MissingWidth: 32,
	}
}

// Percentages at or above Good print green, at or above Fair yellow, the rest red.
type Thresholds struct {
	Good float64
	Fair float64
}

var DefaultThresholds = Thresholds{Good: 90, Fair: 50}

type Reporter struct {
	writer     io.Writer
	config     TableConfig
	thresholds Thresholds
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer:     writer,
		config:     DefaultTableConfig(),
		thresholds: DefaultThresholds,
	}
}

// JSON writes v as indented JSON.
func (c *Reporter) JSON(v any) error {
	enc := json.NewEncoder(c.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func (c *Reporter) percent(v float64) string {
	text := fmt.Sprintf("%.1f%%", v)
	switch {
	case v >= c.thresholds.Good:
		return color.GreenString("%s", text)
	case v >= c.thresholds.Fair:
		return color.YellowString("%s", text)
	default:
		return color.RedString("%s", text)
	}
}

func (c *Reporter) funcs() template.FuncMap {
	return template.FuncMap{
		"percent": c.percent,
		"ratio": func(v float64) string {
			return c.percent(v * 100)
		},
		"join":      strings.Join,
		"typeNames": adapters.SortedTypeNames,
		"formatRow": func(kind, id, name, missing string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %-*s |",
				c.config.TypeWidth, kind,
				c.config.IDWidth, truncate(id, c.config.IDWidth),
				c.config.NameWidth, truncate(name, c.config.NameWidth),
				c.config.MissingWidth, truncate(missing, c.config.MissingWidth))
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.TypeWidth+2),
				strings.Repeat("-", c.config.IDWidth+2),
				strings.Repeat("-", c.config.NameWidth+2),
				strings.Repeat("-", c.config.MissingWidth+2))
		},
	}
}

const tagComplianceTmpl = `
Tag Compliance Report
Required tags: {{join .RequiredTags ", "}}
Resources: {{.Summary.TotalResources}} total, {{.Summary.CompliantResources}} compliant, {{.Summary.NonCompliantResources}} non-compliant
Compliance: {{percent .Summary.CompliancePercentage}}

=== By resource type ===
{{$types := .ByResourceType}}{{range $name := typeNames $types}}{{with index $types $name}}{{printf "%-18s" $name}} {{.Compliant}}/{{.Total}} {{percent .CompliancePercentage}}
{{end}}{{end}}{{if .NonCompliantDetails}}
=== Non-compliant resources ===
{{separator}}
{{formatRow "Type" "ID" "Name" "Missing"}}
{{separator}}
{{range .NonCompliantDetails}}{{formatRow .ResourceType .ResourceID .ResourceName (join .MissingTags ", ")}}
{{end}}{{separator}}
{{end}}{{range .Errors}}
! {{.ResourceType}}: {{.Error}}{{end}}
`

func (c *Reporter) TagCompliance(report api.ComplianceReport) error {
	return c.execute("tag_compliance", tagComplianceTmpl, report)
}

const budgetComplianceTmpl = `
Budget Policy Compliance Report
Policies: {{len .Policies}}
Resources: {{.ResourceCoverage.TotalResources}} total, {{.ResourceCoverage.ResourcesWithPolicy}} with a policy
Coverage: {{ratio .ResourceCoverage.CoverageRate}}
{{range $id, $usage := .PolicyUsage}}
=== {{if $usage.PolicyName}}{{$usage.PolicyName}}{{else}}(unknown policy){{end}} [{{$id}}] ===
Resources: {{$usage.ResourceCount}}
{{range $bucket, $refs := $usage.Resources}}{{range $refs}}- {{$bucket}}: {{.Name}} ({{.ID}})
{{end}}{{end}}{{end}}{{range .Errors}}
! {{if .ResourceType}}{{.ResourceType}}: {{end}}{{.Error}}{{end}}
`

func (c *Reporter) BudgetCompliance(report api.BudgetComplianceReport) error {
	return c.execute("budget_compliance", budgetComplianceTmpl, report)
}

const policySpendTmpl = `
Policy {{.PolicyID}}
Period: {{.PeriodStart.Format "2006-01-02"}} to date
Spend: {{.Currency}} {{printf "%.2f" .MonthToDate}} of {{printf "%.2f" .MaxMonthlyBudget}}
Utilization: {{ratio .Utilization}}
{{if .CrossedThresholds}}Crossed thresholds:{{range .CrossedThresholds}} {{ratio .}}{{end}}
{{end}}`

func (c *Reporter) PolicySpend(spend api.PolicySpend) error {
	return c.execute("policy_spend", policySpendTmpl, spend)
}

func (c *Reporter) execute(name, text string, data any) error {
	t, err := template.New(name).Funcs(c.funcs()).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, data)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
