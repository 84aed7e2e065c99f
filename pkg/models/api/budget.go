package api

import "time"

type BudgetPolicy struct {
	PolicyID         string            `json:"policy_id"`
	Name             string            `json:"name"`
	DisplayName      string            `json:"display_name,omitempty"`
	MaxMonthlyBudget float64           `json:"max_monthly_budget"`
	AlertThresholds  []float64         `json:"alert_thresholds"`
	CustomTags       map[string]string `json:"custom_tags,omitempty"`
	CreatedTime      *time.Time        `json:"created_time,omitempty"`
	UpdatedTime      *time.Time        `json:"updated_time,omitempty"`
}

type ResourceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PolicyResources struct {
	PolicyID       string                   `json:"policy_id"`
	TotalResources int                      `json:"total_resources"`
	Resources      map[string][]ResourceRef `json:"resources"`
}

type ResourceCoverage struct {
	TotalResources      int     `json:"total_resources"`
	ResourcesWithPolicy int     `json:"resources_with_policy"`
	CoverageRate        float64 `json:"coverage_rate"`
}

type PolicyUsage struct {
	PolicyName    string                   `json:"policy_name"`
	ResourceCount int                      `json:"resource_count"`
	Resources     map[string][]ResourceRef `json:"resources"`
}

type BudgetComplianceReport struct {
	Policies         []BudgetPolicy         `json:"policies"`
	ResourceCoverage ResourceCoverage       `json:"resource_coverage"`
	PolicyUsage      map[string]PolicyUsage `json:"policy_usage"`
	Errors           []ScanError            `json:"errors,omitempty"`
}

type Budget struct {
	BudgetID         string     `json:"budget_id"`
	DisplayName      string     `json:"display_name"`
	PolicyID         string     `json:"policy_id,omitempty"`
	AlertEmails      []string   `json:"alert_emails"`
	MonthlyThreshold float64    `json:"monthly_threshold"`
	CreatedTime      *time.Time `json:"created_time,omitempty"`
	UpdatedTime      *time.Time `json:"updated_time,omitempty"`
}

type PolicySpend struct {
	PolicyID          string    `json:"policy_id"`
	Currency          string    `json:"currency"`
	PeriodStart       time.Time `json:"period_start"`
	MonthToDate       float64   `json:"month_to_date"`
	MaxMonthlyBudget  float64   `json:"max_monthly_budget"`
	Utilization       float64   `json:"utilization"`
	CrossedThresholds []float64 `json:"crossed_thresholds"`
}

type Deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
