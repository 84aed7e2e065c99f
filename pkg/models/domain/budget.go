package domain

import (
	"fmt"
	"time"
)

var ErrAccountNotConfigured = fmt.Errorf("%w: account client not configured", ErrUnsupported)

// DefaultAlertThresholds are used when a policy is created without thresholds.
var DefaultAlertThresholds = []float64{0.5, 0.75, 0.9}

type BudgetPolicy struct {
	PolicyID         string
	Name             string
	DisplayName      string
	MaxMonthlyBudget float64
	AlertThresholds  []float64
	// CustomTags are the policy's own tags, attached to the spend it covers.
	CustomTags          TagMap
	BindingWorkspaceIDs []int64
	CreatedTime         *time.Time
	UpdatedTime         *time.Time
}

type PolicyUpdate struct {
	Name             *string
	DisplayName      *string
	MaxMonthlyBudget *float64
	AlertThresholds  []float64
}

// PolicyResources maps a resource bucket name (e.g. "clusters") to the resources
// carrying a policy.
type PolicyResources map[string][]ResourceRef

// NewPolicyResources returns a grouping with an empty bucket for every resource type.
func NewPolicyResources() PolicyResources {
	pr := make(PolicyResources, len(ResourceTypes))
	for _, t := range ResourceTypes {
		pr[t.Bucket()] = []ResourceRef{}
	}
	return pr
}

func (pr PolicyResources) Count() int {
	n := 0
	for _, refs := range pr {
		n += len(refs)
	}
	return n
}

type ResourceCoverage struct {
	TotalResources      int
	ResourcesWithPolicy int
	// CoverageRate is ResourcesWithPolicy / TotalResources, in [0, 1].
	CoverageRate float64
}

type PolicyUsage struct {
	PolicyName    string
	ResourceCount int
	Resources     PolicyResources
}

type BudgetComplianceReport struct {
	Policies         []BudgetPolicy
	ResourceCoverage ResourceCoverage
	PolicyUsage      map[string]PolicyUsage
	Errors           []ScanError
}

type Budget struct {
	BudgetID         string
	DisplayName      string
	PolicyID         string
	AlertEmails      []string
	MonthlyThreshold float64
	CreatedTime      *time.Time
	UpdatedTime      *time.Time
}

type BudgetUpdate struct {
	DisplayName      *string
	AlertEmails      []string
	MonthlyThreshold *float64
}

type PolicySpend struct {
	PolicyID          string
	Currency          string
	PeriodStart       time.Time
	MonthToDate       float64
	MaxMonthlyBudget  float64
	Utilization       float64
	CrossedThresholds []float64
}
