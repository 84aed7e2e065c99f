package adapters

import (
	"github.com/de-tools/lakespend/pkg/models/api"
	"github.com/de-tools/lakespend/pkg/models/domain"
)

func MapBudgetPolicyDomainToApi(p domain.BudgetPolicy) api.BudgetPolicy {
	thresholds := p.AlertThresholds
	if thresholds == nil {
		thresholds = []float64{}
	}
	return api.BudgetPolicy{
		PolicyID:         p.PolicyID,
		Name:             p.Name,
		DisplayName:      p.DisplayName,
		MaxMonthlyBudget: p.MaxMonthlyBudget,
		AlertThresholds:  thresholds,
		CustomTags:       MapTagMapDomainToApi(p.CustomTags),
		CreatedTime:      p.CreatedTime,
		UpdatedTime:      p.UpdatedTime,
	}
}

func MapBudgetPoliciesDomainToApi(policies []domain.BudgetPolicy) []api.BudgetPolicy {
	res := make([]api.BudgetPolicy, 0, len(policies))
	for _, p := range policies {
		res = append(res, MapBudgetPolicyDomainToApi(p))
	}
	return res
}

func mapPolicyResourceBuckets(pr domain.PolicyResources) map[string][]api.ResourceRef {
	res := make(map[string][]api.ResourceRef, len(pr))
	for bucket, refs := range pr {
		out := make([]api.ResourceRef, 0, len(refs))
		for _, r := range refs {
			out = append(out, api.ResourceRef{ID: r.ID, Name: r.Name})
		}
		res[bucket] = out
	}
	return res
}

func MapPolicyResourcesDomainToApi(policyID string, pr domain.PolicyResources) api.PolicyResources {
	return api.PolicyResources{
		PolicyID:       policyID,
		TotalResources: pr.Count(),
		Resources:      mapPolicyResourceBuckets(pr),
	}
}

func MapBudgetComplianceReportDomainToApi(r domain.BudgetComplianceReport) api.BudgetComplianceReport {
	res := api.BudgetComplianceReport{
		Policies: MapBudgetPoliciesDomainToApi(r.Policies),
		ResourceCoverage: api.ResourceCoverage{
			TotalResources:      r.ResourceCoverage.TotalResources,
			ResourcesWithPolicy: r.ResourceCoverage.ResourcesWithPolicy,
			CoverageRate:        r.ResourceCoverage.CoverageRate,
		},
		PolicyUsage: make(map[string]api.PolicyUsage, len(r.PolicyUsage)),
		Errors:      MapScanErrorsDomainToApi(r.Errors),
	}
	for id, u := range r.PolicyUsage {
		res.PolicyUsage[id] = api.PolicyUsage{
			PolicyName:    u.PolicyName,
			ResourceCount: u.ResourceCount,
			Resources:     mapPolicyResourceBuckets(u.Resources),
		}
	}
	return res
}

func MapBudgetDomainToApi(b domain.Budget) api.Budget {
	emails := b.AlertEmails
	if emails == nil {
		emails = []string{}
	}
	return api.Budget{
		BudgetID:         b.BudgetID,
		DisplayName:      b.DisplayName,
		PolicyID:         b.PolicyID,
		AlertEmails:      emails,
		MonthlyThreshold: b.MonthlyThreshold,
		CreatedTime:      b.CreatedTime,
		UpdatedTime:      b.UpdatedTime,
	}
}

func MapBudgetsDomainToApi(budgets []domain.Budget) []api.Budget {
	res := make([]api.Budget, 0, len(budgets))
	for _, b := range budgets {
		res = append(res, MapBudgetDomainToApi(b))
	}
	return res
}

func MapPolicySpendDomainToApi(s domain.PolicySpend) api.PolicySpend {
	return api.PolicySpend{
		PolicyID:          s.PolicyID,
		Currency:          s.Currency,
		PeriodStart:       s.PeriodStart,
		MonthToDate:       s.MonthToDate,
		MaxMonthlyBudget:  s.MaxMonthlyBudget,
		Utilization:       s.Utilization,
		CrossedThresholds: append([]float64{}, s.CrossedThresholds...),
	}
}
