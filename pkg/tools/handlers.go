package tools

import (
	"context"
	"encoding/json"

	"github.com/de-tools/lakespend/pkg/adapters"
	"github.com/de-tools/lakespend/pkg/models/api"
	"github.com/de-tools/lakespend/pkg/models/domain"
)

type toolSet struct {
	h Handlers
}

type resourceArgs struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
}

func (a resourceArgs) parse() (domain.ResourceType, error) {
	return domain.ParseResourceType(a.ResourceType)
}

type updateTagsArgs struct {
	resourceArgs
	Tags      map[string]string `json:"tags"`
	Operation string            `json:"operation"`
}

type tagKeyArgs struct {
	resourceArgs
	Key   string `json:"key"`
	Value string `json:"value"`
}

type bulkArgs struct {
	Resources []api.BulkEntry   `json:"resources"`
	Tags      map[string]string `json:"tags"`
	Operation string            `json:"operation"`
}

type findArgs struct {
	TagKey   string  `json:"tag_key"`
	TagValue *string `json:"tag_value"`
}

type complianceArgs struct {
	RequiredTags []string `json:"required_tags"`
}

type policyArgs struct {
	PolicyID         string    `json:"policy_id"`
	Name             *string   `json:"name"`
	DisplayName      *string   `json:"display_name"`
	MaxMonthlyBudget *float64  `json:"max_monthly_budget"`
	AlertThresholds  []float64 `json:"alert_thresholds"`
}

type applyPolicyArgs struct {
	resourceArgs
	PolicyID string `json:"policy_id"`
}

type budgetArgs struct {
	BudgetID         string   `json:"budget_id"`
	DisplayName      *string  `json:"display_name"`
	PolicyID         string   `json:"policy_id"`
	MonthlyThreshold *float64 `json:"monthly_threshold"`
	AlertEmails      []string `json:"alert_emails"`
}

func (t *toolSet) status(ctx context.Context) api.ServerStatus {
	info := t.h.Info
	info.SupportedResourceTypes = adapters.MapResourceTypesDomainToApi(t.h.Tags.SupportedTypes())
	info.Tools = Names()

	status := api.ServerStatus{Status: "ok", Server: info}
	if t.h.Connection != nil {
		status.Connection = adapters.MapConnectionInfoDomainToApi(t.h.Connection.Check(ctx))
		if !status.Connection.Connected {
			status.Status = "degraded"
		}
	}
	return status
}

func (t *toolSet) serverStatus(ctx context.Context, _ json.RawMessage) (any, error) {
	return t.status(ctx), nil
}

func (t *toolSet) listResourceTags(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[resourceArgs](raw)
	if err != nil {
		return nil, err
	}
	rt, err := args.parse()
	if err != nil {
		return nil, err
	}
	tags, err := t.h.Tags.GetTags(ctx, rt, args.ResourceID)
	if err != nil {
		return nil, err
	}
	return api.ResourceTags{
		ResourceType: rt.String(),
		ResourceID:   args.ResourceID,
		Tags:         adapters.MapTagMapDomainToApi(tags),
	}, nil
}

func (t *toolSet) updateResourceTags(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[updateTagsArgs](raw)
	if err != nil {
		return nil, err
	}
	rt, err := args.parse()
	if err != nil {
		return nil, err
	}
	op, err := domain.ParseOperation(args.Operation)
	if err != nil {
		return nil, err
	}
	result, err := t.h.Tags.UpdateTags(ctx, rt, args.ResourceID, args.Tags, op)
	if err != nil {
		return nil, err
	}
	return adapters.MapUpdateResultDomainToApi(*result), nil
}

func (t *toolSet) setResourceTag(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[tagKeyArgs](raw)
	if err != nil {
		return nil, err
	}
	rt, err := args.parse()
	if err != nil {
		return nil, err
	}
	result, err := t.h.Tags.SetTag(ctx, rt, args.ResourceID, args.Key, args.Value)
	if err != nil {
		return nil, err
	}
	return adapters.MapUpdateResultDomainToApi(*result), nil
}

func (t *toolSet) removeResourceTag(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[tagKeyArgs](raw)
	if err != nil {
		return nil, err
	}
	rt, err := args.parse()
	if err != nil {
		return nil, err
	}
	result, err := t.h.Tags.RemoveTag(ctx, rt, args.ResourceID, args.Key)
	if err != nil {
		return nil, err
	}
	return adapters.MapUpdateResultDomainToApi(*result), nil
}

func (t *toolSet) listResourcesWithTags(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[resourceArgs](raw)
	if err != nil {
		return nil, err
	}
	rt, err := args.parse()
	if err != nil {
		return nil, err
	}
	resources, err := t.h.Tags.ListAllWithTags(ctx, rt)
	if err != nil {
		return nil, err
	}
	return adapters.MapResourceListDomainToApi(rt, resources), nil
}

func (t *toolSet) bulkUpdateTags(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[bulkArgs](raw)
	if err != nil {
		return nil, err
	}
	op, err := domain.ParseOperation(args.Operation)
	if err != nil {
		return nil, err
	}
	outcomes := t.h.Tags.BulkUpdate(ctx, adapters.MapBulkEntriesApiToDomain(args.Resources), args.Tags, op)
	return adapters.MapBulkOutcomesDomainToApi(outcomes), nil
}

func (t *toolSet) findResourcesByTag(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[findArgs](raw)
	if err != nil {
		return nil, err
	}
	matches, errs := t.h.Tags.FindByTag(ctx, args.TagKey, args.TagValue)
	return adapters.MapFindResultDomainToApi(args.TagKey, args.TagValue, matches, errs), nil
}

func (t *toolSet) tagComplianceReport(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[complianceArgs](raw)
	if err != nil {
		return nil, err
	}
	report := t.h.Tags.ComplianceReport(ctx, args.RequiredTags)
	return adapters.MapComplianceReportDomainToApi(*report), nil
}

func (t *toolSet) createBudgetPolicy(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[policyArgs](raw)
	if err != nil {
		return nil, err
	}
	var name, displayName string
	var maxBudget float64
	if args.Name != nil {
		name = *args.Name
	}
	if args.DisplayName != nil {
		displayName = *args.DisplayName
	}
	if args.MaxMonthlyBudget != nil {
		maxBudget = *args.MaxMonthlyBudget
	}
	id, err := t.h.Budget.CreatePolicy(ctx, name, displayName, maxBudget, args.AlertThresholds)
	if err != nil {
		return nil, err
	}
	policy, err := t.h.Budget.GetPolicy(ctx, id)
	if err != nil {
		return nil, err
	}
	return adapters.MapBudgetPolicyDomainToApi(*policy), nil
}

func (t *toolSet) getBudgetPolicy(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[policyArgs](raw)
	if err != nil {
		return nil, err
	}
	policy, err := t.h.Budget.GetPolicy(ctx, args.PolicyID)
	if err != nil {
		return nil, err
	}
	return adapters.MapBudgetPolicyDomainToApi(*policy), nil
}

func (t *toolSet) listBudgetPolicies(ctx context.Context, _ json.RawMessage) (any, error) {
	policies, err := t.h.Budget.ListPolicies(ctx)
	if err != nil {
		return nil, err
	}
	return adapters.MapBudgetPoliciesDomainToApi(policies), nil
}

func (t *toolSet) updateBudgetPolicy(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[policyArgs](raw)
	if err != nil {
		return nil, err
	}
	policy, err := t.h.Budget.UpdatePolicy(ctx, args.PolicyID, domain.PolicyUpdate{
		Name:             args.Name,
		DisplayName:      args.DisplayName,
		MaxMonthlyBudget: args.MaxMonthlyBudget,
		AlertThresholds:  args.AlertThresholds,
	})
	if err != nil {
		return nil, err
	}
	return adapters.MapBudgetPolicyDomainToApi(*policy), nil
}

func (t *toolSet) deleteBudgetPolicy(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[policyArgs](raw)
	if err != nil {
		return nil, err
	}
	if err := t.h.Budget.DeletePolicy(ctx, args.PolicyID); err != nil {
		return nil, err
	}
	return api.Deleted{ID: args.PolicyID, Deleted: true}, nil
}

func (t *toolSet) applyBudgetPolicy(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[applyPolicyArgs](raw)
	if err != nil {
		return nil, err
	}
	rt, err := args.parse()
	if err != nil {
		return nil, err
	}
	result, err := t.h.Budget.ApplyPolicy(ctx, rt, args.ResourceID, args.PolicyID)
	if err != nil {
		return nil, err
	}
	return adapters.MapUpdateResultDomainToApi(*result), nil
}

func (t *toolSet) resourcesWithPolicy(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[policyArgs](raw)
	if err != nil {
		return nil, err
	}
	grouped, err := t.h.Budget.ResourcesWithPolicy(ctx, args.PolicyID)
	if err != nil {
		return nil, err
	}
	return adapters.MapPolicyResourcesDomainToApi(args.PolicyID, grouped), nil
}

func (t *toolSet) budgetComplianceReport(ctx context.Context, _ json.RawMessage) (any, error) {
	report, err := t.h.Budget.ComplianceReport(ctx)
	if err != nil {
		return nil, err
	}
	return adapters.MapBudgetComplianceReportDomainToApi(*report), nil
}

func (t *toolSet) budgetPolicySpend(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[policyArgs](raw)
	if err != nil {
		return nil, err
	}
	spend, err := t.h.Budget.PolicySpend(ctx, args.PolicyID)
	if err != nil {
		return nil, err
	}
	return adapters.MapPolicySpendDomainToApi(*spend), nil
}

func (t *toolSet) createBudget(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[budgetArgs](raw)
	if err != nil {
		return nil, err
	}
	b := domain.Budget{PolicyID: args.PolicyID, AlertEmails: args.AlertEmails}
	if args.DisplayName != nil {
		b.DisplayName = *args.DisplayName
	}
	if args.MonthlyThreshold != nil {
		b.MonthlyThreshold = *args.MonthlyThreshold
	}
	created, err := t.h.Budget.CreateBudget(ctx, b)
	if err != nil {
		return nil, err
	}
	return adapters.MapBudgetDomainToApi(*created), nil
}

func (t *toolSet) getBudget(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[budgetArgs](raw)
	if err != nil {
		return nil, err
	}
	b, err := t.h.Budget.GetBudget(ctx, args.BudgetID)
	if err != nil {
		return nil, err
	}
	return adapters.MapBudgetDomainToApi(*b), nil
}

func (t *toolSet) listBudgets(ctx context.Context, _ json.RawMessage) (any, error) {
	budgets, err := t.h.Budget.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	return adapters.MapBudgetsDomainToApi(budgets), nil
}

func (t *toolSet) updateBudget(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[budgetArgs](raw)
	if err != nil {
		return nil, err
	}
	b, err := t.h.Budget.UpdateBudget(ctx, args.BudgetID, domain.BudgetUpdate{
		DisplayName:      args.DisplayName,
		AlertEmails:      args.AlertEmails,
		MonthlyThreshold: args.MonthlyThreshold,
	})
	if err != nil {
		return nil, err
	}
	return adapters.MapBudgetDomainToApi(*b), nil
}

func (t *toolSet) deleteBudget(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decode[budgetArgs](raw)
	if err != nil {
		return nil, err
	}
	if err := t.h.Budget.DeleteBudget(ctx, args.BudgetID); err != nil {
		return nil, err
	}
	return api.Deleted{ID: args.BudgetID, Deleted: true}, nil
}
