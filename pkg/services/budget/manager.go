package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/de-tools/lakespend/pkg/services/tags"
	"github.com/de-tools/lakespend/pkg/store/client"
	"github.com/de-tools/lakespend/pkg/store/databrickssql/usage"
	"github.com/rs/zerolog"
)

var errSpendUnavailable = fmt.Errorf("%w: policy spend requires a sql warehouse", domain.ErrUnsupported)

type Manager interface {
	// CreatePolicy stores a new policy and returns its id. Thresholds default to
	// domain.DefaultAlertThresholds when empty and are passed through unvalidated.
	CreatePolicy(
		ctx context.Context,
		name, displayName string,
		maxMonthlyBudget float64,
		thresholds []float64,
	) (string, error)
	GetPolicy(ctx context.Context, policyID string) (*domain.BudgetPolicy, error)
	ListPolicies(ctx context.Context) ([]domain.BudgetPolicy, error)
	UpdatePolicy(ctx context.Context, policyID string, update domain.PolicyUpdate) (*domain.BudgetPolicy, error)
	DeletePolicy(ctx context.Context, policyID string) error

	// ApplyPolicy associates a resource with a policy through the budget_policy_id tag.
	ApplyPolicy(ctx context.Context, t domain.ResourceType, id, policyID string) (*domain.UpdateResult, error)
	ResourcesWithPolicy(ctx context.Context, policyID string) (domain.PolicyResources, error)
	ComplianceReport(ctx context.Context) (*domain.BudgetComplianceReport, error)

	CreateBudget(ctx context.Context, budget domain.Budget) (*domain.Budget, error)
	GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error)
	ListBudgets(ctx context.Context) ([]domain.Budget, error)
	UpdateBudget(ctx context.Context, budgetID string, update domain.BudgetUpdate) (*domain.Budget, error)
	DeleteBudget(ctx context.Context, budgetID string) error

	PolicySpend(ctx context.Context, policyID string) (*domain.PolicySpend, error)
}

type budgetManager struct {
	tags     tags.Manager
	policies client.PolicyStore
	budgets  client.BudgetStore
	spend    usage.Store
	now      func() time.Time
}

// NewManager builds a budget manager. policies and budgets are nil when no account
// is configured, spend is nil when no SQL warehouse is configured.
func NewManager(
	tagManager tags.Manager,
	policies client.PolicyStore,
	budgets client.BudgetStore,
	spend usage.Store,
) Manager {
	return &budgetManager{
		tags:     tagManager,
		policies: policies,
		budgets:  budgets,
		spend:    spend,
		now:      time.Now,
	}
}

func (m *budgetManager) CreatePolicy(
	ctx context.Context,
	name, displayName string,
	maxMonthlyBudget float64,
	thresholds []float64,
) (string, error) {
	if err := m.requirePolicies(); err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: policy name is required", domain.ErrInvalidArgument)
	}
	if len(thresholds) == 0 {
		thresholds = append([]float64{}, domain.DefaultAlertThresholds...)
	}

	created, err := m.policies.Create(ctx, domain.BudgetPolicy{
		Name:             name,
		DisplayName:      displayName,
		MaxMonthlyBudget: maxMonthlyBudget,
		AlertThresholds:  thresholds,
	})
	if err != nil {
		return "", err
	}

	zerolog.Ctx(ctx).Info().
		Str("policy_id", created.PolicyID).
		Str("name", name).
		Msg("created budget policy")
	return created.PolicyID, nil
}

func (m *budgetManager) GetPolicy(ctx context.Context, policyID string) (*domain.BudgetPolicy, error) {
	if err := m.requirePolicies(); err != nil {
		return nil, err
	}
	if err := requireID("policy id", policyID); err != nil {
		return nil, err
	}
	return m.policies.Get(ctx, policyID)
}

func (m *budgetManager) ListPolicies(ctx context.Context) ([]domain.BudgetPolicy, error) {
	if err := m.requirePolicies(); err != nil {
		return nil, err
	}
	return m.policies.List(ctx)
}

func (m *budgetManager) UpdatePolicy(
	ctx context.Context,
	policyID string,
	update domain.PolicyUpdate,
) (*domain.BudgetPolicy, error) {
	policy, err := m.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		policy.Name = *update.Name
	}
	if update.DisplayName != nil {
		policy.DisplayName = *update.DisplayName
	}
	if update.MaxMonthlyBudget != nil {
		policy.MaxMonthlyBudget = *update.MaxMonthlyBudget
	}
	if update.AlertThresholds != nil {
		policy.AlertThresholds = update.AlertThresholds
	}

	updated, err := m.policies.Update(ctx, *policy)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("policy_id", policyID).Msg("updated budget policy")
	return updated, nil
}

func (m *budgetManager) DeletePolicy(ctx context.Context, policyID string) error {
	if err := m.requirePolicies(); err != nil {
		return err
	}
	if err := requireID("policy id", policyID); err != nil {
		return err
	}
	if err := m.policies.Delete(ctx, policyID); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("policy_id", policyID).Msg("deleted budget policy")
	return nil
}

func (m *budgetManager) ApplyPolicy(
	ctx context.Context,
	t domain.ResourceType,
	id, policyID string,
) (*domain.UpdateResult, error) {
	if err := requireID("policy id", policyID); err != nil {
		return nil, err
	}
	return m.tags.UpdateTags(ctx, t, id, domain.TagMap{domain.BudgetPolicyTagKey: policyID}, domain.OperationMerge)
}

func (m *budgetManager) ResourcesWithPolicy(ctx context.Context, policyID string) (domain.PolicyResources, error) {
	if err := requireID("policy id", policyID); err != nil {
		return nil, err
	}

	matches, errs := m.tags.FindByTag(ctx, domain.BudgetPolicyTagKey, &policyID)
	for _, e := range errs {
		zerolog.Ctx(ctx).Warn().
			Str("resource_type", e.ResourceType.String()).
			Str("error", e.Error).
			Msg("resource type skipped while grouping policy resources")
	}

	grouped := domain.NewPolicyResources()
	for _, match := range matches {
		bucket := match.ResourceType.Bucket()
		grouped[bucket] = append(grouped[bucket], domain.ResourceRef{ID: match.ResourceID, Name: match.ResourceName})
	}
	return grouped, nil
}

func (m *budgetManager) ComplianceReport(ctx context.Context) (*domain.BudgetComplianceReport, error) {
	report := &domain.BudgetComplianceReport{}

	policies, err := m.ListPolicies(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("budget compliance report continues without policy details")
		report.Errors = append(report.Errors, domain.ScanError{Error: fmt.Sprintf("failed to list budget policies: %v", err)})
	}
	report.Policies = policies
	report.PolicyUsage = make(map[string]domain.PolicyUsage, len(policies))
	names := make(map[string]string, len(policies))
	for _, p := range policies {
		names[p.PolicyID] = p.Name
		report.PolicyUsage[p.PolicyID] = domain.PolicyUsage{
			PolicyName: p.Name,
			Resources:  domain.NewPolicyResources(),
		}
	}

	for _, t := range m.tags.SupportedTypes() {
		resources, err := m.tags.ListAllWithTags(ctx, t)
		if err != nil {
			report.Errors = append(report.Errors, domain.ScanError{ResourceType: t, Error: err.Error()})
			continue
		}
		for _, r := range resources {
			report.ResourceCoverage.TotalResources++

			policyID, ok := r.Tags[domain.BudgetPolicyTagKey]
			if !ok {
				continue
			}
			report.ResourceCoverage.ResourcesWithPolicy++

			usage, ok := report.PolicyUsage[policyID]
			if !ok {
				usage = domain.PolicyUsage{PolicyName: names[policyID], Resources: domain.NewPolicyResources()}
			}
			usage.ResourceCount++
			usage.Resources[t.Bucket()] = append(usage.Resources[t.Bucket()], domain.ResourceRef{ID: r.ID, Name: r.Name})
			report.PolicyUsage[policyID] = usage
		}
	}

	if total := report.ResourceCoverage.TotalResources; total > 0 {
		report.ResourceCoverage.CoverageRate = float64(report.ResourceCoverage.ResourcesWithPolicy) / float64(total)
	}
	return report, nil
}

func (m *budgetManager) CreateBudget(ctx context.Context, budget domain.Budget) (*domain.Budget, error) {
	if err := m.requireBudgets(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(budget.DisplayName) == "" {
		return nil, fmt.Errorf("%w: budget display name is required", domain.ErrInvalidArgument)
	}
	created, err := m.budgets.Create(ctx, budget)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().
		Str("budget_id", created.BudgetID).
		Str("policy_id", created.PolicyID).
		Msg("created budget")
	return created, nil
}

func (m *budgetManager) GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error) {
	if err := m.requireBudgets(); err != nil {
		return nil, err
	}
	if err := requireID("budget id", budgetID); err != nil {
		return nil, err
	}
	return m.budgets.Get(ctx, budgetID)
}

func (m *budgetManager) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	if err := m.requireBudgets(); err != nil {
		return nil, err
	}
	return m.budgets.List(ctx)
}

func (m *budgetManager) UpdateBudget(
	ctx context.Context,
	budgetID string,
	update domain.BudgetUpdate,
) (*domain.Budget, error) {
	budget, err := m.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if update.DisplayName != nil {
		budget.DisplayName = *update.DisplayName
	}
	if update.AlertEmails != nil {
		budget.AlertEmails = update.AlertEmails
	}
	if update.MonthlyThreshold != nil {
		budget.MonthlyThreshold = *update.MonthlyThreshold
	}
	return m.budgets.Update(ctx, *budget)
}

func (m *budgetManager) DeleteBudget(ctx context.Context, budgetID string) error {
	if err := m.requireBudgets(); err != nil {
		return err
	}
	if err := requireID("budget id", budgetID); err != nil {
		return err
	}
	if err := m.budgets.Delete(ctx, budgetID); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("budget_id", budgetID).Msg("deleted budget")
	return nil
}

// PolicySpend prices the usage tagged with the policy since the start of the current
// UTC month and compares it with the policy budget.
func (m *budgetManager) PolicySpend(ctx context.Context, policyID string) (*domain.PolicySpend, error) {
	if m.spend == nil {
		return nil, errSpendUnavailable
	}
	policy, err := m.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	spend, err := m.spend.GetTagSpend(ctx, domain.BudgetPolicyTagKey, policyID, start, now)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("policy_id", policyID).Msg("failed to get policy spend")
		return nil, fmt.Errorf("%w: failed to get policy spend: %w", domain.ErrUpstream, err)
	}

	out := &domain.PolicySpend{
		PolicyID:          policyID,
		Currency:          spend.Currency,
		PeriodStart:       start,
		MonthToDate:       spend.Amount,
		MaxMonthlyBudget:  policy.MaxMonthlyBudget,
		CrossedThresholds: []float64{},
	}
	if policy.MaxMonthlyBudget > 0 {
		out.Utilization = spend.Amount / policy.MaxMonthlyBudget
		for _, t := range policy.AlertThresholds {
			if out.Utilization >= t {
				out.CrossedThresholds = append(out.CrossedThresholds, t)
			}
		}
	}
	return out, nil
}

func (m *budgetManager) requirePolicies() error {
	if m.policies == nil {
		return domain.ErrAccountNotConfigured
	}
	return nil
}

func (m *budgetManager) requireBudgets() error {
	if m.budgets == nil {
		return domain.ErrAccountNotConfigured
	}
	return nil
}

func requireID(what, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, what)
	}
	return nil
}
