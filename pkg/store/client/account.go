package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/config"
	"github.com/databricks/databricks-sdk-go/service/billing"
	"github.com/databricks/databricks-sdk-go/service/compute"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Budget policy attributes the account API has no field for are kept as policy custom tags.
const (
	policyDisplayNameTag = "lakespend_display_name"
	policyMaxBudgetTag   = "lakespend_max_monthly_budget"
	policyThresholdsTag  = "lakespend_alert_thresholds"
)

func NewAccountClient(cfg *config.Config) (*databricks.AccountClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if !cfg.IsAccountClient() {
		return nil, fmt.Errorf("config must have an account client type")
	}

	client, err := databricks.NewAccountClient((*databricks.Config)(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create account client: %w", err)
	}
	return client, nil
}

type PolicyStore interface {
	Create(ctx context.Context, policy domain.BudgetPolicy) (*domain.BudgetPolicy, error)
	Get(ctx context.Context, policyID string) (*domain.BudgetPolicy, error)
	List(ctx context.Context) ([]domain.BudgetPolicy, error)
	Update(ctx context.Context, policy domain.BudgetPolicy) (*domain.BudgetPolicy, error)
	Delete(ctx context.Context, policyID string) error
}

type BudgetPolicyAPI struct {
	Create func(ctx context.Context, req billing.CreateBudgetPolicyRequest) (*billing.BudgetPolicy, error)
	Get    func(ctx context.Context, policyID string) (*billing.BudgetPolicy, error)
	List   func(ctx context.Context) ([]billing.BudgetPolicy, error)
	Update func(ctx context.Context, req billing.UpdateBudgetPolicyRequest) (*billing.BudgetPolicy, error)
	Delete func(ctx context.Context, policyID string) error
}

type policyStore struct {
	api BudgetPolicyAPI
}

func NewPolicyStore(api BudgetPolicyAPI) PolicyStore {
	return &policyStore{api: api}
}

func NewAccountPolicyStore(a *databricks.AccountClient) PolicyStore {
	return NewPolicyStore(BudgetPolicyAPI{
		Create: a.BudgetPolicy.Create,
		Get: func(ctx context.Context, policyID string) (*billing.BudgetPolicy, error) {
			return a.BudgetPolicy.Get(ctx, billing.GetBudgetPolicyRequest{PolicyId: policyID})
		},
		List: func(ctx context.Context) ([]billing.BudgetPolicy, error) {
			return a.BudgetPolicy.ListAll(ctx, billing.ListBudgetPoliciesRequest{})
		},
		Update: a.BudgetPolicy.Update,
		Delete: func(ctx context.Context, policyID string) error {
			return a.BudgetPolicy.Delete(ctx, billing.DeleteBudgetPolicyRequest{PolicyId: policyID})
		},
	})
}

func (s *policyStore) Create(ctx context.Context, policy domain.BudgetPolicy) (*domain.BudgetPolicy, error) {
	created, err := s.api.Create(ctx, billing.CreateBudgetPolicyRequest{
		Policy:    toBudgetPolicy(policy),
		RequestId: uuid.NewString(),
	})
	if err != nil {
		return nil, accountError(ctx, "create budget policy", policy.Name, err)
	}
	out := fromBudgetPolicy(*created)
	return &out, nil
}

func (s *policyStore) Get(ctx context.Context, policyID string) (*domain.BudgetPolicy, error) {
	p, err := s.api.Get(ctx, policyID)
	if err != nil {
		return nil, accountError(ctx, "get budget policy", policyID, err)
	}
	out := fromBudgetPolicy(*p)
	return &out, nil
}

func (s *policyStore) List(ctx context.Context) ([]domain.BudgetPolicy, error) {
	list, err := s.api.List(ctx)
	if err != nil {
		return nil, accountError(ctx, "list budget policies", "", err)
	}
	out := make([]domain.BudgetPolicy, 0, len(list))
	for _, p := range list {
		out = append(out, fromBudgetPolicy(p))
	}
	return out, nil
}

func (s *policyStore) Update(ctx context.Context, policy domain.BudgetPolicy) (*domain.BudgetPolicy, error) {
	updated, err := s.api.Update(ctx, billing.UpdateBudgetPolicyRequest{
		PolicyId: policy.PolicyID,
		Policy:   *toBudgetPolicy(policy),
	})
	if err != nil {
		return nil, accountError(ctx, "update budget policy", policy.PolicyID, err)
	}
	out := fromBudgetPolicy(*updated)
	return &out, nil
}

func (s *policyStore) Delete(ctx context.Context, policyID string) error {
	if err := s.api.Delete(ctx, policyID); err != nil {
		return accountError(ctx, "delete budget policy", policyID, err)
	}
	return nil
}

func toBudgetPolicy(p domain.BudgetPolicy) *billing.BudgetPolicy {
	thresholds := make([]string, 0, len(p.AlertThresholds))
	for _, t := range p.AlertThresholds {
		thresholds = append(thresholds, strconv.FormatFloat(t, 'f', -1, 64))
	}
	tags := make([]compute.CustomPolicyTag, 0, len(p.CustomTags)+3)
	for _, k := range sortedKeys(p.CustomTags) {
		if isPolicyAttributeTag(k) {
			continue
		}
		tags = append(tags, compute.CustomPolicyTag{Key: k, Value: p.CustomTags[k]})
	}
	tags = append(tags,
		compute.CustomPolicyTag{Key: policyDisplayNameTag, Value: p.DisplayName},
		compute.CustomPolicyTag{Key: policyMaxBudgetTag, Value: strconv.FormatFloat(p.MaxMonthlyBudget, 'f', -1, 64)},
		compute.CustomPolicyTag{Key: policyThresholdsTag, Value: strings.Join(thresholds, ",")},
	)
	return &billing.BudgetPolicy{
		PolicyId:            p.PolicyID,
		PolicyName:          p.Name,
		BindingWorkspaceIds: p.BindingWorkspaceIDs,
		CustomTags:          tags,
	}
}

func isPolicyAttributeTag(key string) bool {
	return key == policyDisplayNameTag || key == policyMaxBudgetTag || key == policyThresholdsTag
}

func fromBudgetPolicy(p billing.BudgetPolicy) domain.BudgetPolicy {
	out := domain.BudgetPolicy{
		PolicyID:            p.PolicyId,
		Name:                p.PolicyName,
		AlertThresholds:     []float64{},
		BindingWorkspaceIDs: p.BindingWorkspaceIds,
	}
	for _, tag := range p.CustomTags {
		switch tag.Key {
		case policyDisplayNameTag:
			out.DisplayName = tag.Value
		case policyMaxBudgetTag:
			out.MaxMonthlyBudget, _ = strconv.ParseFloat(tag.Value, 64)
		case policyThresholdsTag:
			for _, part := range strings.Split(tag.Value, ",") {
				if v, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
					out.AlertThresholds = append(out.AlertThresholds, v)
				}
			}
		default:
			if out.CustomTags == nil {
				out.CustomTags = domain.TagMap{}
			}
			out.CustomTags[tag.Key] = tag.Value
		}
	}
	return out
}

type BudgetStore interface {
	Create(ctx context.Context, budget domain.Budget) (*domain.Budget, error)
	Get(ctx context.Context, budgetID string) (*domain.Budget, error)
	List(ctx context.Context) ([]domain.Budget, error)
	Update(ctx context.Context, budget domain.Budget) (*domain.Budget, error)
	Delete(ctx context.Context, budgetID string) error
}

type BudgetAPI struct {
	Create func(ctx context.Context, req billing.CreateBudgetConfigurationBudget) (*billing.BudgetConfiguration, error)
	Get    func(ctx context.Context, budgetID string) (*billing.BudgetConfiguration, error)
	List   func(ctx context.Context) ([]billing.BudgetConfiguration, error)
	Update func(ctx context.Context, budgetID string, req billing.UpdateBudgetConfigurationBudget) (*billing.BudgetConfiguration, error)
	Delete func(ctx context.Context, budgetID string) error
}

type budgetStore struct {
	api       BudgetAPI
	accountID string
}

func NewBudgetStore(api BudgetAPI, accountID string) BudgetStore {
	return &budgetStore{api: api, accountID: accountID}
}

func NewAccountBudgetStore(a *databricks.AccountClient) BudgetStore {
	return NewBudgetStore(BudgetAPI{
		Create: func(ctx context.Context, req billing.CreateBudgetConfigurationBudget) (*billing.BudgetConfiguration, error) {
			resp, err := a.Budgets.Create(ctx, billing.CreateBudgetConfigurationRequest{Budget: req})
			if err != nil {
				return nil, err
			}
			return resp.Budget, nil
		},
		Get: func(ctx context.Context, budgetID string) (*billing.BudgetConfiguration, error) {
			resp, err := a.Budgets.Get(ctx, billing.GetBudgetConfigurationRequest{BudgetId: budgetID})
			if err != nil {
				return nil, err
			}
			return resp.Budget, nil
		},
		List: func(ctx context.Context) ([]billing.BudgetConfiguration, error) {
			return a.Budgets.ListAll(ctx, billing.ListBudgetConfigurationsRequest{})
		},
		Update: func(
			ctx context.Context,
			budgetID string,
			req billing.UpdateBudgetConfigurationBudget,
		) (*billing.BudgetConfiguration, error) {
			resp, err := a.Budgets.Update(ctx, billing.UpdateBudgetConfigurationRequest{BudgetId: budgetID, Budget: req})
			if err != nil {
				return nil, err
			}
			return resp.Budget, nil
		},
		Delete: func(ctx context.Context, budgetID string) error {
			return a.Budgets.Delete(ctx, billing.DeleteBudgetConfigurationRequest{BudgetId: budgetID})
		},
	}, a.Config.AccountID)
}

func (s *budgetStore) Create(ctx context.Context, budget domain.Budget) (*domain.Budget, error) {
	created, err := s.api.Create(ctx, billing.CreateBudgetConfigurationBudget{
		AccountId:   s.accountID,
		DisplayName: budget.DisplayName,
		Filter:      budgetFilter(budget.PolicyID),
		AlertConfigurations: []billing.CreateBudgetConfigurationBudgetAlertConfigurations{
			{
				QuantityThreshold:    strconv.FormatFloat(budget.MonthlyThreshold, 'f', -1, 64),
				QuantityType:         billing.AlertConfigurationQuantityTypeListPriceDollarsUsd,
				TimePeriod:           billing.AlertConfigurationTimePeriodMonth,
				TriggerType:          billing.AlertConfigurationTriggerTypeCumulativeSpendingExceeded,
				ActionConfigurations: createEmailActions(budget.AlertEmails),
			},
		},
	})
	if err != nil {
		return nil, accountError(ctx, "create budget", budget.DisplayName, err)
	}
	if created == nil {
		return nil, fmt.Errorf("%w: create budget returned no budget", domain.ErrUpstream)
	}
	out := fromBudgetConfiguration(*created)
	return &out, nil
}

func (s *budgetStore) Get(ctx context.Context, budgetID string) (*domain.Budget, error) {
	b, err := s.api.Get(ctx, budgetID)
	if err != nil {
		return nil, accountError(ctx, "get budget", budgetID, err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: budget %s", domain.ErrNotFound, budgetID)
	}
	out := fromBudgetConfiguration(*b)
	return &out, nil
}

func (s *budgetStore) List(ctx context.Context) ([]domain.Budget, error) {
	list, err := s.api.List(ctx)
	if err != nil {
		return nil, accountError(ctx, "list budgets", "", err)
	}
	out := make([]domain.Budget, 0, len(list))
	for _, b := range list {
		out = append(out, fromBudgetConfiguration(b))
	}
	return out, nil
}

func (s *budgetStore) Update(ctx context.Context, budget domain.Budget) (*domain.Budget, error) {
	actions := make([]billing.ActionConfiguration, 0, len(budget.AlertEmails))
	for _, email := range budget.AlertEmails {
		actions = append(actions, billing.ActionConfiguration{
			ActionType: billing.ActionConfigurationTypeEmailNotification,
			Target:     email,
		})
	}

	updated, err := s.api.Update(ctx, budget.BudgetID, billing.UpdateBudgetConfigurationBudget{
		AccountId:             s.accountID,
		BudgetConfigurationId: budget.BudgetID,
		DisplayName:           budget.DisplayName,
		Filter:                budgetFilter(budget.PolicyID),
		AlertConfigurations: []billing.AlertConfiguration{
			{
				QuantityThreshold:    strconv.FormatFloat(budget.MonthlyThreshold, 'f', -1, 64),
				QuantityType:         billing.AlertConfigurationQuantityTypeListPriceDollarsUsd,
				TimePeriod:           billing.AlertConfigurationTimePeriodMonth,
				TriggerType:          billing.AlertConfigurationTriggerTypeCumulativeSpendingExceeded,
				ActionConfigurations: actions,
			},
		},
	})
	if err != nil {
		return nil, accountError(ctx, "update budget", budget.BudgetID, err)
	}
	if updated == nil {
		return &budget, nil
	}
	out := fromBudgetConfiguration(*updated)
	return &out, nil
}

func (s *budgetStore) Delete(ctx context.Context, budgetID string) error {
	if err := s.api.Delete(ctx, budgetID); err != nil {
		return accountError(ctx, "delete budget", budgetID, err)
	}
	return nil
}

// budgetFilter scopes a budget to usage tagged with the policy id.
func budgetFilter(policyID string) *billing.BudgetConfigurationFilter {
	if policyID == "" {
		return nil
	}
	return &billing.BudgetConfigurationFilter{
		Tags: []billing.BudgetConfigurationFilterTagClause{
			{
				Key: domain.BudgetPolicyTagKey,
				Value: &billing.BudgetConfigurationFilterClause{
					Operator: billing.BudgetConfigurationFilterOperatorIn,
					Values:   []string{policyID},
				},
			},
		},
	}
}

func createEmailActions(emails []string) []billing.CreateBudgetConfigurationBudgetActionConfigurations {
	actions := make([]billing.CreateBudgetConfigurationBudgetActionConfigurations, 0, len(emails))
	for _, email := range emails {
		actions = append(actions, billing.CreateBudgetConfigurationBudgetActionConfigurations{
			ActionType: billing.ActionConfigurationTypeEmailNotification,
			Target:     email,
		})
	}
	return actions
}

func fromBudgetConfiguration(b billing.BudgetConfiguration) domain.Budget {
	out := domain.Budget{
		BudgetID:    b.BudgetConfigurationId,
		DisplayName: b.DisplayName,
		AlertEmails: []string{},
		CreatedTime: millisToTime(b.CreateTime),
		UpdatedTime: millisToTime(b.UpdateTime),
	}
	if b.Filter != nil {
		for _, clause := range b.Filter.Tags {
			if clause.Key == domain.BudgetPolicyTagKey && clause.Value != nil && len(clause.Value.Values) > 0 {
				out.PolicyID = clause.Value.Values[0]
			}
		}
	}
	for _, alert := range b.AlertConfigurations {
		if out.MonthlyThreshold == 0 {
			out.MonthlyThreshold, _ = strconv.ParseFloat(alert.QuantityThreshold, 64)
		}
		for _, action := range alert.ActionConfigurations {
			if action.ActionType == billing.ActionConfigurationTypeEmailNotification {
				out.AlertEmails = append(out.AlertEmails, action.Target)
			}
		}
	}
	return out
}

func millisToTime(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func accountError(ctx context.Context, action, id string, err error) error {
	logger := zerolog.Ctx(ctx)
	logger.Error().Err(err).Str("id", id).Msgf("failed to %s", action)

	kind := domain.ErrUpstream
	if isNotFound(err) {
		kind = domain.ErrNotFound
	}
	return fmt.Errorf("%w: failed to %s: %w", kind, action, err)
}
