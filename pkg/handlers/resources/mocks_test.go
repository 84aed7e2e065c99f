package resources

import (
	"context"
	"fmt"

	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/stretchr/testify/mock"
)

type MockBudgetManager struct {
	mock.Mock
}

func (m *MockBudgetManager) CreatePolicy(
	ctx context.Context,
	name, displayName string,
	maxMonthlyBudget float64,
	thresholds []float64,
) (string, error) {
	args := m.Called(ctx, name, displayName, maxMonthlyBudget, thresholds)
	return args.String(0), args.Error(1)
}

func (m *MockBudgetManager) GetPolicy(ctx context.Context, policyID string) (*domain.BudgetPolicy, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BudgetPolicy), args.Error(1)
}

func (m *MockBudgetManager) ListPolicies(ctx context.Context) ([]domain.BudgetPolicy, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.BudgetPolicy), args.Error(1)
}

func (m *MockBudgetManager) UpdatePolicy(
	ctx context.Context,
	policyID string,
	update domain.PolicyUpdate,
) (*domain.BudgetPolicy, error) {
	args := m.Called(ctx, policyID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BudgetPolicy), args.Error(1)
}

func (m *MockBudgetManager) DeletePolicy(ctx context.Context, policyID string) error {
	return m.Called(ctx, policyID).Error(0)
}

func (m *MockBudgetManager) ApplyPolicy(
	ctx context.Context,
	t domain.ResourceType,
	id, policyID string,
) (*domain.UpdateResult, error) {
	args := m.Called(ctx, t, id, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UpdateResult), args.Error(1)
}

func (m *MockBudgetManager) ResourcesWithPolicy(ctx context.Context, policyID string) (domain.PolicyResources, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.PolicyResources), args.Error(1)
}

func (m *MockBudgetManager) ComplianceReport(ctx context.Context) (*domain.BudgetComplianceReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BudgetComplianceReport), args.Error(1)
}

func (m *MockBudgetManager) CreateBudget(ctx context.Context, budget domain.Budget) (*domain.Budget, error) {
	args := m.Called(ctx, budget)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Budget), args.Error(1)
}

func (m *MockBudgetManager) GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error) {
	args := m.Called(ctx, budgetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Budget), args.Error(1)
}

func (m *MockBudgetManager) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Budget), args.Error(1)
}

func (m *MockBudgetManager) UpdateBudget(
	ctx context.Context,
	budgetID string,
	update domain.BudgetUpdate,
) (*domain.Budget, error) {
	args := m.Called(ctx, budgetID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Budget), args.Error(1)
}

func (m *MockBudgetManager) DeleteBudget(ctx context.Context, budgetID string) error {
	return m.Called(ctx, budgetID).Error(0)
}

func (m *MockBudgetManager) PolicySpend(ctx context.Context, policyID string) (*domain.PolicySpend, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PolicySpend), args.Error(1)
}

// memoryField is an in-memory tag field for one resource kind.
type memoryField struct {
	kind      domain.ResourceType
	resources []domain.Resource
}

func (f *memoryField) Type() domain.ResourceType { return f.kind }

func (f *memoryField) Supported() bool { return true }

func (f *memoryField) Get(_ context.Context, id string) (domain.Resource, error) {
	for _, r := range f.resources {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Resource{}, fmt.Errorf("%w: %s %s", domain.ErrNotFound, f.kind, id)
}

func (f *memoryField) List(context.Context) ([]domain.Resource, error) {
	return f.resources, nil
}

func (f *memoryField) Update(
	ctx context.Context,
	id string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	for i, r := range f.resources {
		if r.ID == id {
			before := r.Tags.Clone()
			f.resources[i].Tags = apply(before.Clone())
			return before, f.resources[i].Tags.Clone(), nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, f.kind, id)
}
