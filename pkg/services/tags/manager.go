package tags

import (
	"context"
	"fmt"
	"strings"

	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/de-tools/lakespend/pkg/store/client"
	"github.com/rs/zerolog"
)

type Manager interface {
	GetTags(ctx context.Context, t domain.ResourceType, id string) (domain.TagMap, error)
	UpdateTags(
		ctx context.Context,
		t domain.ResourceType,
		id string,
		requested domain.TagMap,
		op domain.Operation,
	) (*domain.UpdateResult, error)
	SetTag(ctx context.Context, t domain.ResourceType, id, key, value string) (*domain.UpdateResult, error)
	RemoveTag(ctx context.Context, t domain.ResourceType, id, key string) (*domain.UpdateResult, error)
	ListAllWithTags(ctx context.Context, t domain.ResourceType) ([]domain.Resource, error)
	BulkUpdate(
		ctx context.Context,
		entries []domain.BulkEntry,
		requested domain.TagMap,
		op domain.Operation,
	) []domain.BulkOutcome
	FindByTag(ctx context.Context, key string, value *string) ([]domain.TagMatch, []domain.ScanError)
	ComplianceReport(ctx context.Context, required []string) *domain.ComplianceReport
	// SupportedTypes lists the resource types that expose a tag field.
	SupportedTypes() []domain.ResourceType
}

type tagManager struct {
	resources client.Resources
}

func NewManager(resources client.Resources) Manager {
	return &tagManager{resources: resources}
}

func (m *tagManager) GetTags(ctx context.Context, t domain.ResourceType, id string) (domain.TagMap, error) {
	field, err := m.field(ctx, t, id)
	if err != nil {
		return nil, err
	}
	r, err := field.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Tags.Clone(), nil
}

func (m *tagManager) UpdateTags(
	ctx context.Context,
	t domain.ResourceType,
	id string,
	requested domain.TagMap,
	op domain.Operation,
) (*domain.UpdateResult, error) {
	logger := zerolog.Ctx(ctx)

	field, err := m.field(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if op == "" {
		op = domain.OperationMerge
	}

	before, after, err := field.Update(ctx, id, func(current domain.TagMap) domain.TagMap {
		return Merge(current, requested, op)
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("resource_type", t.String()).
		Str("resource_id", id).
		Str("operation", string(op)).
		Int("tag_count", len(after)).
		Msg("updated resource tags")

	return &domain.UpdateResult{
		Success:      true,
		PreviousTags: before,
		NewTags:      after,
		Operation:    op,
	}, nil
}

func (m *tagManager) SetTag(
	ctx context.Context,
	t domain.ResourceType,
	id, key, value string,
) (*domain.UpdateResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: tag key is required", domain.ErrInvalidArgument)
	}
	return m.UpdateTags(ctx, t, id, domain.TagMap{key: value}, domain.OperationMerge)
}

func (m *tagManager) RemoveTag(
	ctx context.Context,
	t domain.ResourceType,
	id, key string,
) (*domain.UpdateResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: tag key is required", domain.ErrInvalidArgument)
	}
	return m.UpdateTags(ctx, t, id, domain.TagMap{key: ""}, domain.OperationRemove)
}

func (m *tagManager) ListAllWithTags(ctx context.Context, t domain.ResourceType) ([]domain.Resource, error) {
	field, err := m.resources.Field(t)
	if err != nil {
		return nil, err
	}
	return field.List(ctx)
}

func (m *tagManager) BulkUpdate(
	ctx context.Context,
	entries []domain.BulkEntry,
	requested domain.TagMap,
	op domain.Operation,
) []domain.BulkOutcome {
	logger := zerolog.Ctx(ctx)

	outcomes := make([]domain.BulkOutcome, 0, len(entries))
	failed := 0
	for _, e := range entries {
		outcome := domain.BulkOutcome{ResourceType: e.Type, ResourceID: e.ID}

		t, err := domain.ParseResourceType(e.Type)
		if err != nil {
			outcome.Error = domain.ErrUnknownResourceType.Error()
			outcomes = append(outcomes, outcome)
			failed++
			continue
		}

		result, err := m.UpdateTags(ctx, t, e.ID, requested, op)
		if err != nil {
			outcome.Error = err.Error()
			failed++
		} else {
			outcome.Result = result
		}
		outcomes = append(outcomes, outcome)
	}

	logger.Info().
		Int("entries", len(entries)).
		Int("failed", failed).
		Msg("bulk tag update finished")

	return outcomes
}

func (m *tagManager) FindByTag(
	ctx context.Context,
	key string,
	value *string,
) ([]domain.TagMatch, []domain.ScanError) {
	var (
		matches []domain.TagMatch
		errs    []domain.ScanError
	)
	m.scan(ctx, func(r domain.Resource) {
		v, ok := r.Tags[key]
		if !ok || (value != nil && v != *value) {
			return
		}
		matches = append(matches, domain.TagMatch{
			ResourceType: r.Type,
			ResourceID:   r.ID,
			ResourceName: r.Name,
			TagValue:     v,
			AllTags:      r.Tags.Clone(),
		})
	}, func(e domain.ScanError) {
		errs = append(errs, e)
	})
	return matches, errs
}

func (m *tagManager) ComplianceReport(ctx context.Context, required []string) *domain.ComplianceReport {
	report := &domain.ComplianceReport{
		ByResourceType: map[domain.ResourceType]domain.TypeCompliance{},
		RequiredTags:   append([]string{}, required...),
	}

	m.scan(ctx, func(r domain.Resource) {
		byType := report.ByResourceType[r.Type]
		byType.Total++
		report.Summary.TotalResources++

		missing := missingTags(r.Tags, required)
		if len(missing) == 0 {
			byType.Compliant++
			report.Summary.CompliantResources++
		} else {
			byType.NonCompliant++
			report.Summary.NonCompliantResources++
			report.NonCompliantDetails = append(report.NonCompliantDetails, domain.NonCompliantResource{
				ResourceType: r.Type,
				ResourceID:   r.ID,
				ResourceName: r.Name,
				MissingTags:  missing,
				CurrentTags:  r.Tags.Clone(),
			})
		}
		report.ByResourceType[r.Type] = byType
	}, func(e domain.ScanError) {
		report.Errors = append(report.Errors, e)
	})

	for t, byType := range report.ByResourceType {
		byType.CompliancePercentage = domain.Percentage(byType.Compliant, byType.Total)
		report.ByResourceType[t] = byType
	}
	report.Summary.CompliancePercentage = domain.Percentage(
		report.Summary.CompliantResources,
		report.Summary.TotalResources,
	)
	return report
}

func (m *tagManager) SupportedTypes() []domain.ResourceType {
	var out []domain.ResourceType
	for _, t := range m.resources.Types() {
		f, err := m.resources.Field(t)
		if err == nil && f.Supported() {
			out = append(out, t)
		}
	}
	return out
}

// scan lists every supported resource type in order, passing each resource to visit.
// A type whose listing fails is reported to fail and skipped.
func (m *tagManager) scan(ctx context.Context, visit func(domain.Resource), fail func(domain.ScanError)) {
	logger := zerolog.Ctx(ctx)

	for _, t := range m.SupportedTypes() {
		if ctx.Err() != nil {
			fail(domain.ScanError{ResourceType: t, Error: ctx.Err().Error()})
			continue
		}
		resources, err := m.ListAllWithTags(ctx, t)
		if err != nil {
			logger.Warn().Err(err).Str("resource_type", t.String()).Msg("skipping resource type in scan")
			fail(domain.ScanError{ResourceType: t, Error: err.Error()})
			continue
		}
		for _, r := range resources {
			if r.Type == "" {
				r.Type = t
			}
			visit(r)
		}
	}
}

func (m *tagManager) field(ctx context.Context, t domain.ResourceType, id string) (client.TagField, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: resource id is required", domain.ErrInvalidArgument)
	}
	field, err := m.resources.Field(t)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("resource_type", t.String()).Msg("failed to resolve resource type")
		return nil, err
	}
	return field, nil
}

func missingTags(tags domain.TagMap, required []string) []string {
	var missing []string
	for _, k := range required {
		if _, ok := tags[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
