package client

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/databricks/databricks-sdk-go/apierr"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/rs/zerolog"
)

// TagField adapts one resource kind to a uniform tag mapping, hiding whether the
// upstream API calls it custom_tags, tags or properties.
type TagField interface {
	Type() domain.ResourceType
	// Supported reports whether the kind exposes a settable tag field upstream.
	Supported() bool
	Get(ctx context.Context, id string) (domain.Resource, error)
	List(ctx context.Context) ([]domain.Resource, error)
	// Update fetches the current tags, passes them to apply and writes the result
	// back with a single upstream update. It returns the tags before and after.
	Update(ctx context.Context, id string, apply func(domain.TagMap) domain.TagMap) (domain.TagMap, domain.TagMap, error)
}

type Resources interface {
	Field(t domain.ResourceType) (TagField, error)
	Types() []domain.ResourceType
}

type resources struct {
	fields map[domain.ResourceType]TagField
}

func NewResources(fields ...TagField) Resources {
	m := make(map[domain.ResourceType]TagField, len(fields))
	for _, f := range fields {
		m[f.Type()] = f
	}
	return &resources{fields: m}
}

func (r *resources) Field(t domain.ResourceType) (TagField, error) {
	f, ok := r.fields[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownResourceType, t)
	}
	return f, nil
}

func (r *resources) Types() []domain.ResourceType {
	var types []domain.ResourceType
	for _, t := range domain.ResourceTypes {
		if _, ok := r.fields[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// upstreamError classifies err into the domain error taxonomy, logs it and returns
// the wrapped error.
func upstreamError(ctx context.Context, t domain.ResourceType, id, action string, err error) error {
	logger := zerolog.Ctx(ctx)

	kind := domain.ErrUpstream
	if isNotFound(err) {
		kind = domain.ErrNotFound
	}

	logger.Error().
		Err(err).
		Str("resource_type", t.String()).
		Str("resource_id", id).
		Msgf("failed to %s", action)

	if id == "" {
		return fmt.Errorf("%w: failed to %s %s: %w", kind, action, t, err)
	}
	return fmt.Errorf("%w: failed to %s %s %s: %w", kind, action, t, id, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, apierr.ErrNotFound) ||
		errors.Is(err, apierr.ErrResourceDoesNotExist) ||
		errors.Is(err, domain.ErrNotFound)
}

func notFound(ctx context.Context, t domain.ResourceType, id, reason string) error {
	zerolog.Ctx(ctx).Error().
		Str("resource_type", t.String()).
		Str("resource_id", id).
		Msg(reason)
	return fmt.Errorf("%w: %s %s: %s", domain.ErrNotFound, t, id, reason)
}

// diffTags returns the keys to set and the keys to delete to go from before to after.
func diffTags(before, after domain.TagMap) (domain.TagMap, []string) {
	set := domain.TagMap{}
	for k, v := range after {
		if old, ok := before[k]; !ok || old != v {
			set[k] = v
		}
	}
	var unset []string
	for k := range before {
		if _, ok := after[k]; !ok {
			unset = append(unset, k)
		}
	}
	sort.Strings(unset)
	return set, unset
}

func sortedKeys(m domain.TagMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// unsupportedField backs kinds that have no tag mechanism upstream.
type unsupportedField struct {
	kind domain.ResourceType
}

func NewUnsupportedField(t domain.ResourceType) TagField {
	return &unsupportedField{kind: t}
}

func (u *unsupportedField) Type() domain.ResourceType { return u.kind }

func (u *unsupportedField) Supported() bool { return false }

func (u *unsupportedField) Get(ctx context.Context, id string) (domain.Resource, error) {
	return domain.Resource{}, u.fail(ctx, id)
}

func (u *unsupportedField) List(ctx context.Context) ([]domain.Resource, error) {
	return nil, u.fail(ctx, "")
}

func (u *unsupportedField) Update(
	ctx context.Context,
	id string,
	_ func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	return nil, nil, u.fail(ctx, id)
}

func (u *unsupportedField) fail(ctx context.Context, id string) error {
	zerolog.Ctx(ctx).Warn().
		Str("resource_type", u.kind.String()).
		Str("resource_id", id).
		Msg("tagging is not supported for resource type")
	return fmt.Errorf("%w: %s has no tag field", domain.ErrUnsupported, u.kind)
}
