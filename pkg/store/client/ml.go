package client

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go/service/ml"
	"github.com/databricks/databricks-sdk-go/service/serving"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/rs/zerolog"
)

type ExperimentAPI struct {
	Get    func(ctx context.Context, id string) (*ml.Experiment, error)
	List   func(ctx context.Context) ([]ml.Experiment, error)
	SetTag func(ctx context.Context, req ml.SetExperimentTag) error
}

type experimentField struct {
	api ExperimentAPI
}

// NewExperimentField writes experiment tags one key at a time. The tracking API has
// no experiment tag deletion, so any update that drops a key fails as unsupported
// before anything is written.
func NewExperimentField(api ExperimentAPI) TagField {
	return &experimentField{api: api}
}

func (f *experimentField) Type() domain.ResourceType { return domain.ResourceTypeExperiment }

func (f *experimentField) Supported() bool { return true }

func (f *experimentField) Get(ctx context.Context, id string) (domain.Resource, error) {
	e, err := f.api.Get(ctx, id)
	if err != nil {
		return domain.Resource{}, upstreamError(ctx, f.Type(), id, "get", err)
	}
	return experimentResource(*e), nil
}

func (f *experimentField) List(ctx context.Context) ([]domain.Resource, error) {
	list, err := f.api.List(ctx)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), "", "list", err)
	}
	out := make([]domain.Resource, 0, len(list))
	for _, e := range list {
		out = append(out, experimentResource(e))
	}
	return out, nil
}

func (f *experimentField) Update(
	ctx context.Context,
	id string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	e, err := f.api.Get(ctx, id)
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), id, "get", err)
	}

	before := experimentResource(*e).Tags
	after := apply(before.Clone())
	set, unset := diffTags(before, after)

	if len(unset) > 0 {
		zerolog.Ctx(ctx).Error().
			Str("resource_id", id).
			Strs("keys", unset).
			Msg("experiment tags cannot be deleted")
		return nil, nil, fmt.Errorf("%w: experiment tags cannot be deleted: %v", domain.ErrUnsupported, unset)
	}

	for _, k := range sortedKeys(set) {
		err := f.api.SetTag(ctx, ml.SetExperimentTag{ExperimentId: e.ExperimentId, Key: k, Value: set[k]})
		if err != nil {
			return nil, nil, upstreamError(ctx, f.Type(), id, "set tag on", err)
		}
	}
	return before, after, nil
}

func experimentResource(e ml.Experiment) domain.Resource {
	tags := domain.TagMap{}
	for _, t := range e.Tags {
		tags[t.Key] = t.Value
	}
	return domain.Resource{
		Type:  domain.ResourceTypeExperiment,
		ID:    e.ExperimentId,
		Name:  e.Name,
		State: e.LifecycleStage,
		Tags:  tags,
	}
}

type ModelAPI struct {
	Get       func(ctx context.Context, name string) (*ml.ModelDatabricks, error)
	List      func(ctx context.Context) ([]ml.Model, error)
	SetTag    func(ctx context.Context, req ml.SetModelTagRequest) error
	DeleteTag func(ctx context.Context, req ml.DeleteModelTagRequest) error
}

type modelField struct {
	api ModelAPI
}

// NewModelField manages registered model tags, addressed by model name.
func NewModelField(api ModelAPI) TagField {
	return &modelField{api: api}
}

func (f *modelField) Type() domain.ResourceType { return domain.ResourceTypeModel }

func (f *modelField) Supported() bool { return true }

func (f *modelField) Get(ctx context.Context, name string) (domain.Resource, error) {
	m, err := f.api.Get(ctx, name)
	if err != nil {
		return domain.Resource{}, upstreamError(ctx, f.Type(), name, "get", err)
	}
	return modelResource(m.Name, m.Tags), nil
}

func (f *modelField) List(ctx context.Context) ([]domain.Resource, error) {
	list, err := f.api.List(ctx)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), "", "list", err)
	}
	out := make([]domain.Resource, 0, len(list))
	for _, m := range list {
		out = append(out, modelResource(m.Name, m.Tags))
	}
	return out, nil
}

func (f *modelField) Update(
	ctx context.Context,
	name string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	m, err := f.api.Get(ctx, name)
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), name, "get", err)
	}

	before := modelResource(m.Name, m.Tags).Tags
	after := apply(before.Clone())
	set, unset := diffTags(before, after)

	for _, k := range unset {
		if err := f.api.DeleteTag(ctx, ml.DeleteModelTagRequest{Name: m.Name, Key: k}); err != nil {
			return nil, nil, upstreamError(ctx, f.Type(), name, "delete tag on", err)
		}
	}
	for _, k := range sortedKeys(set) {
		if err := f.api.SetTag(ctx, ml.SetModelTagRequest{Name: m.Name, Key: k, Value: set[k]}); err != nil {
			return nil, nil, upstreamError(ctx, f.Type(), name, "set tag on", err)
		}
	}
	return before, after, nil
}

func modelResource(name string, modelTags []ml.ModelTag) domain.Resource {
	tags := domain.TagMap{}
	for _, t := range modelTags {
		tags[t.Key] = t.Value
	}
	return domain.Resource{
		Type: domain.ResourceTypeModel,
		ID:   name,
		Name: name,
		Tags: tags,
	}
}

type ServingEndpointAPI struct {
	Get   func(ctx context.Context, name string) (*serving.ServingEndpointDetailed, error)
	List  func(ctx context.Context) ([]serving.ServingEndpoint, error)
	Patch func(ctx context.Context, req serving.PatchServingEndpointTags) error
}

type servingEndpointField struct {
	api ServingEndpointAPI
}

// NewServingEndpointField manages the endpoint tag list, addressed by endpoint name.
func NewServingEndpointField(api ServingEndpointAPI) TagField {
	return &servingEndpointField{api: api}
}

func (f *servingEndpointField) Type() domain.ResourceType {
	return domain.ResourceTypeServingEndpoint
}

func (f *servingEndpointField) Supported() bool { return true }

func (f *servingEndpointField) Get(ctx context.Context, name string) (domain.Resource, error) {
	e, err := f.api.Get(ctx, name)
	if err != nil {
		return domain.Resource{}, upstreamError(ctx, f.Type(), name, "get", err)
	}
	return endpointResource(e.Name, e.State, e.Tags), nil
}

func (f *servingEndpointField) List(ctx context.Context) ([]domain.Resource, error) {
	list, err := f.api.List(ctx)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), "", "list", err)
	}
	out := make([]domain.Resource, 0, len(list))
	for _, e := range list {
		out = append(out, endpointResource(e.Name, e.State, e.Tags))
	}
	return out, nil
}

func (f *servingEndpointField) Update(
	ctx context.Context,
	name string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	e, err := f.api.Get(ctx, name)
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), name, "get", err)
	}

	before := endpointResource(e.Name, e.State, e.Tags).Tags
	after := apply(before.Clone())
	set, unset := diffTags(before, after)
	if len(set) == 0 && len(unset) == 0 {
		return before, after, nil
	}

	add := make([]serving.EndpointTag, 0, len(set))
	for _, k := range sortedKeys(set) {
		add = append(add, serving.EndpointTag{Key: k, Value: set[k]})
	}
	err = f.api.Patch(ctx, serving.PatchServingEndpointTags{Name: e.Name, AddTags: add, DeleteTags: unset})
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), name, "patch", err)
	}
	return before, after, nil
}

func endpointResource(name string, state *serving.EndpointState, endpointTags []serving.EndpointTag) domain.Resource {
	tags := domain.TagMap{}
	for _, t := range endpointTags {
		tags[t.Key] = t.Value
	}
	r := domain.Resource{
		Type: domain.ResourceTypeServingEndpoint,
		ID:   name,
		Name: name,
		Tags: tags,
	}
	if state != nil {
		r.State = string(state.Ready)
	}
	return r
}
