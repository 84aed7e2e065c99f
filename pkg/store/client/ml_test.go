package client

import (
	"context"
	"testing"

	"github.com/databricks/databricks-sdk-go/service/ml"
	"github.com/databricks/databricks-sdk-go/service/serving"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExperimentField_Update(t *testing.T) {
	newField := func(set *[]ml.SetExperimentTag) TagField {
		return NewExperimentField(ExperimentAPI{
			Get: func(_ context.Context, id string) (*ml.Experiment, error) {
				return &ml.Experiment{
					ExperimentId: id,
					Name:         "/Users/a/churn",
					Tags:         []ml.ExperimentTag{{Key: "env", Value: "dev"}},
				}, nil
			},
			SetTag: func(_ context.Context, req ml.SetExperimentTag) error {
				*set = append(*set, req)
				return nil
			},
		})
	}

	t.Run("sets changed keys", func(t *testing.T) {
		var calls []ml.SetExperimentTag

		_, after, err := newField(&calls).Update(context.Background(), "9", overlay(domain.TagMap{"team": "ml", "env": "dev"}))

		require.NoError(t, err)
		assert.Equal(t, domain.TagMap{"env": "dev", "team": "ml"}, after)
		assert.Equal(t, []ml.SetExperimentTag{{ExperimentId: "9", Key: "team", Value: "ml"}}, calls)
	})

	t.Run("removal is unsupported", func(t *testing.T) {
		var calls []ml.SetExperimentTag

		_, _, err := newField(&calls).Update(context.Background(), "9", func(domain.TagMap) domain.TagMap {
			return domain.TagMap{"team": "ml"}
		})

		assert.ErrorIs(t, err, domain.ErrUnsupported)
		assert.Empty(t, calls)
	})
}

func TestModelField_Update(t *testing.T) {
	var deleted []ml.DeleteModelTagRequest
	var set []ml.SetModelTagRequest
	field := NewModelField(ModelAPI{
		Get: func(_ context.Context, name string) (*ml.ModelDatabricks, error) {
			return &ml.ModelDatabricks{Name: name, Tags: []ml.ModelTag{{Key: "env", Value: "dev"}, {Key: "stale", Value: "x"}}}, nil
		},
		SetTag: func(_ context.Context, req ml.SetModelTagRequest) error {
			set = append(set, req)
			return nil
		},
		DeleteTag: func(_ context.Context, req ml.DeleteModelTagRequest) error {
			deleted = append(deleted, req)
			return nil
		},
	})

	before, after, err := field.Update(context.Background(), "churn", func(domain.TagMap) domain.TagMap {
		return domain.TagMap{"env": "prod"}
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TagMap{"env": "dev", "stale": "x"}, before)
	assert.Equal(t, domain.TagMap{"env": "prod"}, after)
	assert.Equal(t, []ml.DeleteModelTagRequest{{Name: "churn", Key: "stale"}}, deleted)
	assert.Equal(t, []ml.SetModelTagRequest{{Name: "churn", Key: "env", Value: "prod"}}, set)
}

func TestServingEndpointField_Update(t *testing.T) {
	calls := 0
	var patched serving.PatchServingEndpointTags
	field := NewServingEndpointField(ServingEndpointAPI{
		Get: func(_ context.Context, name string) (*serving.ServingEndpointDetailed, error) {
			return &serving.ServingEndpointDetailed{
				Name: name,
				Tags: []serving.EndpointTag{{Key: "env", Value: "dev"}, {Key: "owner", Value: "a"}},
			}, nil
		},
		Patch: func(_ context.Context, req serving.PatchServingEndpointTags) error {
			calls++
			patched = req
			return nil
		},
	})

	_, _, err := field.Update(context.Background(), "chat", func(domain.TagMap) domain.TagMap {
		return domain.TagMap{"env": "prod"}
	})
	require.NoError(t, err)
	assert.Equal(t, "chat", patched.Name)
	assert.Equal(t, []serving.EndpointTag{{Key: "env", Value: "prod"}}, patched.AddTags)
	assert.Equal(t, []string{"owner"}, patched.DeleteTags)

	_, _, err = field.Update(context.Background(), "chat", func(current domain.TagMap) domain.TagMap { return current })
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
