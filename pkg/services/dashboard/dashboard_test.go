package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/lakespend/pkg/agent"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/de-tools/lakespend/pkg/models/store"
	"github.com/de-tools/lakespend/pkg/store/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDatasetStore struct {
	mock.Mock
}

func (m *MockDatasetStore) GetDataset(
	ctx context.Context,
	catalog, schema, table string,
	limit int,
) (*store.Dataset, error) {
	args := m.Called(ctx, catalog, schema, table, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Dataset), args.Error(1)
}

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Load(ctx context.Context, name string) (*store.Dataset, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Dataset), args.Error(1)
}

func TestExampleSource_CoversEveryDataset(t *testing.T) {
	source, err := NewExampleSource()
	require.NoError(t, err)

	names := DatasetNames()
	assert.Len(t, names, 11)
	for _, name := range names {
		ds, err := source.Load(context.Background(), name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, ds.Columns, name)
		assert.NotEmpty(t, ds.Rows, name)
	}

	_, err = source.Load(context.Background(), "no_such_table")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExampleSource_Normalizes(t *testing.T) {
	source, err := newExampleSource([]byte(`
demo:
  columns: [name, runs, cost, active]
  rows:
    - ["a", 3, 1.5, true]
`))
	require.NoError(t, err)

	ds, err := source.Load(context.Background(), "demo")

	require.NoError(t, err)
	assert.Equal(t, []any{"a", int64(3), 1.5, true}, ds.Rows[0])
}

func TestExampleSource_RejectsRaggedRows(t *testing.T) {
	_, err := newExampleSource([]byte(`
demo:
  columns: [a, b]
  rows:
    - [1]
`))

	assert.ErrorContains(t, err, "row 0 has 1 values for 2 columns")
}

func TestLiveSource(t *testing.T) {
	settings := LiveSettings{Catalog: "databrickslakespend", Schema: "main", MaxRows: 10000, CacheTTL: time.Minute}
	jobs := &store.Dataset{Name: "most_expensive_jobs", Columns: []string{"job_id"}, Rows: [][]any{{int64(1)}}}

	t.Run("caches results", func(t *testing.T) {
		// Given
		s := new(MockDatasetStore)
		s.On("GetDataset", mock.Anything, "databrickslakespend", "main", "most_expensive_jobs", 10000).
			Return(jobs, nil).Once()
		source := NewLiveSource(s, cache.NewMemoryCache(), settings)

		// When
		first, err := source.Load(context.Background(), "most_expensive_jobs")
		require.NoError(t, err)
		second, err := source.Load(context.Background(), "most_expensive_jobs")
		require.NoError(t, err)

		// Then
		assert.Equal(t, jobs, first)
		assert.Equal(t, jobs, second)
		s.AssertExpectations(t)
	})

	t.Run("without cache always queries", func(t *testing.T) {
		s := new(MockDatasetStore)
		s.On("GetDataset", mock.Anything, "databrickslakespend", "main", "most_expensive_jobs", 10000).
			Return(jobs, nil).Twice()
		source := NewLiveSource(s, nil, settings)

		_, _ = source.Load(context.Background(), "most_expensive_jobs")
		_, _ = source.Load(context.Background(), "most_expensive_jobs")

		s.AssertExpectations(t)
	})

	t.Run("unknown dataset never reaches the warehouse", func(t *testing.T) {
		s := new(MockDatasetStore)
		source := NewLiveSource(s, nil, settings)

		_, err := source.Load(context.Background(), "users; DROP TABLE x")

		assert.ErrorIs(t, err, domain.ErrNotFound)
		s.AssertNotCalled(t, "GetDataset", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("query failure is upstream", func(t *testing.T) {
		s := new(MockDatasetStore)
		s.On("GetDataset", mock.Anything, mock.Anything, mock.Anything, "job_spend_trend", mock.Anything).
			Return(nil, errors.New("TABLE_OR_VIEW_NOT_FOUND"))
		source := NewLiveSource(s, cache.NewMemoryCache(), settings)

		_, err := source.Load(context.Background(), "job_spend_trend")

		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.ErrorContains(t, err, "TABLE_OR_VIEW_NOT_FOUND")
	})
}

func TestService_LoadPage(t *testing.T) {
	t.Run("one failing table does not affect the rest", func(t *testing.T) {
		// Given
		source := new(MockSource)
		source.On("Load", mock.Anything, "model_serving_costs").
			Return(nil, fmt.Errorf("%w: warehouse stopped", domain.ErrUpstream))
		source.On("Load", mock.Anything, "batch_inference_costs").
			Return(&store.Dataset{Name: "batch_inference_costs"}, nil)

		// When
		page, tables, err := NewService(source).LoadPage(context.Background(), "serving")

		// Then
		require.NoError(t, err)
		assert.Equal(t, "Model Serving", page.Title)
		require.Len(t, tables, 2)
		assert.Error(t, tables[0].Err)
		assert.Nil(t, tables[0].Data)
		assert.NoError(t, tables[1].Err)
		assert.Equal(t, "batch_inference_costs", tables[1].Data.Name)
	})

	t.Run("unknown page", func(t *testing.T) {
		_, _, err := NewService(new(MockSource)).LoadPage(context.Background(), "finance")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestChatClient_Send(t *testing.T) {
	t.Run("collects completed items", func(t *testing.T) {
		// Given
		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			got = string(body)
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, `data: {"type":"response.output_item.done","item":{"type":"function_call","call_id":"c1","name":"get_server_status","arguments":"{}"}}`+"\n\n")
			_, _ = io.WriteString(w, `data: {"type":"response.output_item.done","item":{"type":"function_call_output","call_id":"c1","output":"{\"status\":\"ok\"}"}}`+"\n\n")
			_, _ = io.WriteString(w, `data: {"type":"response.output_text.delta","item_id":"m1","delta":"All good."}`+"\n\n")
			_, _ = io.WriteString(w, `data: {"type":"response.output_item.done","item":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"All good."}]}}`+"\n\n")
			_, _ = io.WriteString(w, `data: {"type":"response.completed","response":{"status":"completed"}}`+"\n\n")
		}))
		defer srv.Close()

		// When
		items, err := NewChatClient(srv.URL, srv.Client()).Send(context.Background(), []agent.Item{agent.UserMessage("status?")})

		// Then
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, agent.ItemTypeFunctionCall, items[0].Type)
		assert.Equal(t, `{"status":"ok"}`, items[1].Output)
		assert.Equal(t, "All good.", items[2].Content.Text())
		assert.Contains(t, got, `"stream":true`)
	})

	t.Run("failed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `data: {"type":"response.failed","response":{"error":"agent exceeded the maximum number of turns"}}`+"\n\n")
		}))
		defer srv.Close()

		_, err := NewChatClient(srv.URL, nil).Send(context.Background(), []agent.Item{agent.UserMessage("x")})

		assert.ErrorContains(t, err, "maximum number of turns")
	})

	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "endpoint tag-agent is not ready", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewChatClient(srv.URL, nil).Send(context.Background(), []agent.Item{agent.UserMessage("x")})

		assert.ErrorContains(t, err, "503")
		assert.ErrorContains(t, err, "not ready")
	})
}
