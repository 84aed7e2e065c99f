package client

import (
	"context"
	"errors"
	"testing"

	"github.com/databricks/databricks-sdk-go/service/catalog"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	fullName string
	set      map[string]string
	unset    []string
	err      error
}

func (w *recordingWriter) SetProperties(_ context.Context, fullName string, set map[string]string, unset []string) error {
	w.fullName = fullName
	w.set = set
	w.unset = unset
	return w.err
}

func testCatalogAPI() CatalogAPI {
	return CatalogAPI{
		ListCatalogs: func(context.Context) ([]catalog.CatalogInfo, error) {
			return []catalog.CatalogInfo{{Name: "main"}}, nil
		},
		ListSchemas: func(_ context.Context, catalogName string) ([]catalog.SchemaInfo, error) {
			return []catalog.SchemaInfo{
				{Name: "sales", FullName: catalogName + ".sales", Properties: map[string]string{"owner": "bi"}},
				{Name: "information_schema", FullName: catalogName + ".information_schema"},
			}, nil
		},
		ListTables: func(_ context.Context, catalogName, schemaName string) ([]catalog.TableInfo, error) {
			return []catalog.TableInfo{{Name: "orders", FullName: catalogName + "." + schemaName + ".orders"}}, nil
		},
		GetTable: func(_ context.Context, fullName string) (*catalog.TableInfo, error) {
			return &catalog.TableInfo{
				Name:       "orders",
				FullName:   fullName,
				Properties: map[string]string{"env": "prod", "delta.minReaderVersion": "1"},
			}, nil
		},
	}
}

func TestSchemaField_ListSkipsInformationSchema(t *testing.T) {
	list, err := NewSchemaField(testCatalogAPI()).List(context.Background())

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "main.sales", list[0].ID)
	assert.Equal(t, domain.TagMap{"owner": "bi"}, list[0].Tags)
}

func TestTableField(t *testing.T) {
	t.Run("list walks catalogs and schemas", func(t *testing.T) {
		list, err := NewTableField(testCatalogAPI(), nil).List(context.Background())

		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "main.sales.orders", list[0].ID)
	})

	t.Run("update without writer is unsupported", func(t *testing.T) {
		_, _, err := NewTableField(testCatalogAPI(), nil).Update(context.Background(), "main.sales.orders", overlay(nil))

		assert.ErrorIs(t, err, domain.ErrUnsupported)
	})

	t.Run("update writes only the diff", func(t *testing.T) {
		w := &recordingWriter{}

		_, after, err := NewTableField(testCatalogAPI(), w).Update(context.Background(), "main.sales.orders",
			func(current domain.TagMap) domain.TagMap {
				delete(current, "env")
				current["team"] = "bi"
				return current
			})

		require.NoError(t, err)
		assert.Equal(t, domain.TagMap{"delta.minReaderVersion": "1", "team": "bi"}, after)
		assert.Equal(t, "main.sales.orders", w.fullName)
		assert.Equal(t, map[string]string{"team": "bi"}, w.set)
		assert.Equal(t, []string{"env"}, w.unset)
	})

	t.Run("writer failure is upstream", func(t *testing.T) {
		w := &recordingWriter{err: errors.New("warehouse stopped")}

		_, _, err := NewTableField(testCatalogAPI(), w).Update(context.Background(), "main.sales.orders",
			overlay(domain.TagMap{"team": "bi"}))

		assert.ErrorIs(t, err, domain.ErrUpstream)
	})
}

func TestCatalogField_Update(t *testing.T) {
	var req catalog.UpdateCatalog
	api := CatalogAPI{
		GetCatalog: func(_ context.Context, name string) (*catalog.CatalogInfo, error) {
			return &catalog.CatalogInfo{Name: name}, nil
		},
		UpdateCatalog: func(_ context.Context, r catalog.UpdateCatalog) error {
			req = r
			return nil
		},
	}

	before, after, err := NewCatalogField(api).Update(context.Background(), "main", overlay(domain.TagMap{"owner": "platform"}))

	require.NoError(t, err)
	assert.Equal(t, domain.TagMap{}, before)
	assert.Equal(t, domain.TagMap{"owner": "platform"}, after)
	assert.Equal(t, "main", req.Name)
	assert.Equal(t, map[string]string{"owner": "platform"}, req.Properties)
}
