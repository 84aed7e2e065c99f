package client

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go/service/catalog"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/rs/zerolog"
)

const informationSchema = "information_schema"

type CatalogAPI struct {
	GetCatalog    func(ctx context.Context, name string) (*catalog.CatalogInfo, error)
	ListCatalogs  func(ctx context.Context) ([]catalog.CatalogInfo, error)
	UpdateCatalog func(ctx context.Context, req catalog.UpdateCatalog) error

	GetSchema    func(ctx context.Context, fullName string) (*catalog.SchemaInfo, error)
	ListSchemas  func(ctx context.Context, catalogName string) ([]catalog.SchemaInfo, error)
	UpdateSchema func(ctx context.Context, req catalog.UpdateSchema) error

	GetTable   func(ctx context.Context, fullName string) (*catalog.TableInfo, error)
	ListTables func(ctx context.Context, catalogName, schemaName string) ([]catalog.TableInfo, error)
}

// TablePropertiesWriter sets and unsets table properties. The tables API cannot
// change properties, so the write goes through SQL.
type TablePropertiesWriter interface {
	SetProperties(ctx context.Context, fullName string, set map[string]string, unset []string) error
}

type catalogField struct {
	api CatalogAPI
}

// NewCatalogField stores tags in the catalog properties.
func NewCatalogField(api CatalogAPI) TagField {
	return &catalogField{api: api}
}

func (f *catalogField) Type() domain.ResourceType { return domain.ResourceTypeCatalog }

func (f *catalogField) Supported() bool { return true }

func (f *catalogField) Get(ctx context.Context, name string) (domain.Resource, error) {
	c, err := f.api.GetCatalog(ctx, name)
	if err != nil {
		return domain.Resource{}, upstreamError(ctx, f.Type(), name, "get", err)
	}
	return propertiesResource(f.Type(), c.Name, c.Name, c.Properties), nil
}

func (f *catalogField) List(ctx context.Context) ([]domain.Resource, error) {
	list, err := f.api.ListCatalogs(ctx)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), "", "list", err)
	}
	out := make([]domain.Resource, 0, len(list))
	for _, c := range list {
		out = append(out, propertiesResource(f.Type(), c.Name, c.Name, c.Properties))
	}
	return out, nil
}

func (f *catalogField) Update(
	ctx context.Context,
	name string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	c, err := f.api.GetCatalog(ctx, name)
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), name, "get", err)
	}
	before := domain.TagMap(c.Properties).Clone()
	after := apply(before.Clone())

	if err := f.api.UpdateCatalog(ctx, catalog.UpdateCatalog{Name: c.Name, Properties: after}); err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), name, "update", err)
	}
	return before, after, nil
}

type schemaField struct {
	api CatalogAPI
}

// NewSchemaField stores tags in the schema properties. Ids are full names (catalog.schema).
func NewSchemaField(api CatalogAPI) TagField {
	return &schemaField{api: api}
}

func (f *schemaField) Type() domain.ResourceType { return domain.ResourceTypeSchema }

func (f *schemaField) Supported() bool { return true }

func (f *schemaField) Get(ctx context.Context, fullName string) (domain.Resource, error) {
	s, err := f.api.GetSchema(ctx, fullName)
	if err != nil {
		return domain.Resource{}, upstreamError(ctx, f.Type(), fullName, "get", err)
	}
	return propertiesResource(f.Type(), s.FullName, s.Name, s.Properties), nil
}

func (f *schemaField) List(ctx context.Context) ([]domain.Resource, error) {
	catalogs, err := f.api.ListCatalogs(ctx)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), "", "list catalogs for", err)
	}
	var out []domain.Resource
	for _, c := range catalogs {
		schemas, err := f.api.ListSchemas(ctx, c.Name)
		if err != nil {
			return nil, upstreamError(ctx, f.Type(), c.Name, "list", err)
		}
		for _, s := range schemas {
			if s.Name == informationSchema {
				continue
			}
			out = append(out, propertiesResource(f.Type(), s.FullName, s.Name, s.Properties))
		}
	}
	return out, nil
}

func (f *schemaField) Update(
	ctx context.Context,
	fullName string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	s, err := f.api.GetSchema(ctx, fullName)
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), fullName, "get", err)
	}
	before := domain.TagMap(s.Properties).Clone()
	after := apply(before.Clone())

	if err := f.api.UpdateSchema(ctx, catalog.UpdateSchema{FullName: s.FullName, Properties: after}); err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), fullName, "update", err)
	}
	return before, after, nil
}

type tableField struct {
	api    CatalogAPI
	writer TablePropertiesWriter
}

// NewTableField reads table properties through the tables API and writes them with
// writer. A nil writer leaves tables readable but not taggable.
func NewTableField(api CatalogAPI, writer TablePropertiesWriter) TagField {
	return &tableField{api: api, writer: writer}
}

func (f *tableField) Type() domain.ResourceType { return domain.ResourceTypeTable }

func (f *tableField) Supported() bool { return true }

func (f *tableField) Get(ctx context.Context, fullName string) (domain.Resource, error) {
	t, err := f.api.GetTable(ctx, fullName)
	if err != nil {
		return domain.Resource{}, upstreamError(ctx, f.Type(), fullName, "get", err)
	}
	return propertiesResource(f.Type(), t.FullName, t.Name, t.Properties), nil
}

func (f *tableField) List(ctx context.Context) ([]domain.Resource, error) {
	catalogs, err := f.api.ListCatalogs(ctx)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), "", "list catalogs for", err)
	}
	var out []domain.Resource
	for _, c := range catalogs {
		schemas, err := f.api.ListSchemas(ctx, c.Name)
		if err != nil {
			return nil, upstreamError(ctx, f.Type(), c.Name, "list schemas for", err)
		}
		for _, s := range schemas {
			if s.Name == informationSchema {
				continue
			}
			tables, err := f.api.ListTables(ctx, c.Name, s.Name)
			if err != nil {
				return nil, upstreamError(ctx, f.Type(), s.FullName, "list", err)
			}
			for _, t := range tables {
				out = append(out, propertiesResource(f.Type(), t.FullName, t.Name, t.Properties))
			}
		}
	}
	return out, nil
}

func (f *tableField) Update(
	ctx context.Context,
	fullName string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	if f.writer == nil {
		zerolog.Ctx(ctx).Warn().
			Str("resource_id", fullName).
			Msg("table tagging requires a sql warehouse")
		return nil, nil, fmt.Errorf("%w: table tagging requires a sql warehouse", domain.ErrUnsupported)
	}

	t, err := f.api.GetTable(ctx, fullName)
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), fullName, "get", err)
	}
	before := domain.TagMap(t.Properties).Clone()
	after := apply(before.Clone())
	set, unset := diffTags(before, after)
	if len(set) == 0 && len(unset) == 0 {
		return before, after, nil
	}

	if err := f.writer.SetProperties(ctx, t.FullName, set, unset); err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), fullName, "alter", err)
	}
	return before, after, nil
}

func propertiesResource(t domain.ResourceType, id, name string, props map[string]string) domain.Resource {
	return domain.Resource{
		Type: t,
		ID:   id,
		Name: name,
		Tags: domain.TagMap(props).Clone(),
	}
}
