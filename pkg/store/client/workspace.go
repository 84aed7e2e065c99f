package client

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/config"
	"github.com/databricks/databricks-sdk-go/service/catalog"
	"github.com/databricks/databricks-sdk-go/service/compute"
	"github.com/databricks/databricks-sdk-go/service/jobs"
	"github.com/databricks/databricks-sdk-go/service/ml"
	"github.com/databricks/databricks-sdk-go/service/pipelines"
	"github.com/databricks/databricks-sdk-go/service/serving"
	dbsql "github.com/databricks/databricks-sdk-go/service/sql"
	"github.com/de-tools/lakespend/pkg/models/domain"
)

func NewWorkspaceClient(cfg *config.Config) (*databricks.WorkspaceClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	w, err := databricks.NewWorkspaceClient((*databricks.Config)(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace client: %w", err)
	}
	return w, nil
}

// NewWorkspaceResources wires every resource kind to the workspace APIs. tables may
// be nil when no SQL warehouse is configured.
func NewWorkspaceResources(w *databricks.WorkspaceClient, tables TablePropertiesWriter) Resources {
	catalogAPI := CatalogAPI{
		GetCatalog: w.Catalogs.GetByName,
		ListCatalogs: func(ctx context.Context) ([]catalog.CatalogInfo, error) {
			return w.Catalogs.ListAll(ctx, catalog.ListCatalogsRequest{})
		},
		UpdateCatalog: func(ctx context.Context, req catalog.UpdateCatalog) error {
			_, err := w.Catalogs.Update(ctx, req)
			return err
		},
		GetSchema: w.Schemas.GetByFullName,
		ListSchemas: func(ctx context.Context, catalogName string) ([]catalog.SchemaInfo, error) {
			return w.Schemas.ListAll(ctx, catalog.ListSchemasRequest{CatalogName: catalogName})
		},
		UpdateSchema: func(ctx context.Context, req catalog.UpdateSchema) error {
			_, err := w.Schemas.Update(ctx, req)
			return err
		},
		GetTable: w.Tables.GetByFullName,
		ListTables: func(ctx context.Context, catalogName, schemaName string) ([]catalog.TableInfo, error) {
			return w.Tables.ListAll(ctx, catalog.ListTablesRequest{CatalogName: catalogName, SchemaName: schemaName})
		},
	}

	return NewResources(
		NewClusterField(ClusterAPI{
			Get: w.Clusters.GetByClusterId,
			List: func(ctx context.Context) ([]compute.ClusterDetails, error) {
				return w.Clusters.ListAll(ctx, compute.ListClustersRequest{})
			},
			Edit: func(ctx context.Context, req compute.EditCluster) error {
				_, err := w.Clusters.Edit(ctx, req)
				return err
			},
		}),
		NewWarehouseField(WarehouseAPI{
			Get: w.Warehouses.GetById,
			List: func(ctx context.Context) ([]dbsql.EndpointInfo, error) {
				return w.Warehouses.ListAll(ctx, dbsql.ListWarehousesRequest{})
			},
			Edit: func(ctx context.Context, req dbsql.EditWarehouseRequest) error {
				_, err := w.Warehouses.Edit(ctx, req)
				return err
			},
		}),
		NewJobField(JobAPI{
			Get: w.Jobs.GetByJobId,
			List: func(ctx context.Context) ([]jobs.BaseJob, error) {
				return w.Jobs.ListAll(ctx, jobs.ListJobsRequest{})
			},
			Reset: w.Jobs.Reset,
		}),
		NewPipelineField(PipelineAPI{
			Get: w.Pipelines.GetByPipelineId,
			List: func(ctx context.Context) ([]pipelines.PipelineStateInfo, error) {
				return w.Pipelines.ListPipelinesAll(ctx, pipelines.ListPipelinesRequest{})
			},
			Update: w.Pipelines.Update,
		}),
		NewExperimentField(ExperimentAPI{
			Get: func(ctx context.Context, id string) (*ml.Experiment, error) {
				resp, err := w.Experiments.GetExperiment(ctx, ml.GetExperimentRequest{ExperimentId: id})
				if err != nil {
					return nil, err
				}
				if resp.Experiment == nil {
					return nil, fmt.Errorf("experiment %s: %w", id, domain.ErrNotFound)
				}
				return resp.Experiment, nil
			},
			List: func(ctx context.Context) ([]ml.Experiment, error) {
				return w.Experiments.ListExperimentsAll(ctx, ml.ListExperimentsRequest{})
			},
			SetTag: w.Experiments.SetExperimentTag,
		}),
		NewModelField(ModelAPI{
			Get: func(ctx context.Context, name string) (*ml.ModelDatabricks, error) {
				resp, err := w.ModelRegistry.GetModel(ctx, ml.GetModelRequest{Name: name})
				if err != nil {
					return nil, err
				}
				if resp.RegisteredModelDatabricks == nil {
					return nil, fmt.Errorf("model %s: %w", name, domain.ErrNotFound)
				}
				return resp.RegisteredModelDatabricks, nil
			},
			List: func(ctx context.Context) ([]ml.Model, error) {
				return w.ModelRegistry.ListModelsAll(ctx, ml.ListModelsRequest{})
			},
			SetTag:    w.ModelRegistry.SetModelTag,
			DeleteTag: w.ModelRegistry.DeleteModelTag,
		}),
		NewCatalogField(catalogAPI),
		NewSchemaField(catalogAPI),
		NewTableField(catalogAPI, tables),
		NewUnsupportedField(domain.ResourceTypeVolume),
		NewUnsupportedField(domain.ResourceTypeRepo),
		NewServingEndpointField(ServingEndpointAPI{
			Get:  w.ServingEndpoints.GetByName,
			List: w.ServingEndpoints.ListAll,
			Patch: func(ctx context.Context, req serving.PatchServingEndpointTags) error {
				_, err := w.ServingEndpoints.Patch(ctx, req)
				return err
			},
		}),
	)
}
