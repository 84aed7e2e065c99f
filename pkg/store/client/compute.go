package client

import (
	"context"
	"strconv"

	"github.com/databricks/databricks-sdk-go/service/compute"
	"github.com/databricks/databricks-sdk-go/service/jobs"
	"github.com/databricks/databricks-sdk-go/service/pipelines"
	dbsql "github.com/databricks/databricks-sdk-go/service/sql"
	"github.com/de-tools/lakespend/pkg/models/domain"
)

type ClusterAPI struct {
	Get  func(ctx context.Context, id string) (*compute.ClusterDetails, error)
	List func(ctx context.Context) ([]compute.ClusterDetails, error)
	Edit func(ctx context.Context, req compute.EditCluster) error
}

type clusterField struct {
	api ClusterAPI
}

// NewClusterField stores tags in the cluster's custom_tags. Edits rewrite the whole
// cluster spec since the edit endpoint requires the full definition.
func NewClusterField(api ClusterAPI) TagField {
	return &clusterField{api: api}
}

func (f *clusterField) Type() domain.ResourceType { return domain.ResourceTypeCluster }

func (f *clusterField) Supported() bool { return true }

func (f *clusterField) Get(ctx context.Context, id string) (domain.Resource, error) {
	c, err := f.api.Get(ctx, id)
	if err != nil {
		return domain.Resource{}, upstreamError(ctx, f.Type(), id, "get", err)
	}
	return clusterResource(*c), nil
}

func (f *clusterField) List(ctx context.Context) ([]domain.Resource, error) {
	clusters, err := f.api.List(ctx)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), "", "list", err)
	}
	out := make([]domain.Resource, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, clusterResource(c))
	}
	return out, nil
}

func (f *clusterField) Update(
	ctx context.Context,
	id string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	c, err := f.api.Get(ctx, id)
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), id, "get", err)
	}

	before := domain.TagMap(c.CustomTags).Clone()
	after := apply(before.Clone())

	if err := f.api.Edit(ctx, editCluster(*c, after)); err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), id, "edit", err)
	}
	return before, after, nil
}

// editCluster carries every settable field of c so the edit only changes custom_tags.
func editCluster(c compute.ClusterDetails, tags domain.TagMap) compute.EditCluster {
	return compute.EditCluster{
		ClusterId:                  c.ClusterId,
		ClusterName:                c.ClusterName,
		SparkVersion:               c.SparkVersion,
		NodeTypeId:                 c.NodeTypeId,
		DriverNodeTypeId:           c.DriverNodeTypeId,
		NumWorkers:                 c.NumWorkers,
		Autoscale:                  c.Autoscale,
		AutoterminationMinutes:     c.AutoterminationMinutes,
		SparkConf:                  c.SparkConf,
		SparkEnvVars:               c.SparkEnvVars,
		PolicyId:                   c.PolicyId,
		DataSecurityMode:           c.DataSecurityMode,
		SingleUserName:             c.SingleUserName,
		InstancePoolId:             c.InstancePoolId,
		DriverInstancePoolId:       c.DriverInstancePoolId,
		RuntimeEngine:              c.RuntimeEngine,
		AwsAttributes:              c.AwsAttributes,
		AzureAttributes:            c.AzureAttributes,
		GcpAttributes:              c.GcpAttributes,
		ClusterLogConf:             c.ClusterLogConf,
		DockerImage:                c.DockerImage,
		InitScripts:                c.InitScripts,
		SshPublicKeys:              c.SshPublicKeys,
		EnableElasticDisk:          c.EnableElasticDisk,
		EnableLocalDiskEncryption:  c.EnableLocalDiskEncryption,
		Kind:                       c.Kind,
		IsSingleNode:               c.IsSingleNode,
		UseMlRuntime:               c.UseMlRuntime,
		WorkloadType:               c.WorkloadType,
		RemoteDiskThroughput:       c.RemoteDiskThroughput,
		TotalInitialRemoteDiskSize: c.TotalInitialRemoteDiskSize,
		CustomTags:                 tags,
	}
}

func clusterResource(c compute.ClusterDetails) domain.Resource {
	return domain.Resource{
		Type:  domain.ResourceTypeCluster,
		ID:    c.ClusterId,
		Name:  c.ClusterName,
		State: string(c.State),
		Tags:  domain.TagMap(c.CustomTags).Clone(),
	}
}

type WarehouseAPI struct {
	Get  func(ctx context.Context, id string) (*dbsql.GetWarehouseResponse, error)
	List func(ctx context.Context) ([]dbsql.EndpointInfo, error)
	Edit func(ctx context.Context, req dbsql.EditWarehouseRequest) error
}

type warehouseField struct {
	api WarehouseAPI
}

// NewWarehouseField stores tags in the warehouse's tags.custom_tags pairs.
func NewWarehouseField(api WarehouseAPI) TagField {
	return &warehouseField{api: api}
}

func (f *warehouseField) Type() domain.ResourceType { return domain.ResourceTypeWarehouse }

func (f *warehouseField) Supported() bool { return true }

func (f *warehouseField) Get(ctx context.Context, id string) (domain.Resource, error) {
	w, err := f.api.Get(ctx, id)
	if err != nil {
		return domain.Resource{}, upstreamError(ctx, f.Type(), id, "get", err)
	}
	return domain.Resource{
		Type:  domain.ResourceTypeWarehouse,
		ID:    w.Id,
		Name:  w.Name,
		State: string(w.State),
		Tags:  endpointTags(w.Tags),
	}, nil
}

func (f *warehouseField) List(ctx context.Context) ([]domain.Resource, error) {
	warehouses, err := f.api.List(ctx)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), "", "list", err)
	}
	out := make([]domain.Resource, 0, len(warehouses))
	for _, w := range warehouses {
		out = append(out, domain.Resource{
			Type:  domain.ResourceTypeWarehouse,
			ID:    w.Id,
			Name:  w.Name,
			State: string(w.State),
			Tags:  endpointTags(w.Tags),
		})
	}
	return out, nil
}

func (f *warehouseField) Update(
	ctx context.Context,
	id string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	w, err := f.api.Get(ctx, id)
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), id, "get", err)
	}

	before := endpointTags(w.Tags)
	after := apply(before.Clone())

	pairs := make([]dbsql.EndpointTagPair, 0, len(after))
	for _, k := range sortedKeys(after) {
		pairs = append(pairs, dbsql.EndpointTagPair{Key: k, Value: after[k]})
	}

	if err := f.api.Edit(ctx, editWarehouse(*w, pairs)); err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), id, "edit", err)
	}
	return before, after, nil
}

// editWarehouse carries every settable field of w so the edit only changes the tags.
func editWarehouse(w dbsql.GetWarehouseResponse, pairs []dbsql.EndpointTagPair) dbsql.EditWarehouseRequest {
	return dbsql.EditWarehouseRequest{
		Id:                      w.Id,
		Name:                    w.Name,
		CreatorName:             w.CreatorName,
		ClusterSize:             w.ClusterSize,
		MinNumClusters:          w.MinNumClusters,
		MaxNumClusters:          w.MaxNumClusters,
		AutoStopMins:            w.AutoStopMins,
		Channel:                 w.Channel,
		EnablePhoton:            w.EnablePhoton,
		EnableServerlessCompute: w.EnableServerlessCompute,
		WarehouseType:           dbsql.EditWarehouseRequestWarehouseType(w.WarehouseType),
		SpotInstancePolicy:      w.SpotInstancePolicy,
		InstanceProfileArn:      w.InstanceProfileArn,
		Tags:                    &dbsql.EndpointTags{CustomTags: pairs},
	}
}

func endpointTags(tags *dbsql.EndpointTags) domain.TagMap {
	out := domain.TagMap{}
	if tags == nil {
		return out
	}
	for _, p := range tags.CustomTags {
		out[p.Key] = p.Value
	}
	return out
}

type JobAPI struct {
	Get   func(ctx context.Context, id int64) (*jobs.Job, error)
	List  func(ctx context.Context) ([]jobs.BaseJob, error)
	Reset func(ctx context.Context, req jobs.ResetJob) error
}

type jobField struct {
	api JobAPI
}

// NewJobField stores tags in the job settings. Writes reset the full settings object.
func NewJobField(api JobAPI) TagField {
	return &jobField{api: api}
}

func (f *jobField) Type() domain.ResourceType { return domain.ResourceTypeJob }

func (f *jobField) Supported() bool { return true }

func (f *jobField) Get(ctx context.Context, id string) (domain.Resource, error) {
	job, err := f.get(ctx, id)
	if err != nil {
		return domain.Resource{}, err
	}
	return jobResource(job.JobId, job.Settings), nil
}

func (f *jobField) List(ctx context.Context) ([]domain.Resource, error) {
	list, err := f.api.List(ctx)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), "", "list", err)
	}
	out := make([]domain.Resource, 0, len(list))
	for _, j := range list {
		out = append(out, jobResource(j.JobId, j.Settings))
	}
	return out, nil
}

func (f *jobField) Update(
	ctx context.Context,
	id string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	job, err := f.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var settings jobs.JobSettings
	if job.Settings != nil {
		settings = *job.Settings
	}
	before := domain.TagMap(settings.Tags).Clone()
	after := apply(before.Clone())
	settings.Tags = after

	if err := f.api.Reset(ctx, jobs.ResetJob{JobId: job.JobId, NewSettings: settings}); err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), id, "reset", err)
	}
	return before, after, nil
}

func (f *jobField) get(ctx context.Context, id string) (*jobs.Job, error) {
	jobID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, notFound(ctx, f.Type(), id, "job id must be numeric")
	}
	job, err := f.api.Get(ctx, jobID)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), id, "get", err)
	}
	return job, nil
}

func jobResource(id int64, settings *jobs.JobSettings) domain.Resource {
	r := domain.Resource{
		Type: domain.ResourceTypeJob,
		ID:   strconv.FormatInt(id, 10),
		Tags: domain.TagMap{},
	}
	if settings != nil {
		r.Name = settings.Name
		r.Tags = domain.TagMap(settings.Tags).Clone()
	}
	return r
}

type PipelineAPI struct {
	Get    func(ctx context.Context, id string) (*pipelines.GetPipelineResponse, error)
	List   func(ctx context.Context) ([]pipelines.PipelineStateInfo, error)
	Update func(ctx context.Context, req pipelines.EditPipeline) error
}

const defaultPipelineCluster = "default"

type pipelineField struct {
	api PipelineAPI
}

// NewPipelineField stores tags in the pipeline-level tags. Classic pipelines without
// pipeline tags keep theirs in the default cluster's custom_tags. Writes resubmit the
// full pipeline spec.
func NewPipelineField(api PipelineAPI) TagField {
	return &pipelineField{api: api}
}

func (f *pipelineField) Type() domain.ResourceType { return domain.ResourceTypePipeline }

func (f *pipelineField) Supported() bool { return true }

func (f *pipelineField) Get(ctx context.Context, id string) (domain.Resource, error) {
	p, err := f.api.Get(ctx, id)
	if err != nil {
		return domain.Resource{}, upstreamError(ctx, f.Type(), id, "get", err)
	}
	return pipelineResource(p), nil
}

// List issues one get per pipeline since the list endpoint omits the spec.
func (f *pipelineField) List(ctx context.Context) ([]domain.Resource, error) {
	list, err := f.api.List(ctx)
	if err != nil {
		return nil, upstreamError(ctx, f.Type(), "", "list", err)
	}
	out := make([]domain.Resource, 0, len(list))
	for _, info := range list {
		p, err := f.api.Get(ctx, info.PipelineId)
		if err != nil {
			return nil, upstreamError(ctx, f.Type(), info.PipelineId, "get", err)
		}
		out = append(out, pipelineResource(p))
	}
	return out, nil
}

func (f *pipelineField) Update(
	ctx context.Context,
	id string,
	apply func(domain.TagMap) domain.TagMap,
) (domain.TagMap, domain.TagMap, error) {
	p, err := f.api.Get(ctx, id)
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), id, "get", err)
	}

	spec := pipelines.PipelineSpec{}
	if p.Spec != nil {
		spec = *p.Spec
	}
	before := pipelineTags(spec)
	after := apply(before.Clone())

	clusters := append([]pipelines.PipelineCluster(nil), spec.Clusters...)
	tags := spec.Tags
	if i := tagCluster(spec); i >= 0 {
		clusters[i].CustomTags = after
	} else {
		tags = after
	}

	err = f.api.Update(ctx, pipelines.EditPipeline{
		PipelineId:           p.PipelineId,
		Id:                   spec.Id,
		ExpectedLastModified: p.LastModified,
		Name:                 spec.Name,
		Catalog:              spec.Catalog,
		Schema:               spec.Schema,
		Target:               spec.Target,
		Storage:              spec.Storage,
		RootPath:             spec.RootPath,
		Channel:              spec.Channel,
		Edition:              spec.Edition,
		Continuous:           spec.Continuous,
		Development:          spec.Development,
		Photon:               spec.Photon,
		Serverless:           spec.Serverless,
		BudgetPolicyId:       spec.BudgetPolicyId,
		Configuration:        spec.Configuration,
		Libraries:            spec.Libraries,
		Clusters:             clusters,
		Notifications:        spec.Notifications,
		Trigger:              spec.Trigger,
		Filters:              spec.Filters,
		Environment:          spec.Environment,
		EventLog:             spec.EventLog,
		IngestionDefinition:  spec.IngestionDefinition,
		GatewayDefinition:    spec.GatewayDefinition,
		Deployment:           spec.Deployment,
		RestartWindow:        spec.RestartWindow,
		Tags:                 tags,
	})
	if err != nil {
		return nil, nil, upstreamError(ctx, f.Type(), id, "update", err)
	}
	return before, after, nil
}

func pipelineResource(p *pipelines.GetPipelineResponse) domain.Resource {
	r := domain.Resource{
		Type:  domain.ResourceTypePipeline,
		ID:    p.PipelineId,
		Name:  p.Name,
		State: string(p.State),
		Tags:  domain.TagMap{},
	}
	if p.Spec != nil {
		r.Tags = pipelineTags(*p.Spec)
	}
	return r
}

// tagCluster returns the index of the cluster holding the tags of a classic pipeline
// that has no pipeline-level tags, or -1 when the pipeline-level tags apply.
func tagCluster(spec pipelines.PipelineSpec) int {
	if spec.Serverless || len(spec.Tags) > 0 {
		return -1
	}
	for i, c := range spec.Clusters {
		if (c.Label == "" || c.Label == defaultPipelineCluster) && len(c.CustomTags) > 0 {
			return i
		}
	}
	return -1
}

func pipelineTags(spec pipelines.PipelineSpec) domain.TagMap {
	if i := tagCluster(spec); i >= 0 {
		return domain.TagMap(spec.Clusters[i].CustomTags).Clone()
	}
	return domain.TagMap(spec.Tags).Clone()
}
