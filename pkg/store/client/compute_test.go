package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/databricks/databricks-sdk-go/apierr"
	"github.com/databricks/databricks-sdk-go/service/compute"
	"github.com/databricks/databricks-sdk-go/service/jobs"
	"github.com/databricks/databricks-sdk-go/service/pipelines"
	dbsql "github.com/databricks/databricks-sdk-go/service/sql"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overlay(extra domain.TagMap) func(domain.TagMap) domain.TagMap {
	return func(current domain.TagMap) domain.TagMap {
		for k, v := range extra {
			current[k] = v
		}
		return current
	}
}

func TestClusterField_Update(t *testing.T) {
	// Given
	var edited compute.EditCluster
	field := NewClusterField(ClusterAPI{
		Get: func(_ context.Context, id string) (*compute.ClusterDetails, error) {
			return &compute.ClusterDetails{
				ClusterId:    id,
				ClusterName:  "etl",
				SparkVersion: "15.4.x-scala2.12",
				NodeTypeId:   "i3.xlarge",
				NumWorkers:   4,
				CustomTags:   map[string]string{"env": "prod"},
			}, nil
		},
		Edit: func(_ context.Context, req compute.EditCluster) error {
			edited = req
			return nil
		},
	})

	// When
	before, after, err := field.Update(context.Background(), "0612-etl", overlay(domain.TagMap{"team": "data"}))

	// Then
	require.NoError(t, err)
	assert.Equal(t, domain.TagMap{"env": "prod"}, before)
	assert.Equal(t, domain.TagMap{"env": "prod", "team": "data"}, after)
	assert.Equal(t, "0612-etl", edited.ClusterId)
	assert.Equal(t, "15.4.x-scala2.12", edited.SparkVersion)
	assert.Equal(t, 4, edited.NumWorkers)
	assert.Equal(t, map[string]string{"env": "prod", "team": "data"}, edited.CustomTags)
}

func TestClusterField_UpdateKeepsSpec(t *testing.T) {
	// Given
	details := compute.ClusterDetails{
		ClusterId:                 "0612-etl",
		ClusterName:               "etl",
		SparkVersion:              "15.4.x-scala2.12",
		NodeTypeId:                "i3.xlarge",
		DriverNodeTypeId:          "i3.2xlarge",
		Autoscale:                 &compute.AutoScale{MinWorkers: 1, MaxWorkers: 8},
		AutoterminationMinutes:    60,
		SparkConf:                 map[string]string{"spark.sql.shuffle.partitions": "64"},
		SparkEnvVars:              map[string]string{"PYSPARK_PYTHON": "/databricks/python3/bin/python3"},
		PolicyId:                  "pol-1",
		DataSecurityMode:          compute.DataSecurityModeSingleUser,
		SingleUserName:            "alice@example.com",
		RuntimeEngine:             compute.RuntimeEnginePhoton,
		AwsAttributes:             &compute.AwsAttributes{ZoneId: "us-east-1a"},
		ClusterLogConf:            &compute.ClusterLogConf{Dbfs: &compute.DbfsStorageInfo{Destination: "dbfs:/logs"}},
		DockerImage:               &compute.DockerImage{Url: "registry/etl:1"},
		InitScripts:               []compute.InitScriptInfo{{Workspace: &compute.WorkspaceStorageInfo{Destination: "/init.sh"}}},
		SshPublicKeys:             []string{"ssh-ed25519 AAAA"},
		EnableElasticDisk:         true,
		EnableLocalDiskEncryption: true,
		Kind:                      compute.KindClassicPreview,
		IsSingleNode:              false,
		UseMlRuntime:              true,
		WorkloadType:              &compute.WorkloadType{Clients: compute.ClientsTypes{Jobs: true, Notebooks: false}},
		CustomTags:                map[string]string{"env": "prod"},
		State:                     compute.StateRunning,
	}
	var edited compute.EditCluster
	field := NewClusterField(ClusterAPI{
		Get: func(context.Context, string) (*compute.ClusterDetails, error) {
			c := details
			return &c, nil
		},
		Edit: func(_ context.Context, req compute.EditCluster) error {
			edited = req
			return nil
		},
	})

	// When
	_, _, err := field.Update(context.Background(), "0612-etl", overlay(domain.TagMap{"team": "data"}))

	// Then
	require.NoError(t, err)
	assert.Equal(t, compute.EditCluster{
		ClusterId:                 details.ClusterId,
		ClusterName:               details.ClusterName,
		SparkVersion:              details.SparkVersion,
		NodeTypeId:                details.NodeTypeId,
		DriverNodeTypeId:          details.DriverNodeTypeId,
		Autoscale:                 details.Autoscale,
		AutoterminationMinutes:    details.AutoterminationMinutes,
		SparkConf:                 details.SparkConf,
		SparkEnvVars:              details.SparkEnvVars,
		PolicyId:                  details.PolicyId,
		DataSecurityMode:          details.DataSecurityMode,
		SingleUserName:            details.SingleUserName,
		RuntimeEngine:             details.RuntimeEngine,
		AwsAttributes:             details.AwsAttributes,
		ClusterLogConf:            details.ClusterLogConf,
		DockerImage:               details.DockerImage,
		InitScripts:               details.InitScripts,
		SshPublicKeys:             details.SshPublicKeys,
		EnableElasticDisk:         true,
		EnableLocalDiskEncryption: true,
		Kind:                      details.Kind,
		UseMlRuntime:              true,
		WorkloadType:              details.WorkloadType,
		CustomTags:                map[string]string{"env": "prod", "team": "data"},
	}, edited)
}

func TestClusterField_Errors(t *testing.T) {
	tests := []struct {
		name     string
		upstream error
		want     error
	}{
		{name: "missing cluster", upstream: fmt.Errorf("lookup: %w", apierr.ErrNotFound), want: domain.ErrNotFound},
		{name: "does not exist", upstream: apierr.ErrResourceDoesNotExist, want: domain.ErrNotFound},
		{name: "other failure", upstream: errors.New("connection reset"), want: domain.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := NewClusterField(ClusterAPI{
				Get: func(context.Context, string) (*compute.ClusterDetails, error) { return nil, tt.upstream },
			})

			_, err := field.Get(context.Background(), "c")

			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.upstream)
		})
	}
}

func TestWarehouseField(t *testing.T) {
	var edited dbsql.EditWarehouseRequest
	field := NewWarehouseField(WarehouseAPI{
		Get: func(_ context.Context, id string) (*dbsql.GetWarehouseResponse, error) {
			return &dbsql.GetWarehouseResponse{
				Id:          id,
				Name:        "bi",
				ClusterSize: "Small",
				Tags: &dbsql.EndpointTags{CustomTags: []dbsql.EndpointTagPair{
					{Key: "owner", Value: "alice"},
					{Key: "env", Value: "prod"},
				}},
			}, nil
		},
		Edit: func(_ context.Context, req dbsql.EditWarehouseRequest) error {
			edited = req
			return nil
		},
	})

	t.Run("get flattens tag pairs", func(t *testing.T) {
		r, err := field.Get(context.Background(), "wh-1")

		require.NoError(t, err)
		assert.Equal(t, domain.TagMap{"owner": "alice", "env": "prod"}, r.Tags)
		assert.Equal(t, "bi", r.Name)
	})

	t.Run("update writes sorted pairs", func(t *testing.T) {
		_, _, err := field.Update(context.Background(), "wh-1", func(domain.TagMap) domain.TagMap {
			return domain.TagMap{"team": "data", "cost_center": "42"}
		})

		require.NoError(t, err)
		assert.Equal(t, "Small", edited.ClusterSize)
		assert.Equal(t, []dbsql.EndpointTagPair{
			{Key: "cost_center", Value: "42"},
			{Key: "team", Value: "data"},
		}, edited.Tags.CustomTags)
	})
}

func TestWarehouseField_UpdateKeepsSettings(t *testing.T) {
	// Given
	var edited dbsql.EditWarehouseRequest
	field := NewWarehouseField(WarehouseAPI{
		Get: func(_ context.Context, id string) (*dbsql.GetWarehouseResponse, error) {
			return &dbsql.GetWarehouseResponse{
				Id:                      id,
				Name:                    "bi",
				CreatorName:             "alice@example.com",
				ClusterSize:             "Medium",
				MinNumClusters:          1,
				MaxNumClusters:          4,
				AutoStopMins:            10,
				Channel:                 &dbsql.Channel{Name: dbsql.ChannelNameChannelNameCurrent},
				EnablePhoton:            true,
				EnableServerlessCompute: true,
				WarehouseType:           dbsql.GetWarehouseResponseWarehouseTypePro,
				SpotInstancePolicy:      dbsql.SpotInstancePolicyCostOptimized,
				InstanceProfileArn:      "arn:aws:iam::1:instance-profile/bi",
				State:                   dbsql.StateRunning,
			}, nil
		},
		Edit: func(_ context.Context, req dbsql.EditWarehouseRequest) error {
			edited = req
			return nil
		},
	})

	// When
	_, _, err := field.Update(context.Background(), "wh-1", overlay(domain.TagMap{"team": "data"}))

	// Then
	require.NoError(t, err)
	assert.Equal(t, dbsql.EditWarehouseRequest{
		Id:                      "wh-1",
		Name:                    "bi",
		CreatorName:             "alice@example.com",
		ClusterSize:             "Medium",
		MinNumClusters:          1,
		MaxNumClusters:          4,
		AutoStopMins:            10,
		Channel:                 &dbsql.Channel{Name: dbsql.ChannelNameChannelNameCurrent},
		EnablePhoton:            true,
		EnableServerlessCompute: true,
		WarehouseType:           dbsql.EditWarehouseRequestWarehouseTypePro,
		SpotInstancePolicy:      dbsql.SpotInstancePolicyCostOptimized,
		InstanceProfileArn:      "arn:aws:iam::1:instance-profile/bi",
		Tags:                    &dbsql.EndpointTags{CustomTags: []dbsql.EndpointTagPair{{Key: "team", Value: "data"}}},
	}, edited)
}

func TestJobField(t *testing.T) {
	t.Run("non numeric id is not found", func(t *testing.T) {
		field := NewJobField(JobAPI{})

		_, err := field.Get(context.Background(), "nightly")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("update resets settings with new tags", func(t *testing.T) {
		var reset jobs.ResetJob
		field := NewJobField(JobAPI{
			Get: func(_ context.Context, id int64) (*jobs.Job, error) {
				return &jobs.Job{JobId: id, Settings: &jobs.JobSettings{
					Name: "nightly",
					Tags: map[string]string{"env": "prod", "owner": "alice"},
				}}, nil
			},
			Reset: func(_ context.Context, req jobs.ResetJob) error {
				reset = req
				return nil
			},
		})

		before, after, err := field.Update(context.Background(), "42", func(current domain.TagMap) domain.TagMap {
			delete(current, "owner")
			return current
		})

		require.NoError(t, err)
		assert.Equal(t, domain.TagMap{"env": "prod", "owner": "alice"}, before)
		assert.Equal(t, domain.TagMap{"env": "prod"}, after)
		assert.Equal(t, int64(42), reset.JobId)
		assert.Equal(t, "nightly", reset.NewSettings.Name)
		assert.Equal(t, map[string]string{"env": "prod"}, reset.NewSettings.Tags)
	})

	t.Run("list formats ids", func(t *testing.T) {
		field := NewJobField(JobAPI{
			List: func(context.Context) ([]jobs.BaseJob, error) {
				return []jobs.BaseJob{{JobId: 7}, {JobId: 8, Settings: &jobs.JobSettings{Name: "x"}}}, nil
			},
		})

		list, err := field.List(context.Background())

		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "7", list[0].ID)
		assert.Equal(t, domain.TagMap{}, list[0].Tags)
		assert.Equal(t, "x", list[1].Name)
	})
}

func TestPipelineField_Update(t *testing.T) {
	tests := []struct {
		name         string
		spec         pipelines.PipelineSpec
		wantClusters []pipelines.PipelineCluster
		wantTags     map[string]string
	}{
		{
			name: "serverless pipeline uses pipeline tags",
			spec: pipelines.PipelineSpec{
				Name:       "ingest",
				Catalog:    "main",
				Serverless: true,
				Tags:       map[string]string{"env": "dev"},
			},
			wantClusters: nil,
			wantTags:     map[string]string{"env": "dev", "team": "data"},
		},
		{
			name:         "pipeline without clusters gets pipeline tags",
			spec:         pipelines.PipelineSpec{Name: "ingest", Catalog: "main"},
			wantClusters: nil,
			wantTags:     map[string]string{"team": "data"},
		},
		{
			name: "classic pipeline keeps its default cluster tags",
			spec: pipelines.PipelineSpec{
				Name:    "ingest",
				Catalog: "main",
				Clusters: []pipelines.PipelineCluster{
					{Label: "default", CustomTags: map[string]string{"env": "dev"}},
					{Label: "maintenance"},
				},
			},
			wantClusters: []pipelines.PipelineCluster{
				{Label: "default", CustomTags: map[string]string{"env": "dev", "team": "data"}},
				{Label: "maintenance"},
			},
			wantTags: nil,
		},
		{
			name: "classic pipeline with untagged clusters gets pipeline tags",
			spec: pipelines.PipelineSpec{
				Name:     "ingest",
				Catalog:  "main",
				Clusters: []pipelines.PipelineCluster{{Label: "default", NumWorkers: 2}},
			},
			wantClusters: []pipelines.PipelineCluster{{Label: "default", NumWorkers: 2}},
			wantTags:     map[string]string{"team": "data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			var edited pipelines.EditPipeline
			spec := tt.spec
			field := NewPipelineField(PipelineAPI{
				Get: func(_ context.Context, id string) (*pipelines.GetPipelineResponse, error) {
					return &pipelines.GetPipelineResponse{PipelineId: id, Name: "ingest", Spec: &spec}, nil
				},
				Update: func(_ context.Context, req pipelines.EditPipeline) error {
					edited = req
					return nil
				},
			})

			// When
			_, _, err := field.Update(context.Background(), "p-1", overlay(domain.TagMap{"team": "data"}))

			// Then
			require.NoError(t, err)
			assert.Equal(t, "main", edited.Catalog)
			assert.Equal(t, tt.wantClusters, edited.Clusters)
			if tt.wantTags == nil {
				assert.Empty(t, edited.Tags)
			} else {
				assert.Equal(t, tt.wantTags, map[string]string(edited.Tags))
			}
		})
	}
}

func TestPipelineField_UpdateKeepsSpec(t *testing.T) {
	// Given
	spec := pipelines.PipelineSpec{
		Id:             "p-1",
		Name:           "ingest",
		Catalog:        "main",
		Schema:         "bronze",
		RootPath:       "/Workspace/ingest",
		Serverless:     true,
		Continuous:     true,
		BudgetPolicyId: "bp-1",
		Configuration:  map[string]string{"source": "s3://raw"},
		Libraries:      []pipelines.PipelineLibrary{{Notebook: &pipelines.NotebookLibrary{Path: "/ingest"}}},
		Notifications:  []pipelines.Notifications{{EmailRecipients: []string{"ops@example.com"}, Alerts: []string{"on-update-failure"}}},
		Trigger:        &pipelines.PipelineTrigger{Cron: &pipelines.CronTrigger{QuartzCronSchedule: "0 0 * * * ?"}},
		Filters:        &pipelines.Filters{Include: []string{"orders"}},
		Environment:    &pipelines.PipelinesEnvironment{Dependencies: []string{"requests"}},
		EventLog:       &pipelines.EventLogSpec{Catalog: "main", Schema: "logs", Name: "events"},
		Deployment:     &pipelines.PipelineDeployment{Kind: pipelines.DeploymentKindBundle},
		RestartWindow:  &pipelines.RestartWindow{StartHour: 2},
		Tags:           map[string]string{"env": "prod"},
	}
	var edited pipelines.EditPipeline
	field := NewPipelineField(PipelineAPI{
		Get: func(_ context.Context, id string) (*pipelines.GetPipelineResponse, error) {
			return &pipelines.GetPipelineResponse{PipelineId: id, LastModified: 1700000000000, Spec: &spec}, nil
		},
		Update: func(_ context.Context, req pipelines.EditPipeline) error {
			edited = req
			return nil
		},
	})

	// When
	_, _, err := field.Update(context.Background(), "p-1", overlay(domain.TagMap{"team": "data"}))

	// Then
	require.NoError(t, err)
	assert.Equal(t, pipelines.EditPipeline{
		PipelineId:           "p-1",
		Id:                   "p-1",
		ExpectedLastModified: 1700000000000,
		Name:                 spec.Name,
		Catalog:              spec.Catalog,
		Schema:               spec.Schema,
		RootPath:             spec.RootPath,
		Serverless:           true,
		Continuous:           true,
		BudgetPolicyId:       spec.BudgetPolicyId,
		Configuration:        spec.Configuration,
		Libraries:            spec.Libraries,
		Notifications:        spec.Notifications,
		Trigger:              spec.Trigger,
		Filters:              spec.Filters,
		Environment:          spec.Environment,
		EventLog:             spec.EventLog,
		Deployment:           spec.Deployment,
		RestartWindow:        spec.RestartWindow,
		Tags:                 map[string]string{"env": "prod", "team": "data"},
	}, edited)
	assert.Empty(t, edited.Clusters)
}

func TestResources_Field(t *testing.T) {
	r := NewResources(NewClusterField(ClusterAPI{}), NewUnsupportedField(domain.ResourceTypeVolume))

	_, err := r.Field(domain.ResourceTypeJob)
	assert.ErrorIs(t, err, domain.ErrUnknownResourceType)

	f, err := r.Field(domain.ResourceTypeVolume)
	require.NoError(t, err)
	assert.False(t, f.Supported())
	_, _, err = f.Update(context.Background(), "v", nil)
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	assert.Equal(t, []domain.ResourceType{domain.ResourceTypeCluster, domain.ResourceTypeVolume}, r.Types())
}

func TestDiffTags(t *testing.T) {
	set, unset := diffTags(
		domain.TagMap{"a": "1", "b": "2", "c": "3"},
		domain.TagMap{"a": "1", "b": "20", "d": "4"},
	)

	assert.Equal(t, domain.TagMap{"b": "20", "d": "4"}, set)
	assert.Equal(t, []string{"c"}, unset)
}
