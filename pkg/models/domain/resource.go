package domain

import (
	"errors"
	"fmt"
	"strings"
)

// BudgetPolicyTagKey is the tag key that associates a resource with a budget policy.
const BudgetPolicyTagKey = "budget_policy_id"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnsupported         = errors.New("operation not supported for resource type")
	ErrUpstream            = errors.New("upstream request failed")
	ErrUnknownResourceType = errors.New("unknown resource type")
	ErrInvalidOperation    = errors.New("invalid tag operation")
	ErrInvalidArgument     = errors.New("invalid argument")
)

// IsValidationError reports whether err was caused by the caller's input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrUnknownResourceType)
}

type ResourceType string

const (
	ResourceTypeCluster         ResourceType = "cluster"
	ResourceTypeWarehouse       ResourceType = "warehouse"
	ResourceTypeJob             ResourceType = "job"
	ResourceTypePipeline        ResourceType = "pipeline"
	ResourceTypeExperiment      ResourceType = "experiment"
	ResourceTypeModel           ResourceType = "model"
	ResourceTypeCatalog         ResourceType = "catalog"
	ResourceTypeSchema          ResourceType = "schema"
	ResourceTypeTable           ResourceType = "table"
	ResourceTypeVolume          ResourceType = "volume"
	ResourceTypeRepo            ResourceType = "repo"
	ResourceTypeServingEndpoint ResourceType = "serving_endpoint"
)

// ResourceTypes lists every resource type in reporting order.
var ResourceTypes = []ResourceType{
	ResourceTypeCluster,
	ResourceTypeWarehouse,
	ResourceTypeJob,
	ResourceTypePipeline,
	ResourceTypeExperiment,
	ResourceTypeModel,
	ResourceTypeCatalog,
	ResourceTypeSchema,
	ResourceTypeTable,
	ResourceTypeVolume,
	ResourceTypeRepo,
	ResourceTypeServingEndpoint,
}

var resourceBuckets = map[ResourceType]string{
	ResourceTypeCluster:         "clusters",
	ResourceTypeWarehouse:       "warehouses",
	ResourceTypeJob:             "jobs",
	ResourceTypePipeline:        "pipelines",
	ResourceTypeExperiment:      "experiments",
	ResourceTypeModel:           "models",
	ResourceTypeCatalog:         "catalogs",
	ResourceTypeSchema:          "schemas",
	ResourceTypeTable:           "tables",
	ResourceTypeVolume:          "volumes",
	ResourceTypeRepo:            "repos",
	ResourceTypeServingEndpoint: "serving_endpoints",
}

// Bucket returns the plural name used when grouping resources by type.
func (t ResourceType) Bucket() string {
	return resourceBuckets[t]
}

func (t ResourceType) String() string {
	return string(t)
}

func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := resourceBuckets[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownResourceType, s)
	}
	return t, nil
}

type TagMap map[string]string

// Clone returns a copy that never aliases the receiver. A nil map clones to an empty map.
func (m TagMap) Clone() TagMap {
	out := make(TagMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type Operation string

const (
	OperationMerge   Operation = "merge"
	OperationReplace Operation = "replace"
	OperationRemove  Operation = "remove"
)

func ParseOperation(s string) (Operation, error) {
	switch Operation(strings.ToLower(strings.TrimSpace(s))) {
	case "", OperationMerge:
		return OperationMerge, nil
	case OperationReplace:
		return OperationReplace, nil
	case OperationRemove:
		return OperationRemove, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOperation, s)
	}
}

type Resource struct {
	Type  ResourceType
	ID    string
	Name  string
	State string
	Tags  TagMap
}

func (r Resource) TagCount() int {
	return len(r.Tags)
}

type ResourceRef struct {
	ID   string
	Name string
}
