package domain

type UpdateResult struct {
	Success      bool
	PreviousTags TagMap
	NewTags      TagMap
	Operation    Operation
}

type BulkEntry struct {
	Type string
	ID   string
}

// BulkOutcome records the result of one entry of a bulk update. Exactly one of
// Result and Error is set.
type BulkOutcome struct {
	ResourceType string
	ResourceID   string
	Result       *UpdateResult
	Error        string
}

func (o BulkOutcome) Succeeded() bool {
	return o.Error == ""
}

type TagMatch struct {
	ResourceType ResourceType
	ResourceID   string
	ResourceName string
	TagValue     string
	AllTags      TagMap
}

// ScanError records a resource type whose listing failed during a scan.
type ScanError struct {
	ResourceType ResourceType
	Error        string
}

type ComplianceSummary struct {
	TotalResources        int
	CompliantResources    int
	NonCompliantResources int
	CompliancePercentage  float64
}

type TypeCompliance struct {
	Total                int
	Compliant            int
	NonCompliant         int
	CompliancePercentage float64
}

type NonCompliantResource struct {
	ResourceType ResourceType
	ResourceID   string
	ResourceName string
	MissingTags  []string
	CurrentTags  TagMap
}

type ComplianceReport struct {
	Summary             ComplianceSummary
	ByResourceType      map[ResourceType]TypeCompliance
	RequiredTags        []string
	NonCompliantDetails []NonCompliantResource
	Errors              []ScanError
}

// Percentage returns part/total*100, or 0 when total is 0.
func Percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
