package api

type Resource struct {
	ResourceType string            `json:"resource_type"`
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	State        string            `json:"state,omitempty"`
	Tags         map[string]string `json:"tags"`
	TagCount     int               `json:"tag_count"`
}

type ResourceTags struct {
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	Tags         map[string]string `json:"tags"`
}

type ResourceList struct {
	ResourceType string     `json:"resource_type"`
	Resources    []Resource `json:"resources"`
	Total        int        `json:"total"`
}

type UpdateResult struct {
	Success      bool              `json:"success"`
	PreviousTags map[string]string `json:"previous_tags"`
	NewTags      map[string]string `json:"new_tags"`
	Operation    string            `json:"operation"`
}

type BulkEntry struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type BulkOutcome struct {
	ResourceType string        `json:"resource_type"`
	ResourceID   string        `json:"resource_id"`
	Success      bool          `json:"success"`
	Result       *UpdateResult `json:"result,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type BulkResult struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Results   []BulkOutcome `json:"results"`
}

type TagMatch struct {
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	ResourceName string            `json:"resource_name"`
	TagValue     string            `json:"tag_value"`
	AllTags      map[string]string `json:"all_tags"`
}

type ScanError struct {
	ResourceType string `json:"resource_type,omitempty"`
	Error        string `json:"error"`
}

type FindResult struct {
	TagKey   string      `json:"tag_key"`
	TagValue *string     `json:"tag_value,omitempty"`
	Total    int         `json:"total"`
	Matches  []TagMatch  `json:"matches"`
	Errors   []ScanError `json:"errors,omitempty"`
}

type ComplianceSummary struct {
	TotalResources        int     `json:"total_resources"`
	CompliantResources    int     `json:"compliant_resources"`
	NonCompliantResources int     `json:"non_compliant_resources"`
	CompliancePercentage  float64 `json:"compliance_percentage"`
}

type TypeCompliance struct {
	Total                int     `json:"total"`
	Compliant            int     `json:"compliant"`
	NonCompliant         int     `json:"non_compliant"`
	CompliancePercentage float64 `json:"compliance_percentage"`
}

type NonCompliantResource struct {
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	ResourceName string            `json:"resource_name"`
	MissingTags  []string          `json:"missing_tags"`
	CurrentTags  map[string]string `json:"current_tags"`
}

type ComplianceReport struct {
	Summary             ComplianceSummary         `json:"summary"`
	ByResourceType      map[string]TypeCompliance `json:"by_resource_type"`
	RequiredTags        []string                  `json:"required_tags"`
	NonCompliantDetails []NonCompliantResource    `json:"non_compliant_details"`
	Errors              []ScanError               `json:"errors,omitempty"`
}

type ServerInfo struct {
	Name                   string   `json:"name"`
	Version                string   `json:"version"`
	SupportedResourceTypes []string `json:"supported_resource_types"`
	Tools                  []string `json:"tools"`
}

type ServerStatus struct {
	Status     string         `json:"status"`
	Server     ServerInfo     `json:"server"`
	Connection ConnectionInfo `json:"connection"`
}

type ConnectionInfo struct {
	Host              string `json:"host"`
	User              string `json:"user,omitempty"`
	Connected         bool   `json:"connected"`
	AccountConfigured bool   `json:"account_configured"`
	Error             string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
