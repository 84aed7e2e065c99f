package adapters

import (
	"sort"

	"github.com/de-tools/lakespend/pkg/models/api"
	"github.com/de-tools/lakespend/pkg/models/domain"
)

func MapTagMapDomainToApi(m domain.TagMap) map[string]string {
	return map[string]string(m.Clone())
}

func MapResourceDomainToApi(r domain.Resource) api.Resource {
	return api.Resource{
		ResourceType: r.Type.String(),
		ID:           r.ID,
		Name:         r.Name,
		State:        r.State,
		Tags:         MapTagMapDomainToApi(r.Tags),
		TagCount:     r.TagCount(),
	}
}

func MapResourceListDomainToApi(t domain.ResourceType, resources []domain.Resource) api.ResourceList {
	res := api.ResourceList{
		ResourceType: t.String(),
		Resources:    make([]api.Resource, 0, len(resources)),
		Total:        len(resources),
	}
	for _, r := range resources {
		res.Resources = append(res.Resources, MapResourceDomainToApi(r))
	}
	return res
}

func MapUpdateResultDomainToApi(r domain.UpdateResult) api.UpdateResult {
	return api.UpdateResult{
		Success:      r.Success,
		PreviousTags: MapTagMapDomainToApi(r.PreviousTags),
		NewTags:      MapTagMapDomainToApi(r.NewTags),
		Operation:    string(r.Operation),
	}
}

func MapBulkEntriesApiToDomain(entries []api.BulkEntry) []domain.BulkEntry {
	res := make([]domain.BulkEntry, 0, len(entries))
	for _, e := range entries {
		res = append(res, domain.BulkEntry{Type: e.Type, ID: e.ID})
	}
	return res
}

func MapBulkOutcomesDomainToApi(outcomes []domain.BulkOutcome) api.BulkResult {
	res := api.BulkResult{
		Total:   len(outcomes),
		Results: make([]api.BulkOutcome, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		out := api.BulkOutcome{
			ResourceType: o.ResourceType,
			ResourceID:   o.ResourceID,
			Success:      o.Succeeded(),
			Error:        o.Error,
		}
		if o.Result != nil {
			r := MapUpdateResultDomainToApi(*o.Result)
			out.Result = &r
		}
		if out.Success {
			res.Succeeded++
		} else {
			res.Failed++
		}
		res.Results = append(res.Results, out)
	}
	return res
}

func MapScanErrorsDomainToApi(errs []domain.ScanError) []api.ScanError {
	if len(errs) == 0 {
		return nil
	}
	res := make([]api.ScanError, 0, len(errs))
	for _, e := range errs {
		res = append(res, api.ScanError{ResourceType: e.ResourceType.String(), Error: e.Error})
	}
	return res
}

func MapFindResultDomainToApi(key string, value *string, matches []domain.TagMatch, errs []domain.ScanError) api.FindResult {
	res := api.FindResult{
		TagKey:   key,
		TagValue: value,
		Total:    len(matches),
		Matches:  make([]api.TagMatch, 0, len(matches)),
		Errors:   MapScanErrorsDomainToApi(errs),
	}
	for _, m := range matches {
		res.Matches = append(res.Matches, api.TagMatch{
			ResourceType: m.ResourceType.String(),
			ResourceID:   m.ResourceID,
			ResourceName: m.ResourceName,
			TagValue:     m.TagValue,
			AllTags:      MapTagMapDomainToApi(m.AllTags),
		})
	}
	return res
}

func MapComplianceReportDomainToApi(r domain.ComplianceReport) api.ComplianceReport {
	res := api.ComplianceReport{
		Summary: api.ComplianceSummary{
			TotalResources:        r.Summary.TotalResources,
			CompliantResources:    r.Summary.CompliantResources,
			NonCompliantResources: r.Summary.NonCompliantResources,
			CompliancePercentage:  r.Summary.CompliancePercentage,
		},
		ByResourceType:      make(map[string]api.TypeCompliance, len(r.ByResourceType)),
		RequiredTags:        append([]string{}, r.RequiredTags...),
		NonCompliantDetails: make([]api.NonCompliantResource, 0, len(r.NonCompliantDetails)),
		Errors:              MapScanErrorsDomainToApi(r.Errors),
	}
	for t, c := range r.ByResourceType {
		res.ByResourceType[t.String()] = api.TypeCompliance{
			Total:                c.Total,
			Compliant:            c.Compliant,
			NonCompliant:         c.NonCompliant,
			CompliancePercentage: c.CompliancePercentage,
		}
	}
	for _, d := range r.NonCompliantDetails {
		res.NonCompliantDetails = append(res.NonCompliantDetails, api.NonCompliantResource{
			ResourceType: d.ResourceType.String(),
			ResourceID:   d.ResourceID,
			ResourceName: d.ResourceName,
			MissingTags:  append([]string{}, d.MissingTags...),
			CurrentTags:  MapTagMapDomainToApi(d.CurrentTags),
		})
	}
	return res
}

func MapConnectionInfoDomainToApi(c domain.ConnectionInfo) api.ConnectionInfo {
	return api.ConnectionInfo{
		Host:              c.Host,
		User:              c.User,
		Connected:         c.Connected,
		AccountConfigured: c.AccountConfigured,
		Error:             c.Error,
	}
}

func MapResourceTypesDomainToApi(types []domain.ResourceType) []string {
	res := make([]string, 0, len(types))
	for _, t := range types {
		res = append(res, t.String())
	}
	return res
}

// SortedTypeNames returns the keys of a per-type report in a stable order.
func SortedTypeNames(m map[string]api.TypeCompliance) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
