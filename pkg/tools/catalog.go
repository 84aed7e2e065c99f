package tools

import "github.com/de-tools/lakespend/pkg/models/domain"

const (
	ToolGetServerStatus = "get_server_status"

	ToolListResourceTags      = "list_resource_tags"
	ToolUpdateResourceTags    = "update_resource_tags"
	ToolSetResourceTag        = "set_resource_tag"
	ToolRemoveResourceTag     = "remove_resource_tag"
	ToolListResourcesWithTags = "list_resources_with_tags"
	ToolBulkUpdateTags        = "bulk_update_tags"
	ToolFindResourcesByTag    = "find_resources_by_tag"
	ToolTagComplianceReport   = "tag_compliance_report"

	ToolCreateBudgetPolicy     = "create_budget_policy"
	ToolGetBudgetPolicy        = "get_budget_policy"
	ToolListBudgetPolicies     = "list_budget_policies"
	ToolUpdateBudgetPolicy     = "update_budget_policy"
	ToolDeleteBudgetPolicy     = "delete_budget_policy"
	ToolApplyBudgetPolicy      = "apply_budget_policy"
	ToolGetResourcesWithPolicy = "get_resources_with_budget_policy"
	ToolBudgetComplianceReport = "budget_compliance_report"
	ToolGetBudgetPolicySpend   = "get_budget_policy_spend"
	ToolCreateBudget           = "create_budget"
	ToolGetBudget              = "get_budget"
	ToolListBudgets            = "list_budgets"
	ToolUpdateBudget           = "update_budget"
	ToolDeleteBudget           = "delete_budget"
)

func resourceTypeNames() []string {
	names := make([]string, 0, len(domain.ResourceTypes))
	for _, t := range domain.ResourceTypes {
		names = append(names, t.String())
	}
	return names
}

func targetArgs() []Arg {
	return []Arg{
		{
			Name:        "resource_type",
			Type:        ArgString,
			Description: "Kind of workspace resource",
			Required:    true,
			Enum:        resourceTypeNames(),
		},
		{
			Name:        "resource_id",
			Type:        ArgString,
			Description: "Resource id. Models, catalogs and serving endpoints use their name, schemas and tables their full name",
			Required:    true,
		},
	}
}

func policyIDArg() Arg {
	return Arg{Name: "policy_id", Type: ArgString, Description: "Budget policy id", Required: true}
}

func budgetIDArg() Arg {
	return Arg{Name: "budget_id", Type: ArgString, Description: "Budget configuration id", Required: true}
}

func operationArg() Arg {
	return Arg{
		Name:        "operation",
		Type:        ArgString,
		Description: "merge overlays the tags, replace sets exactly these tags, remove deletes these keys. Defaults to merge",
		Enum: []string{
			string(domain.OperationMerge),
			string(domain.OperationReplace),
			string(domain.OperationRemove),
		},
	}
}

func tagsArg() Arg {
	return Arg{Name: "tags", Type: ArgObject, Description: "Tag key/value pairs", Required: true}
}

// Catalog returns the descriptor of every tool, in registration order.
func Catalog() []Descriptor {
	return []Descriptor{
		{
			Name:        ToolGetServerStatus,
			Description: "Get the server version, supported resource types and the Databricks connection status",
		},
		{
			Name:        ToolListResourceTags,
			Description: "Get the tags of a single resource",
			Args:        targetArgs(),
		},
		{
			Name:        ToolUpdateResourceTags,
			Description: "Update the tags of a single resource",
			Args:        append(targetArgs(), tagsArg(), operationArg()),
		},
		{
			Name:        ToolSetResourceTag,
			Description: "Set one tag on a resource, keeping its other tags",
			Args: append(targetArgs(),
				Arg{Name: "key", Type: ArgString, Description: "Tag key", Required: true},
				Arg{Name: "value", Type: ArgString, Description: "Tag value", Required: true},
			),
		},
		{
			Name:        ToolRemoveResourceTag,
			Description: "Remove one tag from a resource",
			Args: append(targetArgs(),
				Arg{Name: "key", Type: ArgString, Description: "Tag key", Required: true},
			),
		},
		{
			Name:        ToolListResourcesWithTags,
			Description: "List every resource of a kind with its tags",
			Args:        targetArgs()[:1],
		},
		{
			Name:        ToolBulkUpdateTags,
			Description: "Apply the same tag update to many resources. Each resource succeeds or fails on its own",
			Args: []Arg{
				{
					Name:        "resources",
					Type:        ArgArray,
					Items:       ArgObject,
					Description: `Resources to update, each as {"type": "cluster", "id": "..."}`,
					Required:    true,
				},
				tagsArg(),
				operationArg(),
			},
		},
		{
			Name:        ToolFindResourcesByTag,
			Description: "Find resources of every kind carrying a tag key, optionally with an exact value",
			Args: []Arg{
				{Name: "tag_key", Type: ArgString, Description: "Tag key to look for", Required: true},
				{Name: "tag_value", Type: ArgString, Description: "Only match this value"},
			},
		},
		{
			Name:        ToolTagComplianceReport,
			Description: "Report which resources are missing any of the required tags",
			Args: []Arg{
				{
					Name:        "required_tags",
					Type:        ArgArray,
					Items:       ArgString,
					Description: "Tag keys every resource must carry",
					Required:    true,
				},
			},
		},
		{
			Name:        ToolCreateBudgetPolicy,
			Description: "Create a budget policy. Alert thresholds are fractions of the monthly budget and default to 0.5, 0.75 and 0.9",
			Args: []Arg{
				{Name: "name", Type: ArgString, Description: "Policy name", Required: true},
				{Name: "display_name", Type: ArgString, Description: "Human readable name"},
				{Name: "max_monthly_budget", Type: ArgNumber, Description: "Monthly budget in USD", Required: true},
				{Name: "alert_thresholds", Type: ArgArray, Items: ArgNumber, Description: "Alert thresholds as fractions of the budget"},
			},
		},
		{
			Name:        ToolGetBudgetPolicy,
			Description: "Get a budget policy",
			Args:        []Arg{policyIDArg()},
		},
		{
			Name:        ToolListBudgetPolicies,
			Description: "List every budget policy of the account",
		},
		{
			Name:        ToolUpdateBudgetPolicy,
			Description: "Update a budget policy. Only the given fields change",
			Args: []Arg{
				policyIDArg(),
				{Name: "name", Type: ArgString, Description: "New policy name"},
				{Name: "display_name", Type: ArgString, Description: "New display name"},
				{Name: "max_monthly_budget", Type: ArgNumber, Description: "New monthly budget in USD"},
				{Name: "alert_thresholds", Type: ArgArray, Items: ArgNumber, Description: "New alert thresholds"},
			},
		},
		{
			Name:        ToolDeleteBudgetPolicy,
			Description: "Delete a budget policy",
			Args:        []Arg{policyIDArg()},
		},
		{
			Name:        ToolApplyBudgetPolicy,
			Description: "Associate a resource with a budget policy by tagging it with budget_policy_id",
			Args:        append(targetArgs(), policyIDArg()),
		},
		{
			Name:        ToolGetResourcesWithPolicy,
			Description: "List the resources associated with a budget policy, grouped by kind",
			Args:        []Arg{policyIDArg()},
		},
		{
			Name:        ToolBudgetComplianceReport,
			Description: "Report how many resources carry a budget policy and how each policy is used",
		},
		{
			Name:        ToolGetBudgetPolicySpend,
			Description: "Get the month to date list price spend of a budget policy and the alert thresholds it crossed",
			Args:        []Arg{policyIDArg()},
		},
		{
			Name:        ToolCreateBudget,
			Description: "Create an account budget with email alerts, optionally limited to one budget policy",
			Args: []Arg{
				{Name: "display_name", Type: ArgString, Description: "Budget name", Required: true},
				{Name: "monthly_threshold", Type: ArgNumber, Description: "Monthly spend in USD that triggers alerts", Required: true},
				{Name: "policy_id", Type: ArgString, Description: "Only count usage tagged with this budget policy"},
				{Name: "alert_emails", Type: ArgArray, Items: ArgString, Description: "Addresses notified when the threshold is crossed"},
			},
		},
		{
			Name:        ToolGetBudget,
			Description: "Get an account budget",
			Args:        []Arg{budgetIDArg()},
		},
		{
			Name:        ToolListBudgets,
			Description: "List the account budgets",
		},
		{
			Name:        ToolUpdateBudget,
			Description: "Update an account budget. Only the given fields change",
			Args: []Arg{
				budgetIDArg(),
				{Name: "display_name", Type: ArgString, Description: "New budget name"},
				{Name: "monthly_threshold", Type: ArgNumber, Description: "New monthly threshold in USD"},
				{Name: "alert_emails", Type: ArgArray, Items: ArgString, Description: "New alert addresses"},
			},
		},
		{
			Name:        ToolDeleteBudget,
			Description: "Delete an account budget",
			Args:        []Arg{budgetIDArg()},
		},
	}
}

// Names returns the names of every tool in the catalog.
func Names() []string {
	catalog := Catalog()
	names := make([]string, 0, len(catalog))
	for _, d := range catalog {
		names = append(names, d.Name)
	}
	return names
}
