package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/de-tools/lakespend/pkg/models/api"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/de-tools/lakespend/pkg/services/budget"
	"github.com/de-tools/lakespend/pkg/services/tags"
	"github.com/de-tools/lakespend/pkg/store/client"
)

var ErrUnknownTool = fmt.Errorf("%w: unknown tool", domain.ErrInvalidArgument)

// Handlers holds the services the tools call into.
type Handlers struct {
	Tags       tags.Manager
	Budget     budget.Manager
	Connection client.ConnectionChecker
	Info       api.ServerInfo
}

type toolFunc func(ctx context.Context, raw json.RawMessage) (any, error)

// Dispatcher validates tool arguments and routes each call to its service method.
type Dispatcher struct {
	tools       *toolSet
	catalog     []Descriptor
	descriptors map[string]Descriptor
	funcs       map[string]toolFunc
}

func NewDispatcher(h Handlers) *Dispatcher {
	t := &toolSet{h: h}
	funcs := map[string]toolFunc{
		ToolGetServerStatus:        t.serverStatus,
		ToolListResourceTags:       t.listResourceTags,
		ToolUpdateResourceTags:     t.updateResourceTags,
		ToolSetResourceTag:         t.setResourceTag,
		ToolRemoveResourceTag:      t.removeResourceTag,
		ToolListResourcesWithTags:  t.listResourcesWithTags,
		ToolBulkUpdateTags:         t.bulkUpdateTags,
		ToolFindResourcesByTag:     t.findResourcesByTag,
		ToolTagComplianceReport:    t.tagComplianceReport,
		ToolCreateBudgetPolicy:     t.createBudgetPolicy,
		ToolGetBudgetPolicy:        t.getBudgetPolicy,
		ToolListBudgetPolicies:     t.listBudgetPolicies,
		ToolUpdateBudgetPolicy:     t.updateBudgetPolicy,
		ToolDeleteBudgetPolicy:     t.deleteBudgetPolicy,
		ToolApplyBudgetPolicy:      t.applyBudgetPolicy,
		ToolGetResourcesWithPolicy: t.resourcesWithPolicy,
		ToolBudgetComplianceReport: t.budgetComplianceReport,
		ToolGetBudgetPolicySpend:   t.budgetPolicySpend,
		ToolCreateBudget:           t.createBudget,
		ToolGetBudget:              t.getBudget,
		ToolListBudgets:            t.listBudgets,
		ToolUpdateBudget:           t.updateBudget,
		ToolDeleteBudget:           t.deleteBudget,
	}

	catalog := Catalog()
	descriptors := make(map[string]Descriptor, len(catalog))
	for _, d := range catalog {
		if _, ok := funcs[d.Name]; !ok {
			panic(fmt.Sprintf("tool %s has no handler", d.Name))
		}
		descriptors[d.Name] = d
	}
	return &Dispatcher{tools: t, catalog: catalog, descriptors: descriptors, funcs: funcs}
}

func (d *Dispatcher) Descriptors() []Descriptor {
	return append([]Descriptor{}, d.catalog...)
}

// Call validates raw against the tool descriptor and invokes the tool. raw may be
// empty for tools without arguments.
func (d *Dispatcher) Call(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	desc, ok := d.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: %s: arguments must be a JSON object: %v", domain.ErrInvalidArgument, name, err)
	}
	if err := desc.Validate(args); err != nil {
		return nil, err
	}
	return d.funcs[name](ctx, raw)
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return v, nil
}
