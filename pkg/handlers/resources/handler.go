package resources

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/de-tools/lakespend/pkg/adapters"
	"github.com/de-tools/lakespend/pkg/handlers"
	"github.com/de-tools/lakespend/pkg/models/api"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/de-tools/lakespend/pkg/services/budget"
	"github.com/de-tools/lakespend/pkg/services/tags"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	tags   tags.Manager
	budget budget.Manager
}

func NewHandler(tagManager tags.Manager, budgetManager budget.Manager) *Handler {
	return &Handler{
		tags:   tagManager,
		budget: budgetManager,
	}
}

// Routes mounts the REST surface under the caller's prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/resources", h.ListResourceTypes)
	r.Get("/resources/{type}", h.ListResources)
	r.Get("/resources/{type}/{id}/tags", h.GetTags)
	r.Patch("/resources/{type}/{id}/tags", h.UpdateTags)
	r.Get("/compliance/tags", h.TagCompliance)
	r.Get("/compliance/budget-policies", h.BudgetCompliance)
	r.Get("/budget-policies", h.ListPolicies)
	r.Get("/budget-policies/{policy}/spend", h.PolicySpend)
}

func (h *Handler) ListResourceTypes(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, r, http.StatusOK, adapters.MapResourceTypesDomainToApi(h.tags.SupportedTypes()))
}

func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := domain.ParseResourceType(chi.URLParam(r, "type"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	resources, err := h.tags.ListAllWithTags(ctx, t)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, adapters.MapResourceListDomainToApi(t, resources))
}

func (h *Handler) GetTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	t, err := domain.ParseResourceType(chi.URLParam(r, "type"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	current, err := h.tags.GetTags(ctx, t, id)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, api.ResourceTags{
		ResourceType: t.String(),
		ResourceID:   id,
		Tags:         adapters.MapTagMapDomainToApi(current),
	})
}

type updateTagsRequest struct {
	Tags      map[string]string `json:"tags"`
	Operation string            `json:"operation"`
}

func (h *Handler) UpdateTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	id := chi.URLParam(r, "id")

	t, err := domain.ParseResourceType(chi.URLParam(r, "type"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	var req updateTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("failed to decode tag update")
		handlers.WriteError(w, r, fmt.Errorf("%w: invalid request body: %w", domain.ErrInvalidArgument, err))
		return
	}
	op, err := domain.ParseOperation(req.Operation)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	result, err := h.tags.UpdateTags(ctx, t, id, req.Tags, op)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, adapters.MapUpdateResultDomainToApi(*result))
}

func (h *Handler) TagCompliance(w http.ResponseWriter, r *http.Request) {
	var required []string
	for _, k := range strings.Split(r.URL.Query().Get("required"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			required = append(required, k)
		}
	}
	if len(required) == 0 {
		handlers.WriteError(w, r, fmt.Errorf("%w: query parameter 'required' lists no tag keys", domain.ErrInvalidArgument))
		return
	}

	report := h.tags.ComplianceReport(r.Context(), required)
	handlers.WriteJSON(w, r, http.StatusOK, adapters.MapComplianceReportDomainToApi(*report))
}

func (h *Handler) BudgetCompliance(w http.ResponseWriter, r *http.Request) {
	report, err := h.budget.ComplianceReport(r.Context())
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, adapters.MapBudgetComplianceReportDomainToApi(*report))
}

func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.budget.ListPolicies(r.Context())
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, adapters.MapBudgetPoliciesDomainToApi(policies))
}

func (h *Handler) PolicySpend(w http.ResponseWriter, r *http.Request) {
	spend, err := h.budget.PolicySpend(r.Context(), chi.URLParam(r, "policy"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, r, http.StatusOK, adapters.MapPolicySpendDomainToApi(*spend))
}
