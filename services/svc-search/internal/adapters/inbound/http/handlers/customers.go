package handlers

import (
	"net/http"
	"strconv"

	"github.com/architeacher/smartsearch/pkg/decorator"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/search/sorting"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases/commands"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases/queries"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-chi/chi/v5"
)

const defaultPage = 1

type (
	// searchParams are the query parameters of a search that are not part of
	// the customer filter.
	searchParams struct {
		OrderBy []string `form:"orderby"`
		Page    int      `form:"page" binding:"omitempty,gte=1"`
		Size    int      `form:"size" binding:"omitempty,gte=1"`
		NoCache bool     `form:"nocache"`
	}

	getCustomerParams struct {
		NoCache bool `form:"nocache"`
	}

	updateCustomersRequest struct {
		Patches []model.CustomerPatch `json:"patches" binding:"required,min=1,dive"`
	}

	CustomerHandler struct {
		app    *usecases.WebApplication
		logger logger.Logger
	}
)

func NewCustomerHandler(app *usecases.WebApplication, log logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		app:    app,
		logger: log,
	}
}

// SearchCustomers serves GET /v1/customers. Every query parameter named by a
// form tag of model.CustomerFilter narrows the search; orderby takes one or
// more "Property [asc|desc]" tokens.
func (h *CustomerHandler) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	var (
		filter model.CustomerFilter
		params searchParams
	)

	if err := binding.Query.Bind(r, &filter); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, codeInvalidParameters, err.Error())

		return
	}

	if err := binding.Query.Bind(r, &params); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, codeInvalidParameters, err.Error())

		return
	}

	sortings, err := sorting.ParseList(params.OrderBy...)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, codeInvalidSorting, err.Error())

		return
	}

	page := params.Page
	if page == 0 {
		page = defaultPage
	}

	ctx, cacheStatus := decorator.TrackCacheStatus(r.Context())

	result, err := h.app.Queries.SearchCustomers.Execute(ctx, queries.SearchCustomersQuery{
		Filter:   filter,
		Sortings: sortings,
		Page:     page,
		Size:     params.Size,
		Bypass:   params.NoCache,
	})
	setCacheStatus(w, cacheStatus)

	if err != nil {
		writeUseCaseError(w, r, h.logger, err)

		return
	}

	writeEnvelope(w, r, http.StatusOK, result)
}

// GetCustomer serves GET /v1/customers/{id}.
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorResponse(w, http.StatusBadRequest, codeInvalidID, msgInvalidCustomerID)

		return
	}

	var params getCustomerParams
	if err := binding.Query.Bind(r, &params); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, codeInvalidParameters, err.Error())

		return
	}

	ctx, cacheStatus := decorator.TrackCacheStatus(r.Context())

	customer, err := h.app.Queries.GetCustomer.Execute(ctx, queries.GetCustomerQuery{
		ID:     id,
		Bypass: params.NoCache,
	})
	setCacheStatus(w, cacheStatus)

	if err != nil {
		writeUseCaseError(w, r, h.logger, err)

		return
	}

	writeEnvelope(w, r, http.StatusOK, customer)
}

// UpdateCustomers serves PATCH /v1/customers. The patches are applied to the
// matched customers as one bulk update.
func (h *CustomerHandler) UpdateCustomers(w http.ResponseWriter, r *http.Request) {
	var req updateCustomersRequest
	if err := binding.JSON.Bind(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, codeInvalidJSON, msgInvalidRequestBody+": "+err.Error())

		return
	}

	updated, err := h.app.Commands.UpdateCustomers.Handle(r.Context(), commands.UpdateCustomersCommand{
		Patches: req.Patches,
	})
	if err != nil {
		writeUseCaseError(w, r, h.logger, err)

		return
	}

	writeEnvelope(w, r, http.StatusOK, updated)
}

func setCacheStatus(w http.ResponseWriter, status func() decorator.CacheStatus) {
	w.Header().Set(middleware.CacheStatusHeader, string(status()))
}
