package handlers

import (
	"errors"
	"net/http"

	"github.com/architeacher/smartsearch/pkg/circuitbreaker"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/sorting"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/go-playground/validator/v10"
)

const (
	codeInvalidParameters = "INVALID_PARAMETERS"
	codeInvalidSorting    = "INVALID_SORTING"
	codeInvalidID         = "INVALID_ID"
	codeInvalidJSON       = "INVALID_JSON"
	codeNotFound          = "NOT_FOUND"
	codeUnprocessable     = "UNPROCESSABLE"
	codeUnavailable       = "SERVICE_UNAVAILABLE"
	codeInternalError     = "INTERNAL_ERROR"

	msgCustomerNotFound   = "customer not found"
	msgInvalidCustomerID  = "invalid customer ID"
	msgInvalidRequestBody = "invalid request body"
	msgUnavailable        = "storage temporarily unavailable"
	msgInternalError      = "internal server error"
)

// writeUseCaseError maps an error returned by a query or command handler to
// an error response. Unexpected errors are logged and hidden from the client.
func writeUseCaseError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &validationErrs):
		writeErrorResponse(w, http.StatusBadRequest, codeInvalidParameters, validationErrs.Error())
	case errors.Is(err, sorting.ErrOrderBy):
		writeErrorResponse(w, http.StatusBadRequest, codeInvalidSorting, err.Error())
	case errors.Is(err, model.ErrInvalidCustomerID):
		writeErrorResponse(w, http.StatusBadRequest, codeInvalidID, msgInvalidCustomerID)
	case errors.Is(err, model.ErrInvalidCustomer),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, search.ErrInvalidPaging):
		writeErrorResponse(w, http.StatusBadRequest, codeInvalidParameters, err.Error())
	case errors.Is(err, model.ErrCustomerNotFound), errors.Is(err, queryable.ErrNoElements):
		writeErrorResponse(w, http.StatusNotFound, codeNotFound, msgCustomerNotFound)
	case errors.Is(err, search.ErrOutOfRange):
		writeErrorResponse(w, http.StatusUnprocessableEntity, codeUnprocessable, err.Error())
	case errors.Is(err, circuitbreaker.ErrUnavailable):
		w.Header().Set("Retry-After", "30")
		writeErrorResponse(w, http.StatusServiceUnavailable, codeUnavailable, msgUnavailable)
	default:
		entry := log.WithContext(r.Context())
		entry.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")

		writeErrorResponse(w, http.StatusInternalServerError, codeInternalError, msgInternalError)
	}
}
