package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/argonaut-dev/argonaut/pkg/api"
)

// HTTPStatusFromError maps an APIError to the HTTP status code the client
// sees. A nonzero HTTPStatus wins, which is how well-formed backend 4xx/5xx
// statuses pass through; everything else maps by error type. Upstream
// failures without a usable backend status become 502.
func HTTPStatusFromError(err *api.APIError) int {
	if err.HTTPStatus >= 400 {
		return err.HTTPStatus
	}
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// APIErrorFrom normalizes any error into the APIError shape. Errors that
// already are APIErrors pass through; anything else becomes an opaque
// server error so no internal error type escapes unmapped.
func APIErrorFrom(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewServerError(err.Error())
}

// WriteErrorResponse writes a JSON error response using the ErrorResponse
// envelope from pkg/api with the given status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an error response, deriving the status code from the
// error.
func WriteAPIError(w http.ResponseWriter, err error) {
	apiErr := APIErrorFrom(err)
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}
