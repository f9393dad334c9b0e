package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	ErrorTypeNotFound       ErrorType = "not_found_error"
	ErrorTypeUpstream       ErrorType = "upstream_error"
)

// Error codes distinguishing failures within a type.
const (
	CodeUnknownModel         = "unknown_model"
	CodeUnsupportedParameter = "unsupported_parameter"
	CodeResponseTooLarge     = "response_too_large"
	CodeBackendConnect       = "backend_connect_error"
	CodeBackendTimeout       = "backend_timeout"
	CodeBackendStatus        = "backend_status"
)

// APIError represents a structured API error with type, code, param, and
// message. It is the only error shape that crosses the transport boundary.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`

	// HTTPStatus forces a specific status code when nonzero, used to pass
	// well-formed backend 4xx/5xx statuses through. Not serialized.
	HTTPStatus int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level
// error response body.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewUnknownModelError creates the APIError for a model identifier absent
// from the alias table.
func NewUnknownModelError(model string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Code:    CodeUnknownModel,
		Param:   "model",
		Message: fmt.Sprintf("unknown model %q: not in the served model list", model),
	}
}

// NewUnsupportedParameterError creates the APIError for a parameter the
// backend cannot honor without changing request semantics.
func NewUnsupportedParameterError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Code:    CodeUnsupportedParameter,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewUpstreamError creates an APIError for backend failures. A nonzero
// status is passed through to the client verbatim; zero maps to 502.
func NewUpstreamError(code string, status int, message string) *APIError {
	return &APIError{
		Type:       ErrorTypeUpstream,
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// NewResponseTooLargeError creates the APIError for a backend response that
// exceeded the configured buffering bound. Treated as upstream misbehavior.
func NewResponseTooLargeError(limit int64) *APIError {
	return &APIError{
		Type:    ErrorTypeUpstream,
		Code:    CodeResponseTooLarge,
		Message: fmt.Sprintf("backend response exceeded the %d byte limit", limit),
	}
}
