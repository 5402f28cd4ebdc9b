package types

import "net/http"

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message without internal detail.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeAuthentication indicates an authentication failure (401).
	ErrorTypeAuthentication = "authentication_error"

	// ErrorTypeNotFound indicates an unknown conversation (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeMethodNotAllowed indicates a wrong HTTP method (405).
	ErrorTypeMethodNotAllowed = "method_not_allowed"

	// ErrorTypePolicyViolation indicates a message rejected by policy (409).
	ErrorTypePolicyViolation = "policy_violation"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"
)

// Error code constants.
const (
	CodeInvalidJSON           = "invalid_json"
	CodeMissingField          = "missing_field"
	CodeInvalidValue          = "invalid_value"
	CodeRequestTooLarge       = "request_too_large"
	CodeInvalidAPIKey         = "invalid_api_key"
	CodeMissingAPIKey         = "missing_api_key"
	CodeConversationNotFound  = "conversation_not_found"
	CodeMethodNotAllowed      = "method_not_allowed"
	CodeInboundRejected       = "inbound_rejected"
	CodeOutboundRejected      = "outbound_rejected"
	CodePersistenceFailure    = "persistence_failure"
	CodeModelExecutionFailure = "model_execution_failure"
	CodeInternalError         = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, code)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, code)
}

// HTTPStatusCode returns the HTTP status for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypePolicyViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
