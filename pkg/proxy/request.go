package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"mercator-hq/warden/pkg/chat"
	"mercator-hq/warden/pkg/proxy/types"
)

const (
	// DefaultMaxBodyBytes bounds the chat request body when no limit is set.
	DefaultMaxBodyBytes = 64 << 10

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s", e.Param, e.Message)
	}
	return e.Message
}

// ToErrorResponse converts a RequestError to an error body.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Error(), e.Code)
}

// ParseChatRequest decodes and validates a chat request body. The body is
// limited to maxBytes; zero uses DefaultMaxBodyBytes.
func ParseChatRequest(r *http.Request, maxBytes int64) (chat.Request, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return chat.Request{}, &RequestError{
			Message: "failed to read request body",
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}
	if int64(len(body)) > maxBytes {
		return chat.Request{}, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}

	var req types.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return chat.Request{}, &RequestError{
			Message: describeJSONError(err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}

	if req.Message == nil {
		return chat.Request{}, &RequestError{Message: "field is required", Code: types.CodeMissingField, Param: "message"}
	}
	if strings.TrimSpace(*req.Message) == "" {
		return chat.Request{}, &RequestError{Message: "must not be empty", Code: types.CodeInvalidValue, Param: "message"}
	}

	out := chat.Request{Message: *req.Message}
	if req.ConversationID != nil {
		id, err := uuid.Parse(*req.ConversationID)
		if err != nil {
			return chat.Request{}, &RequestError{Message: "must be a UUID", Code: types.CodeInvalidValue, Param: "conversation_id"}
		}
		out.ConversationID = &id
	}
	return out, nil
}

// describeJSONError reports the failure position without echoing the body.
func describeJSONError(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("invalid JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q must be a %s", typeErr.Field, typeErr.Type.String())
	default:
		return "invalid JSON"
	}
}

// ExtractRequestID returns the client supplied X-Request-ID header.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}
