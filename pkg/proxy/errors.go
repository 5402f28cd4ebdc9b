package proxy

import (
	"encoding/json"
	"errors"
	"net/http"

	"mercator-hq/warden/pkg/chat"
	"mercator-hq/warden/pkg/proxy/types"
)

// HandleError maps an error returned while serving a turn to its response
// body. Unknown errors become a generic 500; no error text from the store or
// the model reaches the client.
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var notFound *chat.ConversationNotFoundError
	if errors.As(err, &notFound) {
		return types.NewErrorResponse(
			"Conversation not found",
			types.ErrorTypeNotFound,
			types.CodeConversationNotFound,
		)
	}

	var rejected *chat.PolicyRejectedError
	if errors.As(err, &rejected) {
		if rejected.Stage == chat.StageOutbound {
			return types.NewErrorResponse(
				"The generated reply was rejected by policy",
				types.ErrorTypePolicyViolation,
				types.CodeOutboundRejected,
			)
		}
		return types.NewErrorResponse(
			"The message was rejected by policy",
			types.ErrorTypePolicyViolation,
			types.CodeInboundRejected,
		)
	}

	var persistErr *chat.PersistenceError
	if errors.As(err, &persistErr) {
		return types.NewServerError(
			"The conversation could not be stored. Please try again later.",
			types.CodePersistenceFailure,
		)
	}

	var modelErr *chat.ModelExecutionError
	if errors.As(err, &modelErr) {
		return types.NewServerError(
			"The agent could not produce a reply. Please try again later.",
			types.CodeModelExecutionFailure,
		)
	}

	return types.NewServerError(
		"An internal error occurred. Please try again later.",
		types.CodeInternalError,
	)
}

// WriteErrorResponse writes resp with the status of its error type.
func WriteErrorResponse(w http.ResponseWriter, resp *types.ErrorResponse) {
	WriteJSON(w, resp.Error.HTTPStatusCode(), resp)
}

// WriteJSON writes v as a JSON body with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
