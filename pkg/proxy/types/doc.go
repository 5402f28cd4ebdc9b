// Package types defines the JSON bodies of the chat API.
//
// Every error is answered with ErrorResponse:
//
//	{"error": {"message": "...", "type": "not_found", "code": "conversation_not_found"}}
//
// ErrorDetail.HTTPStatusCode maps the error type to its status.
package types
