// Package proxy holds the HTTP surface shared by the chat handler and the
// server: request parsing, the error-to-status mapping and JSON writers.
//
// Errors are written as
//
//	{"error": {"message": "...", "type": "policy_violation", "code": "inbound_rejected"}}
//
// where type selects the status code: invalid_request_error (400),
// authentication_error (401), not_found (404), method_not_allowed (405),
// policy_violation (409) and server_error (500). Messages never carry store
// or model error text.
package proxy
