// Package handlers contains the HTTP handler for the chat endpoint.
//
// ChatHandler accepts POST /api/chat/, decodes the body into a chat.Request,
// runs one turn through a Responder and writes either the conversation
// history or a JSON error body. Every other method answers 405 with an
// Allow header.
package handlers
