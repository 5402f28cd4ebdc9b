package types

import "mercator-hq/warden/pkg/chat/history"

// ChatRequest is the body of POST /api/chat/.
type ChatRequest struct {
	// ConversationID is absent or null to start a new conversation.
	ConversationID *string `json:"conversation_id"`

	Message *string `json:"message"`
}

// ChatResponse is the body of a successful turn.
type ChatResponse = history.Response
