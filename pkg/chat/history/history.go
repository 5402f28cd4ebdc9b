// Package history assembles the bounded transcript returned for a turn.
package history

import (
	"github.com/google/uuid"

	"mercator-hq/warden/pkg/storage"
)

// DefaultLimit is the transcript length used when none is configured.
const DefaultLimit = 5

// Entry is one transcript line.
type Entry struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Response is the transcript of one turn.
type Response struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Messages       []Entry   `json:"message"`
}

// BuildResponse returns at most limit entries: the agent reply, the user
// message, then the leading entries of history, which is most recent first.
// History entries are copied verbatim.
func BuildResponse(conversationID uuid.UUID, userMessage, agentText string, history []storage.Message, limit int) Response {
	resp := Response{ConversationID: conversationID, Messages: []Entry{}}
	if limit <= 0 {
		return resp
	}

	resp.Messages = append(resp.Messages, Entry{Role: storage.RoleAgent, Message: agentText})
	if limit == 1 {
		return resp
	}
	resp.Messages = append(resp.Messages, Entry{Role: storage.RoleUser, Message: userMessage})

	n := min(limit-2, len(history))
	for _, m := range history[:n] {
		resp.Messages = append(resp.Messages, Entry{Role: m.Role, Message: m.Content})
	}
	return resp
}
