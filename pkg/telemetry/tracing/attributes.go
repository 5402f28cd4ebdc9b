package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Message content is never recorded on spans.
const (
	AttrChatResume         = "warden.chat.resume"
	AttrChatConversationID = "warden.chat.conversation_id"
	AttrChatOutcome        = "warden.chat.outcome"

	AttrPolicyAction   = "warden.policy.action"
	AttrPolicySource   = "warden.policy.source"
	AttrPolicyCategory = "warden.policy.category"
	AttrPolicyRule     = "warden.policy.rule"

	AttrCompletionService = "warden.completion.service"
	AttrProvider          = "warden.provider"
	AttrModel             = "warden.model"
	AttrHistoryTurns      = "warden.completion.history_turns"

	AttrRequestID = "warden.request_id"
)

// SetPolicyAttributes records a policy verdict on span.
func SetPolicyAttributes(span trace.Span, action, source, category, rule string) {
	span.SetAttributes(
		attribute.String(AttrPolicyAction, action),
		attribute.String(AttrPolicySource, source),
		attribute.String(AttrPolicyCategory, category),
		attribute.String(AttrPolicyRule, rule),
	)
}

// SetCompletionAttributes records which service, provider, and model
// served a completion.
func SetCompletionAttributes(span trace.Span, service, provider, model string, historyTurns int) {
	span.SetAttributes(
		attribute.String(AttrCompletionService, service),
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
		attribute.Int(AttrHistoryTurns, historyTurns),
	)
}

// SetConversationAttributes records the turn identity and outcome.
func SetConversationAttributes(span trace.Span, conversationID, outcome string) {
	attrs := []attribute.KeyValue{attribute.String(AttrChatOutcome, outcome)}
	if conversationID != "" {
		attrs = append(attrs, attribute.String(AttrChatConversationID, conversationID))
	}
	span.SetAttributes(attrs...)
}
