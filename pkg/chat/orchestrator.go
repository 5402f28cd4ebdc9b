// Package chat runs one conversation turn: validate the user message,
// create or resume the conversation, generate a reply, validate the reply,
// persist it, and assemble the transcript.
//
// Every failure is one of PolicyRejectedError, ConversationNotFoundError,
// PersistenceError, or ModelExecutionError.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/warden/pkg/chat/history"
	"mercator-hq/warden/pkg/completion"
	"mercator-hq/warden/pkg/notify"
	"mercator-hq/warden/pkg/policy/gate"
	"mercator-hq/warden/pkg/storage"
	"mercator-hq/warden/pkg/telemetry/tracing"
)

// InboundMode selects how a rejected user message is answered.
type InboundMode string

const (
	// InboundStrict fails the turn with a PolicyRejectedError.
	InboundStrict InboundMode = "strict"

	// InboundRecover answers a rejected message on an existing
	// conversation with the recovery reply and persists nothing. New
	// conversations are still rejected.
	InboundRecover InboundMode = "recover"
)

// DefaultRecoveryReply is sent in recover mode when none is configured.
const DefaultRecoveryReply = "Let's keep our debate on topic. Could you rephrase your last point?"

// DefaultHistoryFetchLimit is how many stored messages are loaded when
// resuming a conversation.
const DefaultHistoryFetchLimit = 20

// Gate checks a single message. *gate.Gate implements it.
type Gate interface {
	Inspect(ctx context.Context, role, text string) (gate.Decision, error)
}

// Recorder receives one observation per turn.
type Recorder interface {
	RecordTurn(outcome string, elapsed time.Duration)
}

// Deps are the collaborators of an Orchestrator. Store, Agent, and Gate are
// required.
type Deps struct {
	Store   storage.Store
	Agent   completion.Service
	Gate    Gate
	Logger  *slog.Logger
	Metrics Recorder
	Tracer  trace.Tracer
}

// Options tune turn handling.
type Options struct {
	// HistoryLimit bounds the returned transcript. Zero uses
	// history.DefaultLimit.
	HistoryLimit int

	// HistoryFetchLimit bounds the messages loaded on resume. Zero uses
	// DefaultHistoryFetchLimit.
	HistoryFetchLimit int

	// InboundMode defaults to InboundStrict.
	InboundMode InboundMode

	// RecoveryReply is the agent text used in recover mode.
	RecoveryReply string
}

// Request is one inbound turn.
type Request struct {
	// ConversationID is nil for a new conversation.
	ConversationID *uuid.UUID

	Message string
}

// Orchestrator handles conversation turns. It is safe for concurrent use.
type Orchestrator struct {
	store   storage.Store
	agent   completion.Service
	gate    Gate
	logger  *slog.Logger
	metrics Recorder
	tracer  trace.Tracer
	opts    Options
}

// New creates an Orchestrator.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, errors.New("chat: store is required")
	}
	if deps.Agent == nil {
		return nil, errors.New("chat: agent completion service is required")
	}
	if deps.Gate == nil {
		return nil, errors.New("chat: gate is required")
	}

	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = history.DefaultLimit
	}
	if opts.HistoryFetchLimit <= 0 {
		opts.HistoryFetchLimit = DefaultHistoryFetchLimit
	}
	switch opts.InboundMode {
	case "":
		opts.InboundMode = InboundStrict
	case InboundStrict, InboundRecover:
	default:
		return nil, fmt.Errorf("chat: unknown inbound mode %q", opts.InboundMode)
	}
	if opts.RecoveryReply == "" {
		opts.RecoveryReply = DefaultRecoveryReply
	}

	o := &Orchestrator{
		store:   deps.Store,
		agent:   deps.Agent,
		gate:    deps.Gate,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		opts:    opts,
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "chat")
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracing.InstrumentationName + "/chat")
	}
	return o, nil
}

// state names the steps of a turn in logs.
type state string

const (
	stateValidateInbound  state = "VALIDATE_INBOUND"
	stateNewConversation  state = "NEW_CONVERSATION"
	stateResume           state = "RESUME_CONVERSATION"
	stateGenerate         state = "GENERATE_RESPONSE"
	stateValidateOutbound state = "VALIDATE_OUTBOUND"
	statePersist          state = "PERSIST"
	stateDone             state = "DONE"
)

// turn is the per-request working set.
type turn struct {
	incoming       string
	userText       string
	conversationID uuid.UUID
	history        []storage.Message
	agentText      string
	agentContext   completion.Blob
}

// Respond runs one turn.
func (o *Orchestrator) Respond(ctx context.Context, req Request) (*history.Response, error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "chat.respond")
	defer span.End()
	span.SetAttributes(attribute.Bool(tracing.AttrChatResume, req.ConversationID != nil))

	resp, outcome, err := o.respond(ctx, req)

	var conversationID string
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		conversationID = resp.ConversationID.String()
	}
	tracing.SetConversationAttributes(span, conversationID, outcome)
	if o.metrics != nil {
		o.metrics.RecordTurn(outcome, time.Since(start))
	}
	return resp, err
}

func (o *Orchestrator) respond(ctx context.Context, req Request) (*history.Response, string, error) {
	t := &turn{incoming: req.Message}
	if req.ConversationID != nil {
		t.conversationID = *req.ConversationID
	}
	log := o.logger

	// VALIDATE_INBOUND
	o.transition(ctx, log, t, stateValidateInbound)
	in, err := o.gate.Inspect(ctx, gate.RoleUser, t.incoming)
	if err != nil || !in.Valid {
		if o.opts.InboundMode == InboundRecover && req.ConversationID != nil {
			resp, outcome, rerr := o.recoverTurn(ctx, log, t)
			return resp, outcome, rerr
		}
		log.InfoContext(ctx, "inbound message rejected",
			"conversation_id", t.conversationID,
			"category", in.Category,
			"digest", notify.Digest(t.incoming),
		)
		return nil, "rejected_inbound", &PolicyRejectedError{Stage: StageInbound, Category: string(in.Category), Rule: in.Rule}
	}
	t.userText = effectiveText(in, t.incoming)

	if req.ConversationID == nil {
		// NEW_CONVERSATION
		o.transition(ctx, log, t, stateNewConversation)
		id, err := o.store.CreateConversation(ctx, storage.Message{Role: storage.RoleUser, Content: t.userText})
		if err != nil {
			return nil, "persistence_error", o.persistenceFailure(ctx, log, t, "create_conversation", err)
		}
		t.conversationID = id
	} else {
		// RESUME_CONVERSATION
		o.transition(ctx, log, t, stateResume)
		msgs, err := o.store.ListRecent(ctx, t.conversationID, o.opts.HistoryFetchLimit)
		if err != nil {
			return nil, "persistence_error", o.persistenceFailure(ctx, log, t, "list_recent", err)
		}
		if len(msgs) == 0 {
			log.InfoContext(ctx, "conversation not found", "conversation_id", t.conversationID)
			return nil, "not_found", &ConversationNotFoundError{ConversationID: t.conversationID}
		}
		t.history = msgs
		if err := o.store.AppendMessage(ctx, storage.Message{
			ConversationID: t.conversationID,
			Role:           storage.RoleUser,
			Content:        t.userText,
		}); err != nil {
			return nil, "persistence_error", o.persistenceFailure(ctx, log, t, "append_user_message", err)
		}
	}

	// GENERATE_RESPONSE
	o.transition(ctx, log, t, stateGenerate)
	result, err := o.agent.Complete(ctx, t.userText, agentContexts(t.history))
	if err != nil {
		log.ErrorContext(ctx, "agent completion failed",
			"conversation_id", t.conversationID,
			"op", "complete",
			"error", err,
		)
		return nil, "model_error", &ModelExecutionError{Err: err}
	}

	// VALIDATE_OUTBOUND
	o.transition(ctx, log, t, stateValidateOutbound)
	out, err := o.gate.Inspect(ctx, gate.RoleAgent, result.Text)
	if err != nil || !out.Valid {
		log.InfoContext(ctx, "agent reply rejected",
			"conversation_id", t.conversationID,
			"category", out.Category,
			"digest", notify.Digest(result.Text),
		)
		return nil, "rejected_outbound", &PolicyRejectedError{Stage: StageOutbound, Category: string(out.Category), Rule: out.Rule}
	}
	t.agentText = effectiveText(out, result.Text)
	t.agentContext = result.Context
	if t.agentText != result.Text {
		// The blob is replayed to the model; it must match what is stored.
		t.agentContext, err = completion.Seal(t.userText, t.agentText)
		if err != nil {
			log.ErrorContext(ctx, "failed to reseal redacted reply",
				"conversation_id", t.conversationID,
				"op", "seal",
				"error", err,
			)
			return nil, "model_error", &ModelExecutionError{Err: err}
		}
	}

	// PERSIST
	o.transition(ctx, log, t, statePersist)
	if err := o.store.AppendMessage(ctx, storage.Message{
		ConversationID: t.conversationID,
		Role:           storage.RoleAgent,
		Content:        t.agentText,
		Context:        t.agentContext,
	}); err != nil {
		return nil, "persistence_error", o.persistenceFailure(ctx, log, t, "append_agent_message", err)
	}

	o.transition(ctx, log, t, stateDone)
	resp := history.BuildResponse(t.conversationID, t.userText, t.agentText, t.history, o.opts.HistoryLimit)
	return &resp, "success", nil
}

// recoverTurn answers a rejected message on an existing conversation with
// the recovery reply. Nothing is persisted.
func (o *Orchestrator) recoverTurn(ctx context.Context, log *slog.Logger, t *turn) (*history.Response, string, error) {
	msgs, err := o.store.ListRecent(ctx, t.conversationID, o.opts.HistoryFetchLimit)
	if err != nil {
		return nil, "persistence_error", o.persistenceFailure(ctx, log, t, "list_recent", err)
	}
	if len(msgs) == 0 {
		return nil, "not_found", &ConversationNotFoundError{ConversationID: t.conversationID}
	}
	log.InfoContext(ctx, "inbound message rejected, sending recovery reply",
		"conversation_id", t.conversationID,
		"digest", notify.Digest(t.incoming),
	)
	resp := history.BuildResponse(t.conversationID, t.incoming, o.opts.RecoveryReply, msgs, o.opts.HistoryLimit)
	return &resp, "recovered", nil
}

func (o *Orchestrator) transition(ctx context.Context, log *slog.Logger, t *turn, s state) {
	log.DebugContext(ctx, "turn transition", "state", string(s), "conversation_id", t.conversationID)
	trace.SpanFromContext(ctx).AddEvent(string(s))
}

func (o *Orchestrator) persistenceFailure(ctx context.Context, log *slog.Logger, t *turn, op string, err error) error {
	log.ErrorContext(ctx, "persistence failure",
		"conversation_id", t.conversationID,
		"op", op,
		"error", err,
	)
	return &PersistenceError{Op: op, Err: err}
}

// agentContexts returns the context blobs of the agent messages in msgs,
// which is most recent first, in chronological order.
func agentContexts(msgs []storage.Message) []completion.Blob {
	var blobs []completion.Blob
	for _, m := range msgs {
		if m.Role == storage.RoleAgent && len(m.Context) > 0 {
			blobs = append(blobs, completion.Blob(m.Context))
		}
	}
	slices.Reverse(blobs)
	return blobs
}

func effectiveText(d gate.Decision, original string) string {
	if d.Text != "" {
		return d.Text
	}
	return original
}
