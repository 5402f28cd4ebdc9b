package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/warden/pkg/chat"
	"mercator-hq/warden/pkg/chat/history"
	"mercator-hq/warden/pkg/proxy"
	"mercator-hq/warden/pkg/proxy/types"
)

// Responder runs one conversation turn. *chat.Orchestrator implements it.
type Responder interface {
	Respond(ctx context.Context, req chat.Request) (*history.Response, error)
}

// ChatHandler serves POST /api/chat/.
type ChatHandler struct {
	responder    Responder
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewChatHandler creates a chat handler. maxBodyBytes of zero uses
// proxy.DefaultMaxBodyBytes.
func NewChatHandler(responder Responder, logger *slog.Logger, maxBodyBytes int64) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		responder:    responder,
		logger:       logger.With("component", "chat.handler"),
		maxBodyBytes: maxBodyBytes,
	}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		proxy.WriteErrorResponse(w, types.NewErrorResponse(
			fmt.Sprintf("Method %s not allowed. Use POST instead.", r.Method),
			types.ErrorTypeMethodNotAllowed,
			types.CodeMethodNotAllowed,
		))
		return
	}

	req, err := proxy.ParseChatRequest(r, h.maxBodyBytes)
	if err != nil {
		h.logger.InfoContext(ctx, "rejected chat request", "error", err)
		proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	start := time.Now()
	resp, err := h.responder.Respond(ctx, req)
	if err != nil {
		h.logFailure(ctx, err, time.Since(start))
		proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	h.logger.InfoContext(ctx, "turn completed",
		"conversation_id", resp.ConversationID,
		"messages", len(resp.Messages),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	proxy.WriteJSON(w, http.StatusOK, resp)
}

// logFailure logs err at warn for client-caused outcomes and at error for
// server faults.
func (h *ChatHandler) logFailure(ctx context.Context, err error, elapsed time.Duration) {
	var (
		rejected *chat.PolicyRejectedError
		notFound *chat.ConversationNotFoundError
	)
	level := slog.LevelError
	if errors.As(err, &rejected) || errors.As(err, &notFound) {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, "turn failed",
		"error", err,
		"latency_ms", elapsed.Milliseconds(),
	)
}
