package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memConversation struct {
	updatedAt time.Time
	messages  []Message // oldest first
}

// MemoryStore is an in-process Store. Contents are lost on Close.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*memConversation
	nextID        int64
	closed        bool
	now           func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[uuid.UUID]*memConversation),
		now:           time.Now,
	}
}

// CreateConversation stores first under a new conversation id.
func (s *MemoryStore) CreateConversation(ctx context.Context, first Message) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, &StorageError{Backend: "memory", Op: "create", Err: err}
	}
	if err := validateMessage(first); err != nil {
		return uuid.Nil, &StorageError{Backend: "memory", Op: "create", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return uuid.Nil, &StorageError{Backend: "memory", Op: "create", Err: ErrClosed}
	}

	id := uuid.New()
	now := s.now()
	conv := &memConversation{updatedAt: now}
	conv.messages = append(conv.messages, s.stamp(first, id, now))
	s.conversations[id] = conv
	return id, nil
}

// AppendMessage appends msg to its conversation.
func (s *MemoryStore) AppendMessage(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Backend: "memory", Op: "append", Err: err}
	}
	if err := validateMessage(msg); err != nil {
		return &StorageError{Backend: "memory", Op: "append", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &StorageError{Backend: "memory", Op: "append", Err: ErrClosed}
	}

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return &StorageError{Backend: "memory", Op: "append",
			Err: fmt.Errorf("%w: %s", ErrConversationNotFound, msg.ConversationID)}
	}
	now := s.now()
	conv.updatedAt = now
	conv.messages = append(conv.messages, s.stamp(msg, msg.ConversationID, now))
	return nil
}

// stamp assigns id, conversation, and time, and copies the blob. The caller
// holds s.mu.
func (s *MemoryStore) stamp(msg Message, conversationID uuid.UUID, now time.Time) Message {
	s.nextID++
	msg.ID = s.nextID
	msg.ConversationID = conversationID
	msg.InsertedAt = now
	msg.Context = cloneBytes(msg.Context)
	return msg
}

// ListRecent returns up to limit messages, newest first.
func (s *MemoryStore) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StorageError{Backend: "memory", Op: "list", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, &StorageError{Backend: "memory", Op: "list", Err: ErrClosed}
	}

	out := []Message{}
	conv, ok := s.conversations[conversationID]
	if !ok || limit <= 0 {
		return out, nil
	}
	for i := len(conv.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := conv.messages[i]
		m.Context = cloneBytes(m.Context)
		out = append(out, m)
	}
	return out, nil
}

// Prune deletes idle conversations.
func (s *MemoryStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &StorageError{Backend: "memory", Op: "prune", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, &StorageError{Backend: "memory", Op: "prune", Err: ErrClosed}
	}

	var n int64
	for id, conv := range s.conversations {
		if conv.updatedAt.Before(olderThan) {
			delete(s.conversations, id)
			n++
		}
	}
	return n, nil
}

// Ping fails only after Close.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &StorageError{Backend: "memory", Op: "ping", Err: ErrClosed}
	}
	return nil
}

// Close discards all data.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.conversations = nil
	return nil
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
