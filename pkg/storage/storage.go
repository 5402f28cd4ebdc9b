// Package storage persists conversations and their messages.
//
// Two backends implement Store: SQLiteStore, over either the cgo
// (github.com/mattn/go-sqlite3) or the pure Go (modernc.org/sqlite) driver,
// and MemoryStore for tests and ephemeral runs. Agent messages carry an
// opaque context blob which the SQLite backend compresses through a
// BlobCodec; the blob is returned to callers byte-for-byte.
//
// Every operation returns *StorageError on failure.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Message is one persisted conversation entry.
type Message struct {
	// ID is assigned by the store and increases with insertion order.
	ID int64

	ConversationID uuid.UUID

	// Role is RoleUser or RoleAgent.
	Role string

	Content string

	// Context is the completion context blob. Only agent messages carry one.
	Context []byte

	// InsertedAt is assigned by the store.
	InsertedAt time.Time
}

// Store is implemented by every persistence backend. Implementations are
// safe for concurrent use.
type Store interface {
	// CreateConversation creates a conversation holding first and returns
	// its new id. Either both are stored or neither is.
	CreateConversation(ctx context.Context, first Message) (uuid.UUID, error)

	// AppendMessage inserts msg into the existing conversation
	// msg.ConversationID.
	AppendMessage(ctx context.Context, msg Message) error

	// ListRecent returns at most limit messages of the conversation, most
	// recent first. Unknown conversations yield an empty slice.
	ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)

	// Prune deletes conversations whose last message is older than
	// olderThan and returns how many were deleted.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

var (
	// ErrConversationNotFound is wrapped when appending to a conversation
	// that does not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidMessage is wrapped when a message violates the data model.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrClosed is wrapped by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// StorageError is returned by every failing Store operation.
type StorageError struct {
	Backend string // "sqlite" or "memory"
	Op      string // "create", "append", "list", "prune", ...
	Err     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, op=%s]: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// validateMessage enforces role and blob placement.
func validateMessage(msg Message) error {
	switch msg.Role {
	case RoleUser:
		if len(msg.Context) > 0 {
			return fmt.Errorf("%w: user messages cannot carry a context blob", ErrInvalidMessage)
		}
	case RoleAgent:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, msg.Role)
	}
	return nil
}

// Config selects and configures a backend.
type Config struct {
	// Backend is "sqlite" or "memory".
	Backend string

	SQLite SQLiteConfig
}

// Open creates the backend named by cfg.Backend.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return NewSQLiteStore(cfg.SQLite)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, &StorageError{Backend: cfg.Backend, Op: "open", Err: fmt.Errorf("unsupported backend %q", cfg.Backend)}
	}
}
