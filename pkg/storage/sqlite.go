package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLite driver names registered by the imported drivers.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Driver is DriverModernc (default, pure Go) or DriverMattn (cgo).
	Driver string

	// Path is the database file, or ":memory:".
	Path string

	// MaxOpenConns defaults to 10. In-memory databases always use one.
	MaxOpenConns int

	// WALMode enables write-ahead logging.
	WALMode bool

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration

	// Compression is applied to context blobs on write.
	Compression Compression

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultSQLiteConfig returns the default configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Driver:       DriverModernc,
		Path:         "data/warden.db",
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
		Compression:  CompressionZstd,
	}
}

// SQLiteStore implements Store over database/sql.
type SQLiteStore struct {
	db     *sql.DB
	config SQLiteConfig
	codec  BlobCodec
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens the database, applies connection pragmas, and
// creates the schema.
func NewSQLiteStore(config SQLiteConfig) (*SQLiteStore, error) {
	defaults := DefaultSQLiteConfig()
	if config.Driver == "" {
		config.Driver = defaults.Driver
	}
	if config.Path == "" {
		config.Path = defaults.Path
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = defaults.MaxOpenConns
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = defaults.BusyTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "storage.sqlite", "driver", config.Driver)

	memory := config.Path == ":memory:"
	if !memory {
		if dir := filepath.Dir(config.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, &StorageError{Backend: "sqlite", Op: "open", Err: err}
			}
		}
	}

	dsn, err := buildDSN(config)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Err: err}
	}
	db, err := sql.Open(config.Driver, dsn)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Err: err}
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	s := &SQLiteStore{
		db:     db,
		config: config,
		codec:  NewBlobCodec(config.Compression),
		logger: logger,
		now:    time.Now,
	}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"compression", config.Compression.String(),
	)
	return s, nil
}

// buildDSN encodes the per-connection pragmas in the syntax of each driver,
// so every pooled connection gets them.
func buildDSN(config SQLiteConfig) (string, error) {
	ms := config.BusyTimeout.Milliseconds()
	q := url.Values{}
	switch config.Driver {
	case DriverMattn:
		q.Set("_foreign_keys", "1")
		q.Set("_busy_timeout", fmt.Sprint(ms))
		if config.WALMode {
			q.Set("_journal_mode", "WAL")
		}
	case DriverModernc:
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", ms))
		if config.WALMode {
			q.Add("_pragma", "journal_mode(WAL)")
		}
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q (supported: %s, %s)", config.Driver, DriverModernc, DriverMattn)
	}
	return "file:" + config.Path + "?" + q.Encode(), nil
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return &StorageError{Backend: "sqlite", Op: "create_schema", Err: err}
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion, s.now().UnixNano()); err != nil {
		return &StorageError{Backend: "sqlite", Op: "insert_schema_version", Err: err}
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return &StorageError{Backend: "sqlite", Op: "get_schema_version", Err: err}
	}
	if version != SchemaVersion {
		return &StorageError{Backend: "sqlite", Op: "schema_version_mismatch",
			Err: fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version)}
	}
	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// CreateConversation inserts the conversation and its first message in one
// transaction.
func (s *SQLiteStore) CreateConversation(ctx context.Context, first Message) (uuid.UUID, error) {
	if err := validateMessage(first); err != nil {
		return uuid.Nil, &StorageError{Backend: "sqlite", Op: "create", Err: err}
	}
	stored, err := s.codec.Encode(first.Context)
	if err != nil {
		return uuid.Nil, &StorageError{Backend: "sqlite", Op: "create", Err: err}
	}

	id := uuid.New()
	now := s.now().UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, &StorageError{Backend: "sqlite", Op: "create", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)`,
		id.String(), now, now,
	); err != nil {
		return uuid.Nil, &StorageError{Backend: "sqlite", Op: "create", Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, context, inserted_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), first.Role, first.Content, stored, now,
	); err != nil {
		return uuid.Nil, &StorageError{Backend: "sqlite", Op: "create", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, &StorageError{Backend: "sqlite", Op: "create", Err: err}
	}

	s.logger.DebugContext(ctx, "conversation created", "conversation_id", id)
	return id, nil
}

// AppendMessage inserts msg and bumps the conversation's activity time.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg Message) error {
	if err := validateMessage(msg); err != nil {
		return &StorageError{Backend: "sqlite", Op: "append", Err: err}
	}
	stored, err := s.codec.Encode(msg.Context)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "append", Err: err}
	}
	now := s.now().UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "append", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		now, msg.ConversationID.String(),
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "append", Err: err}
	}
	if n, err := res.RowsAffected(); err != nil {
		return &StorageError{Backend: "sqlite", Op: "append", Err: err}
	} else if n == 0 {
		return &StorageError{Backend: "sqlite", Op: "append",
			Err: fmt.Errorf("%w: %s", ErrConversationNotFound, msg.ConversationID)}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, context, inserted_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ConversationID.String(), msg.Role, msg.Content, stored, now,
	); err != nil {
		return &StorageError{Backend: "sqlite", Op: "append", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Backend: "sqlite", Op: "append", Err: err}
	}
	return nil
}

// ListRecent returns up to limit messages, newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	out := []Message{}
	if limit <= 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, context, inserted_at FROM messages
		 WHERE conversation_id = ?
		 ORDER BY inserted_at DESC, id DESC
		 LIMIT ?`,
		conversationID.String(), limit,
	)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m      Message
			stored []byte
			at     int64
		)
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &stored, &at); err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "list", Err: err}
		}
		if m.Context, err = s.codec.Decode(stored); err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "list", Err: fmt.Errorf("message %d: %w", m.ID, err)}
		}
		m.ConversationID = conversationID
		m.InsertedAt = time.Unix(0, at)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list", Err: err}
	}
	return out, nil
}

// Prune deletes idle conversations and their messages in one transaction.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoff := olderThan.UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "prune", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE updated_at < ?)`,
		cutoff,
	); err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "prune", Err: err}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "prune", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "prune", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "prune", Err: err}
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &StorageError{Backend: "sqlite", Op: "ping", Err: err}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return &StorageError{Backend: "sqlite", Op: "close", Err: err}
	}
	s.logger.Info("SQLite storage closed")
	return nil
}
