package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jbranky/site-server/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements SessionStore using SQLite. Sessions survive
// process restarts; this is the durable implementation.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes read-modify-write updates to prevent SQLITE_BUSY and lost appends
}

// NewSQLite creates a new SQLite-backed session store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		visitor_name TEXT NOT NULL,
		visitor_email TEXT NOT NULL,
		visitor_phone TEXT NOT NULL,
		origin_path TEXT,
		tutorial_completed INTEGER NOT NULL DEFAULT 0,
		lead_captured INTEGER NOT NULL DEFAULT 1,
		last_intent TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

	CREATE TABLE IF NOT EXISTS session_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		seq INTEGER NOT NULL,
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		intent TEXT,
		created_at INTEGER NOT NULL,
		UNIQUE(session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON session_messages(session_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Create inserts a new session record.
func (s *SQLiteStore) Create(ctx context.Context, session *domain.ChatbotSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO sessions (id, visitor_name, visitor_email, visitor_phone, origin_path,
		tutorial_completed, lead_captured, last_intent, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING`

	var originPath interface{}
	if session.OriginPath != "" {
		originPath = session.OriginPath
	}
	var lastIntent interface{}
	if session.LastIntent != nil {
		lastIntent = *session.LastIntent
	}

	res, err := s.db.ExecContext(ctx, query,
		session.ID, session.VisitorName, session.VisitorEmail, session.VisitorPhone,
		originPath, boolToInt(session.Metadata.TutorialCompleted),
		boolToInt(session.Metadata.LeadCaptured), lastIntent,
		session.CreatedAt.UnixMilli(), session.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrConflict
	}

	return s.insertMessages(ctx, session.ID, 0, session.Messages)
}

// GetByID retrieves a session with its full transcript.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.ChatbotSession, error) {
	return s.loadSession(ctx, id)
}

// List retrieves all sessions with full transcripts.
func (s *SQLiteStore) List(ctx context.Context) ([]*domain.ChatbotSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, visitor_name, visitor_email, visitor_phone, origin_path,
		       tutorial_completed, lead_captured, last_intent, created_at, updated_at
		FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.ChatbotSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	for _, session := range sessions {
		messages, err := s.loadMessages(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		session.Messages = messages
	}
	return sessions, nil
}

// Update atomically applies the mutator to the stored session. New messages
// are appended after the existing transcript; existing rows are untouched.
func (s *SQLiteStore) Update(ctx context.Context, id string, fn Mutator) (*domain.ChatbotSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	before := len(session.Messages)
	if err := fn(session); err != nil {
		return nil, err
	}
	if len(session.Messages) < before {
		return nil, fmt.Errorf("update session %s: mutator removed messages from append-only transcript", id)
	}

	var originPath interface{}
	if session.OriginPath != "" {
		originPath = session.OriginPath
	}
	var lastIntent interface{}
	if session.LastIntent != nil {
		lastIntent = *session.LastIntent
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE sessions SET visitor_name = ?, visitor_email = ?, visitor_phone = ?,
			origin_path = ?, tutorial_completed = ?, lead_captured = ?,
			last_intent = ?, updated_at = ?
		WHERE id = ?`,
		session.VisitorName, session.VisitorEmail, session.VisitorPhone,
		originPath, boolToInt(session.Metadata.TutorialCompleted),
		boolToInt(session.Metadata.LeadCaptured), lastIntent,
		session.UpdatedAt.UnixMilli(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	if err := s.insertMessages(ctx, id, before, session.Messages[before:]); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQLiteStore) insertMessages(ctx context.Context, sessionID string, startSeq int, messages []domain.ChatbotMessage) error {
	for i, msg := range messages {
		var intent interface{}
		if msg.Intent != nil {
			intent = *msg.Intent
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO session_messages (id, session_id, seq, sender, content, intent, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, sessionID, startSeq+i, string(msg.Sender), msg.Content,
			intent, msg.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) loadSession(ctx context.Context, id string) (*domain.ChatbotSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, visitor_name, visitor_email, visitor_phone, origin_path,
		       tutorial_completed, lead_captured, last_intent, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	messages, err := s.loadMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Messages = messages
	return session, nil
}

func (s *SQLiteStore) loadMessages(ctx context.Context, sessionID string) ([]domain.ChatbotMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, content, intent, created_at
		FROM session_messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.ChatbotMessage{}
	for rows.Next() {
		var msg domain.ChatbotMessage
		var sender string
		var intent sql.NullString
		var createdAt int64
		if err := rows.Scan(&msg.ID, &sender, &msg.Content, &intent, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Sender = domain.Sender(sender)
		msg.CreatedAt = time.UnixMilli(createdAt)
		if intent.Valid {
			msg.Intent = &intent.String
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*domain.ChatbotSession, error) {
	var session domain.ChatbotSession
	var originPath, lastIntent sql.NullString
	var tutorialCompleted, leadCaptured int
	var createdAt, updatedAt int64

	err := row.Scan(
		&session.ID, &session.VisitorName, &session.VisitorEmail, &session.VisitorPhone,
		&originPath, &tutorialCompleted, &leadCaptured, &lastIntent,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.OriginPath = originPath.String
	session.Metadata.TutorialCompleted = tutorialCompleted != 0
	session.Metadata.LeadCaptured = leadCaptured != 0
	if lastIntent.Valid {
		session.LastIntent = &lastIntent.String
	}
	session.CreatedAt = time.UnixMilli(createdAt)
	session.UpdatedAt = time.UnixMilli(updatedAt)
	session.Messages = []domain.ChatbotMessage{}
	return &session, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
