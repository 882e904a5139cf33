package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/donovanmchenry/Chatify/internal/models"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

// DefaultSessionTTL is used when a store is created with a non-positive TTL.
const DefaultSessionTTL = 24 * time.Hour

// SessionRecord summarizes a stored session for administration output.
type SessionRecord struct {
	ID            string
	Authenticated bool
	Messages      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the record is past its deadline at time now.
func (r SessionRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// SessionRepository implements [models.SessionStore] on the SQLite sessions table.
type SessionRepository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection and TTL
func NewSessionRepository(db *sql.DB, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRepository{db: db, ttl: ttl, now: time.Now}
}

// Get retrieves a live session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT payload FROM sessions WHERE id = ? AND expires_at > ?`

	var payload string
	err := r.db.QueryRowContext(ctx, query, id, r.now().UnixMilli()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return decodeSession([]byte(payload))
}

// Put inserts or replaces the session and slides its expiry forward
func (r *SessionRepository) Put(ctx context.Context, id string, session *models.Session) error {
	now := r.now().UTC()
	session.ID = id
	session.UpdatedAt = now
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	query := `
		INSERT INTO sessions (id, payload, authenticated, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			authenticated = excluded.authenticated,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`

	_, err = r.db.ExecContext(ctx, query,
		id,
		string(payload),
		session.Authenticated(),
		session.CreatedAt.UTC(),
		now,
		now.Add(r.ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Delete removes a session by ID. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List retrieves every stored session, expired ones included, most recently updated first
func (r *SessionRepository) List(ctx context.Context) ([]SessionRecord, error) {
	query := `
		SELECT id, payload, authenticated, created_at, updated_at, expires_at
		FROM sessions
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var (
			record    SessionRecord
			payload   string
			expiresAt int64
		)

		err := rows.Scan(&record.ID, &payload, &record.Authenticated, &record.CreatedAt, &record.UpdatedAt, &expiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		record.ExpiresAt = time.UnixMilli(expiresAt).UTC()

		if session, err := decodeSession([]byte(payload)); err == nil {
			record.Messages = len(session.Conversation)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Prune deletes expired sessions and returns how many were removed
func (r *SessionRepository) Prune(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

func decodeSession(payload []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.Conversation == nil {
		session.Conversation = []models.Message{}
	}
	return &session, nil
}
