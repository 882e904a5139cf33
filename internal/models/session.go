// package models defines the data model for the chat relay
package models

import (
	"context"
	"time"
)

// Role tags a conversation message with its author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Credentials holds the Spotify bearer tokens for an authenticated session.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token must be renewed before use at time now.
//
// A zero ExpiresAt means the provider did not report a lifetime and the token never expires.
func (c *Credentials) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return now.After(c.ExpiresAt)
}

// ExpiresAtMillis returns ExpiresAt as milliseconds since the Unix epoch.
func (c *Credentials) ExpiresAtMillis() int64 {
	return c.ExpiresAt.UnixMilli()
}

// Session is the server-side record for one browser session.
type Session struct {
	ID           string       `json:"id"`
	OAuthState   string       `json:"oauth_state,omitempty"`
	Credentials  *Credentials `json:"credentials,omitempty"`
	Conversation []Message    `json:"conversation"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewSession creates an anonymous session with an empty conversation.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Conversation: []Message{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Authenticated reports whether the session holds Spotify credentials.
func (s *Session) Authenticated() bool {
	return s.Credentials != nil && s.Credentials.AccessToken != ""
}

// Append adds a message to the end of the conversation.
func (s *Session) Append(role Role, content string) {
	s.Conversation = append(s.Conversation, Message{Role: role, Content: content})
}

// History returns a copy of the conversation in insertion order.
func (s *Session) History() []Message {
	history := make([]Message, len(s.Conversation))
	copy(history, s.Conversation)
	return history
}

// ResetConversation clears the conversation, leaving credentials untouched.
func (s *Session) ResetConversation() {
	s.Conversation = []Message{}
}

// SessionStore persists sessions by identifier.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error) // Get returns shared.ErrSessionNotFound for missing or expired sessions
	Put(ctx context.Context, id string, session *Session) error
	Delete(ctx context.Context, id string) error
}
